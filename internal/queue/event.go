// Package queue defines message payloads exchanged over the message broker.
package queue

// ProjectCreatedEvent is published when a project is successfully created.
// It carries enough for downstream consumers to notify or aggregate without
// querying the primary database.
type ProjectCreatedEvent struct {
	ProjectID uint64 `json:"project_id"`
	Name      string `json:"name"`
	OwnerID   uint64 `json:"owner_id"`
	CreatedAt string `json:"created_at"`
}
