package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/project-camp/internal/model"
	"github.com/iliyamo/project-camp/internal/queue"
)

// ProjectStore is the persistence surface for project endpoints.
// *repository.ProjectRepo satisfies it.
type ProjectStore interface {
	CreateWithAdmin(ctx context.Context, p *model.Project, m *model.ProjectMember) error
}

// ProjectHandler bundles dependencies for project endpoints.  Publish is
// optional; when set, a project.created event goes out after a successful
// create and failures are logged and ignored.
type ProjectHandler struct {
	Projects ProjectStore
	Publish  func(ctx context.Context, ev queue.ProjectCreatedEvent) error
}

func NewProjectHandler(projects ProjectStore) *ProjectHandler {
	return &ProjectHandler{Projects: projects}
}

type projectSettingsReq struct {
	Visibility        string `json:"visibility"`
	DefaultTaskStatus string `json:"defaultTaskStatus"`
	AllowGuestAccess  bool   `json:"allowGuestAccess"`
}

type createProjectReq struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Settings    projectSettingsReq `json:"settings"`
}

// Create handles POST /api/v1/project.  The creator becomes the project's
// admin member in the same transaction, so a project never exists without
// one.
func (h *ProjectHandler) Create(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}

	var req createProjectReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fail(c, http.StatusBadRequest, "Project name is required")
	}

	project := model.Project{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   u.ID,
		Settings:    normalizeSettings(req.Settings),
		Metadata: model.ProjectMetadata{
			TotalMembers: 1,
			LastActivity: time.Now().UTC(),
		},
	}
	member := model.ProjectMember{
		UserID:      u.ID,
		Role:        model.RoleAdmin,
		InvitedBy:   u.ID,
		Permissions: model.FullPermissions(),
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Projects.CreateWithAdmin(ctx, &project, &member); err != nil {
		return fail(c, http.StatusInternalServerError, "Could not create project")
	}

	if h.Publish != nil {
		ev := queue.ProjectCreatedEvent{
			ProjectID: project.ID,
			Name:      project.Name,
			OwnerID:   project.CreatedBy,
			CreatedAt: project.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := h.Publish(c.Request().Context(), ev); err != nil {
			log.Printf("queue: project.created publish failed: %v", err)
		}
	}

	return respond(c, http.StatusCreated, echo.Map{"project": project}, "Project created successfully")
}

// normalizeSettings fills unset settings with their defaults: private
// visibility, "to-do" task status, guest access off.
func normalizeSettings(s projectSettingsReq) model.ProjectSettings {
	out := model.ProjectSettings{
		Visibility:        strings.TrimSpace(s.Visibility),
		DefaultTaskStatus: strings.TrimSpace(s.DefaultTaskStatus),
		AllowGuestAccess:  s.AllowGuestAccess,
	}
	if out.Visibility != model.VisibilityPublic {
		out.Visibility = model.VisibilityPrivate
	}
	if out.DefaultTaskStatus == "" {
		out.DefaultTaskStatus = model.DefaultTaskStatus
	}
	return out
}
