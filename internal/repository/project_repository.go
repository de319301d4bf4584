package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/project-camp/internal/model"
)

// ProjectRepo provides CRUD operations for projects and their membership
// rows.  The project row and the creator's membership are always written
// inside one transaction so a project can never exist without its admin.
type ProjectRepo struct{ db *sql.DB }

// NewProjectRepo returns a new ProjectRepo bound to the given database.
func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{db: db} }

// CreateWithAdmin inserts the project and the creator's admin membership
// atomically.  Generated IDs and timestamps are populated on both records
// before commit.
func (r *ProjectRepo) CreateWithAdmin(ctx context.Context, p *model.Project, m *model.ProjectMember) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.createProjectTx(ctx, tx, p); err != nil {
		return err
	}
	m.ProjectID = p.ID
	if err := r.createMemberTx(ctx, tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ProjectRepo) createProjectTx(ctx context.Context, tx *sql.Tx, p *model.Project) error {
	const q = `INSERT INTO projects
		(name, description, created_by, visibility, default_task_status, allow_guest_access,
		 total_tasks, completed_tasks, total_members, last_activity)
		VALUES (?,?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		p.Name, p.Description, p.CreatedBy,
		p.Settings.Visibility, p.Settings.DefaultTaskStatus, p.Settings.AllowGuestAccess,
		p.Metadata.TotalTasks, p.Metadata.CompletedTasks, p.Metadata.TotalMembers,
		p.Metadata.LastActivity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	// Query back the row to populate timestamps and defaults
	const sel = `SELECT created_at, updated_at FROM projects WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *ProjectRepo) createMemberTx(ctx context.Context, tx *sql.Tx, m *model.ProjectMember) error {
	const q = `INSERT INTO project_members
		(user_id, project_id, role, invited_by,
		 can_create_tasks, can_edit_tasks, can_delete_tasks, can_manage_members, can_view_reports)
		VALUES (?,?,?,?,?,?,?,?,?)`
	res, err := tx.ExecContext(ctx, q,
		m.UserID, m.ProjectID, m.Role, m.InvitedBy,
		m.Permissions.CanCreateTasks, m.Permissions.CanEditTasks, m.Permissions.CanDeleteTasks,
		m.Permissions.CanManageMembers, m.Permissions.CanViewReports)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	const sel = `SELECT joined_at FROM project_members WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, m.ID).Scan(&m.JoinedAt)
}
