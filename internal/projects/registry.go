// Package projects stores projects and their members and answers the
// membership questions the hierarchy asks before every operation.
package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"docshare/internal/hier"
)

// MemberRole is a user's role inside one project.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// Project is an access-control boundary with its own hierarchy.
type Project struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

// Member is one user's membership in a project.
type Member struct {
	UserID  string
	Role    MemberRole
	AddedAt time.Time
}

// Registry implements hier.MembershipOracle on the shared SQLite database.
// Its methods must not be called from inside a hier.Database transaction.
type Registry struct {
	db    *sql.DB
	clock hier.Clock
	idgen hier.IDGenerator
}

var _ hier.MembershipOracle = (*Registry)(nil)

// NewRegistry creates a Registry over a migrated database connection.
func NewRegistry(db *sql.DB, clock hier.Clock, idgen hier.IDGenerator) *Registry {
	return &Registry{db: db, clock: clock, idgen: idgen}
}

// Create registers a project. The creator becomes its owner.
func (r *Registry) Create(ctx context.Context, creator hier.Actor, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name must not be empty", hier.ErrInvalidArgument)
	}
	if creator.UserID == "" {
		return nil, fmt.Errorf("%w: project creator is required", hier.ErrInvalidArgument)
	}

	p := &Project{
		ID:        r.idgen.New(),
		Name:      name,
		CreatedBy: creator.UserID,
		CreatedAt: r.clock.Now(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO projects (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.CreatedBy, p.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO project_members (project_id, user_id, role, added_at) VALUES (?, ?, ?, ?)`,
		p.ID, creator.UserID, string(RoleOwner), p.CreatedAt); err != nil {
		return nil, fmt.Errorf("adding owner: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return p, nil
}

// Get returns the project with the given id, or nil.
func (r *Registry) Get(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_by, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return &p, nil
}

// ListForUser returns the projects userID belongs to, by name.
func (r *Registry) ListForUser(ctx context.Context, userID string) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT p.id, p.name, p.created_by, p.created_at
		FROM projects p JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ? ORDER BY p.name, p.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var result []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

// AddMember adds userID to a project as a plain member.
// Only the project owner or an admin may do this.
func (r *Registry) AddMember(ctx context.Context, actor hier.Actor, projectID, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id must not be empty", hier.ErrInvalidArgument)
	}
	if err := r.requireManager(ctx, actor, projectID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO project_members (project_id, user_id, role, added_at) VALUES (?, ?, ?, ?)`,
		projectID, userID, string(RoleMember), r.clock.Now())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %s is already a member", hier.ErrNameConflict, userID)
		}
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

// RemoveMember removes userID from a project. The owner cannot be removed.
func (r *Registry) RemoveMember(ctx context.Context, actor hier.Actor, projectID, userID string) error {
	if err := r.requireManager(ctx, actor, projectID); err != nil {
		return err
	}

	role, err := r.role(ctx, projectID, userID)
	if err != nil {
		return err
	}
	switch role {
	case "":
		return fmt.Errorf("%w: %s is not a member of %s", hier.ErrNotFound, userID, projectID)
	case RoleOwner:
		return fmt.Errorf("%w: the project owner cannot be removed", hier.ErrInvalidStructure)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID); err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return nil
}

// Members lists a project's members, owner first.
func (r *Registry) Members(ctx context.Context, projectID string) ([]Member, error) {
	if err := r.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT user_id, role, added_at FROM project_members
		WHERE project_id = ? ORDER BY role = 'owner' DESC, user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var (
			m    Member
			role string
		)
		if err := rows.Scan(&m.UserID, &role, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.Role = MemberRole(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// ProjectExists reports whether the project is registered.
func (r *Registry) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	p, err := r.Get(ctx, projectID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// IsMember reports whether userID belongs to the project in any role.
func (r *Registry) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	role, err := r.role(ctx, projectID, userID)
	return role != "", err
}

// IsOwner reports whether userID owns the project.
func (r *Registry) IsOwner(ctx context.Context, projectID, userID string) (bool, error) {
	role, err := r.role(ctx, projectID, userID)
	return role == RoleOwner, err
}

// role returns the user's role in the project, or "" if not a member.
func (r *Registry) role(ctx context.Context, projectID, userID string) (MemberRole, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up membership: %w", err)
	}
	return MemberRole(role), nil
}

func (r *Registry) requireProject(ctx context.Context, projectID string) error {
	exists, err := r.ProjectExists(ctx, projectID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: project %s", hier.ErrNotFound, projectID)
	}
	return nil
}

// requireManager checks that actor may change the project's membership.
func (r *Registry) requireManager(ctx context.Context, actor hier.Actor, projectID string) error {
	if err := r.requireProject(ctx, projectID); err != nil {
		return err
	}
	if actor.IsAdmin() {
		return nil
	}
	owner, err := r.IsOwner(ctx, projectID, actor.UserID)
	if err != nil {
		return err
	}
	if !owner {
		return fmt.Errorf("%w: only the project owner manages members", hier.ErrForbidden)
	}
	return nil
}
