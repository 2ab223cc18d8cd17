package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docshare/internal/hier"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries implements hier.Queries over a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries running against db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

var _ hier.Queries = (*Queries)(nil)

const nodeColumns = `id, kind, project_id, parent_id, display_name, stored_name, original_name,
	owner_id, visibility, size, mime_type, remote_key, encrypted, active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*hier.Node, error) {
	var (
		n      hier.Node
		parent sql.NullString
		kind   string
		vis    string
	)
	err := row.Scan(&n.ID, &kind, &n.ProjectID, &parent, &n.DisplayName, &n.StoredName, &n.OriginalName,
		&n.OwnerID, &vis, &n.Size, &n.MimeType, &n.RemoteKey, &n.Encrypted, &n.Active, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.Kind = hier.Kind(kind)
	n.Visibility = hier.Visibility(vis)
	n.ParentID = parent.String
	return &n, nil
}

func nullParent(parentID string) sql.NullString {
	return sql.NullString{String: parentID, Valid: parentID != ""}
}

// GetNode returns the node with its history and share list, or nil.
func (q *Queries) GetNode(ctx context.Context, id string) (*hier.Node, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting node: %w", err)
	}
	if err := q.loadDetails(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// FindChildren returns the active nodes directly under parentID.
func (q *Queries) FindChildren(ctx context.Context, projectID, parentID string) ([]*hier.Node, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes
		WHERE project_id = ? AND IFNULL(parent_id, '') = ? AND active = 1
		ORDER BY kind DESC, display_name`, projectID, parentID)
	if err != nil {
		return nil, fmt.Errorf("finding children: %w", err)
	}
	defer rows.Close()

	var nodes []*hier.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning child: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating children: %w", err)
	}
	rows.Close()

	for _, n := range nodes {
		if err := q.loadDetails(ctx, n); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// FindSibling returns the active node of kind named name under parentID, or nil.
func (q *Queries) FindSibling(ctx context.Context, projectID, parentID string, kind hier.Kind, name string) (*hier.Node, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes
		WHERE project_id = ? AND IFNULL(parent_id, '') = ? AND kind = ? AND display_name = ? AND active = 1`,
		projectID, parentID, string(kind), name)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding sibling: %w", err)
	}
	return n, nil
}

// InsertNode stores n with all of its versions and shares.
func (q *Queries) InsertNode(ctx context.Context, n *hier.Node) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.Kind), n.ProjectID, nullParent(n.ParentID), n.DisplayName, n.StoredName, n.OriginalName,
		n.OwnerID, string(n.Visibility), n.Size, n.MimeType, n.RemoteKey, n.Encrypted, n.Active, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting node: %w", mapConstraint(err))
	}

	for _, v := range n.Versions {
		if err := q.AppendVersion(ctx, n.ID, v); err != nil {
			return err
		}
	}
	return q.replaceShares(ctx, n.ID, n.SharedWith)
}

// AppendVersion adds v to the node's history.
func (q *Queries) AppendVersion(ctx context.Context, nodeID string, v hier.VersionRecord) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO node_versions
		(node_id, version_number, stored_name, remote_key, size, mime_type, original_name, encrypted, actor_id, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nodeID, v.VersionNumber, v.StoredName, v.RemoteKey, v.Size, v.MimeType, v.OriginalName, v.Encrypted,
		v.ActorID, string(v.Action), v.Timestamp)
	if err != nil {
		return fmt.Errorf("appending version %d: %w", v.VersionNumber, err)
	}
	return nil
}

// UpdateNode writes the mutable columns of n and replaces its share list.
func (q *Queries) UpdateNode(ctx context.Context, n *hier.Node) error {
	res, err := q.db.ExecContext(ctx, `UPDATE nodes SET
		parent_id = ?, stored_name = ?, original_name = ?, visibility = ?, size = ?, mime_type = ?,
		remote_key = ?, encrypted = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		nullParent(n.ParentID), n.StoredName, n.OriginalName, string(n.Visibility), n.Size, n.MimeType,
		n.RemoteKey, n.Encrypted, n.Active, n.UpdatedAt, n.ID)
	if err != nil {
		return fmt.Errorf("updating node: %w", mapConstraint(err))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("updating node %s: %w", n.ID, hier.ErrNotFound)
	}
	return q.replaceShares(ctx, n.ID, n.SharedWith)
}

func (q *Queries) replaceShares(ctx context.Context, nodeID string, users []string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM node_shares WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("clearing shares: %w", err)
	}
	for _, u := range users {
		if _, err := q.db.ExecContext(ctx, `INSERT INTO node_shares (node_id, user_id) VALUES (?, ?)`, nodeID, u); err != nil {
			return fmt.Errorf("sharing with %s: %w", u, err)
		}
	}
	return nil
}

// loadDetails fills in the versions and share list of n.
func (q *Queries) loadDetails(ctx context.Context, n *hier.Node) error {
	versions, err := q.versions(ctx, n.ID)
	if err != nil {
		return err
	}
	n.Versions = versions

	shares, err := q.shares(ctx, n.ID)
	if err != nil {
		return err
	}
	n.SharedWith = shares
	return nil
}

func (q *Queries) versions(ctx context.Context, nodeID string) ([]hier.VersionRecord, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT version_number, stored_name, remote_key, size, mime_type,
		original_name, encrypted, actor_id, action, created_at
		FROM node_versions WHERE node_id = ? ORDER BY version_number`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("loading versions: %w", err)
	}
	defer rows.Close()

	var versions []hier.VersionRecord
	for rows.Next() {
		var (
			v      hier.VersionRecord
			action string
			at     time.Time
		)
		if err := rows.Scan(&v.VersionNumber, &v.StoredName, &v.RemoteKey, &v.Size, &v.MimeType,
			&v.OriginalName, &v.Encrypted, &v.ActorID, &action, &at); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		v.Action = hier.Action(action)
		v.Timestamp = at
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}
	return versions, nil
}

func (q *Queries) shares(ctx context.Context, nodeID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT user_id FROM node_shares WHERE node_id = ? ORDER BY user_id`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("loading shares: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning share: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shares: %w", err)
	}
	return users, nil
}
