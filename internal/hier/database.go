package hier

import "context"

// Database persists the hierarchy. Every operation runs inside View (read-only)
// or Update (read-write, serialized); returning an error from fn rolls back.
type Database interface {
	View(ctx context.Context, fn func(q Queries) error) error
	Update(ctx context.Context, fn func(q Queries) error) error
	Close() error
}

// Queries are the statements available inside a Database transaction.
type Queries interface {
	// GetNode returns the node with its versions and share list, active or not.
	// Returns nil if no node has that id.
	GetNode(ctx context.Context, id string) (*Node, error)

	// FindChildren returns the active nodes directly under parentID
	// ("" for the project root).
	FindChildren(ctx context.Context, projectID, parentID string) ([]*Node, error)

	// FindSibling returns the active node of the given kind and name under
	// parentID, or nil.
	FindSibling(ctx context.Context, projectID, parentID string, kind Kind, name string) (*Node, error)

	// InsertNode stores a new node together with its versions and share list.
	// Returns ErrNameConflict if an active sibling of the same kind has the name.
	InsertNode(ctx context.Context, n *Node) error

	// AppendVersion adds a record to the end of a node's history.
	AppendVersion(ctx context.Context, nodeID string, v VersionRecord) error

	// UpdateNode writes the mutable columns of n: parent, current-version
	// pointers, visibility, share list and the active flag.
	// Returns ErrNameConflict if the new placement collides with an active sibling.
	UpdateNode(ctx context.Context, n *Node) error
}
