package hier

import (
	"fmt"
	"strings"
)

// Role is the global role carried by an authenticated actor.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts "user" or "admin". An empty string means user.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, s)
	}
}

// Actor identifies the caller of a Service operation.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the actor holds the global admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Operation names an access-checked action on a node.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpMove   Operation = "move"
	OpShare  Operation = "share"
)

// Facts are the membership answers for the actor in the node's project.
type Facts struct {
	Member       bool
	ProjectOwner bool
}

// Authorize decides whether actor may perform op on node given the project facts.
// For OpCreate, node is the target parent folder and is nil at the project root.
//
// Admins may do anything except replace a file's content, which stays with the
// uploader. Project owners hold structural authority (move, share, folder
// delete) but never content authority over other users' files.
func Authorize(actor Actor, facts Facts, node *Node, op Operation) bool {
	if op == OpUpdate {
		return node != nil && node.IsFile() && node.OwnerID == actor.UserID &&
			(facts.Member || actor.IsAdmin())
	}
	if actor.IsAdmin() {
		return true
	}
	if !facts.Member {
		return false
	}

	switch op {
	case OpCreate:
		return node == nil || node.IsFolder()
	case OpRead:
		return canRead(actor, facts, node)
	case OpDelete:
		if node.IsFile() {
			return node.OwnerID == actor.UserID
		}
		return node.OwnerID == actor.UserID || facts.ProjectOwner
	case OpMove:
		if facts.ProjectOwner {
			return true
		}
		return node.IsFolder() && node.OwnerID == actor.UserID
	case OpShare:
		if facts.ProjectOwner {
			return true
		}
		return node.IsFile() && node.OwnerID == actor.UserID
	default:
		return false
	}
}

// canRead is the single visibility predicate shared by lookups and listings.
func canRead(actor Actor, facts Facts, node *Node) bool {
	if node.IsFolder() || facts.ProjectOwner {
		return true
	}
	return node.Visibility == VisibilityAll ||
		node.OwnerID == actor.UserID ||
		node.isSharedWith(actor.UserID)
}

// authorize wraps Authorize and turns a denial into ErrForbidden.
func authorize(actor Actor, facts Facts, node *Node, op Operation) error {
	if Authorize(actor, facts, node, op) {
		return nil
	}
	if node == nil {
		return fmt.Errorf("%w: %s %s at project root", ErrForbidden, actor.UserID, op)
	}
	return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, actor.UserID, op, node.ID)
}
