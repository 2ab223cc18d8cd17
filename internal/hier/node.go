package hier

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Kind discriminates files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Visibility controls which project members may read a file.
type Visibility string

const (
	VisibilityAll    Visibility = "all"
	VisibilityShared Visibility = "shared"
)

// ParseVisibility accepts "all" or "shared" in any case. An empty string means all.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(strings.ToLower(strings.TrimSpace(s))) {
	case "", VisibilityAll:
		return VisibilityAll, nil
	case VisibilityShared:
		return VisibilityShared, nil
	default:
		return "", fmt.Errorf("%w: unknown visibility %q", ErrInvalidArgument, s)
	}
}

// Action identifies the event a VersionRecord describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// VersionRecord is one immutable entry in a node's history.
type VersionRecord struct {
	VersionNumber int
	StoredName    string
	RemoteKey     string
	Size          int64
	MimeType      string
	OriginalName  string
	Encrypted     bool
	ActorID       string
	Action        Action
	Timestamp     time.Time
}

// Node is either a file or a folder in a project's hierarchy.
//
// ParentID is empty for nodes at the project root. StoredName, OriginalName,
// Size, MimeType and Encrypted describe the current version and are only set
// for files. Folders carry a synthetic RemoteKey that is never dereferenced.
type Node struct {
	ID           string
	Kind         Kind
	ProjectID    string
	ParentID     string
	DisplayName  string
	StoredName   string
	OriginalName string
	OwnerID      string
	Visibility   Visibility
	SharedWith   []string
	Size         int64
	MimeType     string
	RemoteKey    string
	Encrypted    bool
	Versions     []VersionRecord
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsFile reports whether n is a file.
func (n *Node) IsFile() bool { return n.Kind == KindFile }

// IsFolder reports whether n is a folder.
func (n *Node) IsFolder() bool { return n.Kind == KindFolder }

// IsRoot reports whether n sits directly at its project root.
func (n *Node) IsRoot() bool { return n.ParentID == "" }

// LatestVersion returns the last appended version record.
func (n *Node) LatestVersion() *VersionRecord {
	if len(n.Versions) == 0 {
		return nil
	}
	return &n.Versions[len(n.Versions)-1]
}

// Version returns the record with the given 1-based number, or nil.
func (n *Node) Version(number int) *VersionRecord {
	if number < 1 || number > len(n.Versions) {
		return nil
	}
	return &n.Versions[number-1]
}

// nextVersion builds the record that follows the current history.
func (n *Node) nextVersion(action Action, actorID string, at time.Time) VersionRecord {
	return VersionRecord{
		VersionNumber: len(n.Versions) + 1,
		StoredName:    n.StoredName,
		RemoteKey:     n.RemoteKey,
		Size:          n.Size,
		MimeType:      n.MimeType,
		OriginalName:  n.OriginalName,
		Encrypted:     n.Encrypted,
		ActorID:       actorID,
		Action:        action,
		Timestamp:     at,
	}
}

// isSharedWith reports whether userID is on the node's share list.
func (n *Node) isSharedWith(userID string) bool {
	return lo.Contains(n.SharedWith, userID)
}

// Validate checks the per-kind field rules and the version log shape.
func (n *Node) Validate() error {
	if n.ID == "" || n.ProjectID == "" || n.OwnerID == "" {
		return fmt.Errorf("%w: node requires id, project and owner", ErrInvalidArgument)
	}
	if err := ValidateName(n.DisplayName); err != nil {
		return err
	}
	switch n.Kind {
	case KindFolder:
		if n.StoredName != "" || n.OriginalName != "" || n.Size != 0 || n.MimeType != "" {
			return fmt.Errorf("%w: folder %s carries file content fields", ErrInvalidArgument, n.ID)
		}
		if len(n.SharedWith) != 0 {
			return fmt.Errorf("%w: folder %s carries a share list", ErrInvalidArgument, n.ID)
		}
	case KindFile:
		if n.StoredName == "" || n.OriginalName == "" {
			return fmt.Errorf("%w: file %s requires stored and original names", ErrInvalidArgument, n.ID)
		}
		if n.Visibility != VisibilityAll && n.Visibility != VisibilityShared {
			return fmt.Errorf("%w: file %s has visibility %q", ErrInvalidArgument, n.ID, n.Visibility)
		}
	default:
		return fmt.Errorf("%w: unknown node kind %q", ErrInvalidArgument, n.Kind)
	}
	if n.RemoteKey == "" {
		return fmt.Errorf("%w: node %s has no remote key", ErrInvalidArgument, n.ID)
	}
	if len(n.Versions) == 0 || n.Versions[0].Action != ActionCreate {
		return fmt.Errorf("%w: node %s must start with a create version", ErrInvalidArgument, n.ID)
	}
	for i, v := range n.Versions {
		if v.VersionNumber != i+1 {
			return fmt.Errorf("%w: node %s version %d out of sequence", ErrInvalidArgument, n.ID, v.VersionNumber)
		}
	}
	return nil
}

// ValidateName rejects display names that cannot appear in the hierarchy.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name must not be empty", ErrInvalidArgument)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: name %q contains a path separator", ErrInvalidArgument, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: name %q is reserved", ErrInvalidArgument, name)
	}
	return nil
}

// BlobKey returns the blob store key for a stored file name.
func BlobKey(projectID, storedName string) string {
	return path.Join("projects", projectID, storedName)
}

// folderKey returns the synthetic, never dereferenced key recorded for folders.
func folderKey(projectID, name string) string {
	return path.Join("folders", projectID, name)
}

// normalizeShares trims, de-duplicates and drops empty user ids.
func normalizeShares(users []string) []string {
	trimmed := lo.Map(users, func(u string, _ int) string { return strings.TrimSpace(u) })
	return lo.Uniq(lo.Filter(trimmed, func(u string, _ int) bool { return u != "" }))
}

// storedNameFor builds a collision-free stored name that keeps the original extension.
func storedNameFor(token, originalName string) string {
	return token + strings.ToLower(path.Ext(originalName))
}
