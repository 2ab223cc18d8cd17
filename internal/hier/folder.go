package hier

import (
	"context"
	"fmt"
	"strings"
)

// CreateFolderRequest describes a new folder.
type CreateFolderRequest struct {
	ProjectID string
	ParentID  string // empty for the project root
	Name      string
}

// CreateFolder adds an empty folder under the requested parent.
// Concurrent requests for the same name resolve to one success; the rest
// fail with ErrNameConflict.
func (s *Service) CreateFolder(ctx context.Context, actor Actor, req CreateFolderRequest) (*Node, error) {
	name := strings.TrimSpace(req.Name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	facts, err := s.facts(ctx, req.ProjectID, actor)
	if err != nil {
		return nil, err
	}

	var created *Node
	err = s.database.Update(ctx, func(q Queries) error {
		parent, err := resolveParent(ctx, q, req.ProjectID, req.ParentID)
		if err != nil {
			return err
		}
		if err := authorize(actor, facts, parent, OpCreate); err != nil {
			return err
		}
		if err := checkNameFree(ctx, q, req.ProjectID, req.ParentID, KindFolder, name, ""); err != nil {
			return err
		}

		now := s.clock.Now()
		n := &Node{
			ID:          s.idgen.New(),
			Kind:        KindFolder,
			ProjectID:   req.ProjectID,
			ParentID:    req.ParentID,
			DisplayName: name,
			OwnerID:     actor.UserID,
			Visibility:  VisibilityAll,
			RemoteKey:   folderKey(req.ProjectID, name),
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		n.Versions = []VersionRecord{n.nextVersion(ActionCreate, actor.UserID, now)}
		if err := n.Validate(); err != nil {
			return err
		}
		if err := q.InsertNode(ctx, n); err != nil {
			return fmt.Errorf("inserting folder: %w", err)
		}
		created = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created", "node", created.ID, "project", created.ProjectID, "parent", created.ParentID, "actor", actor.UserID)
	return created, nil
}
