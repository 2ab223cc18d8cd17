package hier

import (
	"context"
	"fmt"
)

// Delete soft-deletes a node: it appends a delete record and marks the node
// inactive. Blobs are left in the store. Folders must be empty.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) (*Node, error) {
	var target *Node
	err := s.database.View(ctx, func(q Queries) error {
		n, err := loadActive(ctx, q, id)
		if err != nil {
			return err
		}
		target = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	facts, err := s.facts(ctx, target.ProjectID, actor)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, facts, target, OpDelete); err != nil {
		return nil, err
	}

	var deleted *Node
	err = s.database.Update(ctx, func(q Queries) error {
		n, err := loadActive(ctx, q, id)
		if err != nil {
			return err
		}
		if n.IsFolder() {
			children, err := q.FindChildren(ctx, n.ProjectID, n.ID)
			if err != nil {
				return fmt.Errorf("listing folder contents: %w", err)
			}
			if len(children) > 0 {
				return fmt.Errorf("%w: folder %s is not empty", ErrInvalidStructure, n.ID)
			}
		}

		now := s.clock.Now()
		v := n.nextVersion(ActionDelete, actor.UserID, now)
		if err := q.AppendVersion(ctx, n.ID, v); err != nil {
			return fmt.Errorf("appending delete record: %w", err)
		}
		n.Active = false
		n.UpdatedAt = now
		if err := q.UpdateNode(ctx, n); err != nil {
			return fmt.Errorf("deactivating node: %w", err)
		}
		n.Versions = append(n.Versions, v)
		deleted = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node deleted", "node", deleted.ID, "kind", string(deleted.Kind), "project", deleted.ProjectID, "actor", actor.UserID)
	return deleted, nil
}
