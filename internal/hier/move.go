package hier

import (
	"context"
	"fmt"
)

// Move reparents a node under targetParentID ("" for the project root).
// The item may not be moved into itself or any of its descendants.
func (s *Service) Move(ctx context.Context, actor Actor, id, targetParentID string) (*Node, error) {
	var item *Node
	err := s.database.View(ctx, func(q Queries) error {
		n, err := loadActive(ctx, q, id)
		if err != nil {
			return err
		}
		item = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	facts, err := s.facts(ctx, item.ProjectID, actor)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, facts, item, OpMove); err != nil {
		return nil, err
	}

	var moved *Node
	err = s.database.Update(ctx, func(q Queries) error {
		n, err := loadActive(ctx, q, id)
		if err != nil {
			return err
		}
		if _, err := resolveParent(ctx, q, n.ProjectID, targetParentID); err != nil {
			return err
		}
		if targetParentID == n.ID {
			return fmt.Errorf("%w: %s cannot contain itself", ErrCycleRejected, n.ID)
		}
		if err := checkAncestry(ctx, q, n.ID, targetParentID); err != nil {
			return err
		}
		if err := checkNameFree(ctx, q, n.ProjectID, targetParentID, n.Kind, n.DisplayName, n.ID); err != nil {
			return err
		}

		n.ParentID = targetParentID
		n.UpdatedAt = s.clock.Now()
		if err := q.UpdateNode(ctx, n); err != nil {
			return fmt.Errorf("reparenting node: %w", err)
		}
		moved = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node moved", "node", moved.ID, "parent", moved.ParentID, "project", moved.ProjectID, "actor", actor.UserID)
	return moved, nil
}

// checkAncestry walks from targetID up to the root, one parent at a time,
// and rejects the move if itemID is on the way.
func checkAncestry(ctx context.Context, q Queries, itemID, targetID string) error {
	current := targetID
	for depth := 0; current != ""; depth++ {
		if current == itemID {
			return fmt.Errorf("%w: %s is a descendant of %s", ErrCycleRejected, targetID, itemID)
		}
		if depth >= maxDepth {
			return fmt.Errorf("%w: ancestor chain of %s exceeds %d levels", ErrInvalidStructure, targetID, maxDepth)
		}
		n, err := q.GetNode(ctx, current)
		if err != nil {
			return fmt.Errorf("loading ancestor %s: %w", current, err)
		}
		if n == nil {
			return fmt.Errorf("%w: ancestor %s is missing", ErrInvalidStructure, current)
		}
		current = n.ParentID
	}
	return nil
}
