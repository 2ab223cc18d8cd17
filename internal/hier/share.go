package hier

import (
	"context"
	"fmt"
)

// Share changes who may read a file. It does not add a version record since
// the content is unchanged.
func (s *Service) Share(ctx context.Context, actor Actor, id string, visibility Visibility, sharedWith []string) (*Node, error) {
	visibility, err := ParseVisibility(string(visibility))
	if err != nil {
		return nil, err
	}

	var target *Node
	err = s.database.View(ctx, func(q Queries) error {
		var err error
		target, err = loadActive(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !target.IsFile() {
		return nil, fmt.Errorf("%w: folders are visible to every member", ErrInvalidStructure)
	}

	facts, err := s.facts(ctx, target.ProjectID, actor)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, facts, target, OpShare); err != nil {
		return nil, err
	}

	var shared *Node
	err = s.database.Update(ctx, func(q Queries) error {
		n, err := loadActive(ctx, q, id)
		if err != nil {
			return err
		}
		n.Visibility = visibility
		n.SharedWith = normalizeShares(sharedWith)
		n.UpdatedAt = s.clock.Now()
		if err := q.UpdateNode(ctx, n); err != nil {
			return fmt.Errorf("updating visibility: %w", err)
		}
		shared = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("visibility changed", "node", shared.ID, "visibility", string(shared.Visibility), "shared_with", len(shared.SharedWith), "actor", actor.UserID)
	return shared, nil
}
