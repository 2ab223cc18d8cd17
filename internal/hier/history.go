package hier

import (
	"context"
	"fmt"
)

// History returns every version record of a node, oldest first. Soft-deleted
// nodes stay queryable; access is judged against their last known owner and
// visibility.
func (s *Service) History(ctx context.Context, actor Actor, id string) ([]VersionRecord, error) {
	var n *Node
	err := s.database.View(ctx, func(q Queries) error {
		var err error
		n, err = q.GetNode(ctx, id)
		if err != nil {
			return fmt.Errorf("loading node %s: %w", id, err)
		}
		if n == nil {
			return fmt.Errorf("%w: node %s", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	facts, err := s.facts(ctx, n.ProjectID, actor)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, facts, n, OpRead); err != nil {
		return nil, err
	}

	history := make([]VersionRecord, len(n.Versions))
	copy(history, n.Versions)
	return history, nil
}
