package hier

import (
	"context"
	"fmt"
)

// List returns the active nodes directly under parentID ("" for the project
// root) that the actor may read, folders first and then by name.
func (s *Service) List(ctx context.Context, actor Actor, projectID, parentID string) ([]*Node, error) {
	facts, err := s.facts(ctx, projectID, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !facts.Member {
		return nil, fmt.Errorf("%w: %s is not a member of %s", ErrForbidden, actor.UserID, projectID)
	}

	var visible []*Node
	err = s.database.View(ctx, func(q Queries) error {
		parent, err := resolveParent(ctx, q, projectID, parentID)
		if err != nil {
			return err
		}
		if parent != nil {
			if err := authorize(actor, facts, parent, OpRead); err != nil {
				return err
			}
		}

		children, err := q.FindChildren(ctx, projectID, parentID)
		if err != nil {
			return fmt.Errorf("listing children: %w", err)
		}
		for _, child := range children {
			if Authorize(actor, facts, child, OpRead) {
				visible = append(visible, child)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortListing(visible)
	return visible, nil
}

// Get returns a single active node the actor may read.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*Node, error) {
	var n *Node
	err := s.database.View(ctx, func(q Queries) error {
		var err error
		n, err = loadActive(ctx, q, id)
		return err
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
	return n, nil
}
