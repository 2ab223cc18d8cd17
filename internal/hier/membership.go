package hier

import "context"

// MembershipOracle answers project membership questions.
type MembershipOracle interface {
	ProjectExists(ctx context.Context, projectID string) (bool, error)
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	IsOwner(ctx context.Context, projectID, userID string) (bool, error)
}
