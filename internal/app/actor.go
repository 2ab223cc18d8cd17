package app

import (
	"fmt"
	"strings"

	"docshare/internal/config"
	"docshare/internal/hier"
)

// ResolveActor picks the identity a command runs as. An explicit user id
// replaces the configured identity, role included: --as alone acts as a
// plain user.
func ResolveActor(identity config.IdentityConfig, as, role string) (hier.Actor, error) {
	userID := strings.TrimSpace(as)
	if userID == "" {
		userID = strings.TrimSpace(identity.UserID)
		if role == "" {
			role = identity.Role
		}
	}
	if userID == "" {
		return hier.Actor{}, fmt.Errorf("%w: no user id (pass --as or set [identity] user_id)", hier.ErrInvalidArgument)
	}

	r, err := hier.ParseRole(role)
	if err != nil {
		return hier.Actor{}, err
	}
	return hier.Actor{UserID: userID, Role: r}, nil
}
