package command

import (
	"context"
	"sync"

	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
)

// ModeratorResolver determines who is acting on queue items. Resolution
// order: the explicit id supplied with a command, the configured moderator,
// then the session user when it holds the moderation permission.
type ModeratorResolver struct {
	session    types.Session
	permission string

	mu         sync.RWMutex
	configured uuid.UUID
}

// NewModeratorResolver builds a resolver over the session. An empty
// permission defaults to types.PermissionModerationManage.
func NewModeratorResolver(session types.Session, permission string) *ModeratorResolver {
	if permission == "" {
		permission = types.PermissionModerationManage
	}
	return &ModeratorResolver{session: session, permission: permission}
}

// SetModerator configures the moderator used when commands do not supply
// one. uuid.Nil clears it.
func (r *ModeratorResolver) SetModerator(id uuid.UUID) {
	r.mu.Lock()
	r.configured = id
	r.mu.Unlock()
}

// Moderator returns the configured moderator, if any.
func (r *ModeratorResolver) Moderator() uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configured
}

// Resolve returns the acting moderator or types.ErrModeratorNotResolved.
func (r *ModeratorResolver) Resolve(ctx context.Context, explicit uuid.UUID) (uuid.UUID, error) {
	if explicit != uuid.Nil {
		return explicit, nil
	}
	if r == nil {
		return uuid.Nil, types.ErrModeratorNotResolved
	}
	if configured := r.Moderator(); configured != uuid.Nil {
		return configured, nil
	}
	if r.session != nil {
		if id, ok := r.session.CurrentUserID(ctx); ok && id != uuid.Nil && r.session.HasPermission(ctx, r.permission) {
			return id, nil
		}
	}
	return uuid.Nil, types.ErrModeratorNotResolved
}
