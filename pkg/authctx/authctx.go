package authctx

import (
	"context"
	"strconv"
	"strings"
	"sync"

	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
)

const (
	textCodeActorMissing = "ACTOR_CONTEXT_MISSING"
	textCodeActorInvalid = "ACTOR_CONTEXT_INVALID"

	// MetadataVerified is the actor metadata key carrying the verified flag.
	MetadataVerified = "verified"
	// MetadataRemoteAddr is the actor metadata key carrying the client address.
	MetadataRemoteAddr = "remote_addr"
)

// DefaultModeratorRoles hold the moderation permission unless overridden.
var DefaultModeratorRoles = []string{"admin", "owner", "moderator"}

// ResolveActorContext returns the actor metadata stored by go-auth middleware
// or rebuilds it from JWT claims when the ContextEnricher hook was not
// configured.
func ResolveActorContext(ctx context.Context) (*auth.ActorContext, error) {
	if ctx == nil {
		return nil, errors.New("go-moderation: missing request context", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode(textCodeActorMissing)
	}

	if actor, ok := auth.ActorFromContext(ctx); ok && actor != nil {
		return actor, nil
	}

	if claims, ok := auth.GetClaims(ctx); ok && claims != nil {
		if actor := auth.ActorContextFromClaims(claims); actor != nil {
			return actor, nil
		}
	}

	return nil, errors.New("go-moderation: auth actor context not found on request", errors.CategoryAuth).
		WithCode(errors.CodeUnauthorized).
		WithTextCode(textCodeActorMissing)
}

// ActorID parses the actor id carried by the auth payload.
func ActorID(actor *auth.ActorContext) (uuid.UUID, error) {
	if actor == nil || actor.ActorID == "" {
		return uuid.Nil, errors.New("go-moderation: actor context missing actor_id", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode(textCodeActorInvalid)
	}
	id, err := uuid.Parse(actor.ActorID)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryAuth, "go-moderation: invalid actor_id on auth context").
			WithCode(errors.CodeUnauthorized).
			WithTextCode(textCodeActorInvalid)
	}
	return id, nil
}

// Session adapts go-auth request contexts to types.Session. Permissions are
// granted per actor role.
type Session struct {
	mu    sync.RWMutex
	roles map[string]map[string]struct{}
}

// SessionOption customizes the session adapter.
type SessionOption func(*Session)

// WithRolePermissions grants permissions to a role, replacing its defaults.
func WithRolePermissions(role string, permissions ...string) SessionOption {
	return func(s *Session) {
		s.grant(role, true, permissions...)
	}
}

// NewSession builds the adapter. DefaultModeratorRoles receive
// types.PermissionModerationManage unless an option redefines them.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{roles: map[string]map[string]struct{}{}}
	for _, role := range DefaultModeratorRoles {
		s.grant(role, false, types.PermissionModerationManage)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ types.Session = (*Session)(nil)

func (s *Session) grant(role string, replace bool, permissions ...string) {
	role = normalize(role)
	if role == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.roles[role]
	if set == nil || replace {
		set = map[string]struct{}{}
	}
	for _, permission := range permissions {
		if permission = normalize(permission); permission != "" {
			set[permission] = struct{}{}
		}
	}
	s.roles[role] = set
}

// CurrentUserID implements types.Session.
func (s *Session) CurrentUserID(ctx context.Context) (uuid.UUID, bool) {
	actor, err := ResolveActorContext(ctx)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := ActorID(actor)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// HasPermission implements types.Session.
func (s *Session) HasPermission(ctx context.Context, permission string) bool {
	actor, err := ResolveActorContext(ctx)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[normalize(actor.Role)][normalize(permission)]
	return ok
}

// Verified implements types.Session using the actor metadata flag.
func (s *Session) Verified(ctx context.Context) bool {
	actor, err := ResolveActorContext(ctx)
	if err != nil {
		return false
	}
	switch value := actor.Metadata[MetadataVerified].(type) {
	case bool:
		return value
	case string:
		verified, _ := strconv.ParseBool(strings.TrimSpace(value))
		return verified
	default:
		return false
	}
}

// RemoteAddr implements types.Session.
func (s *Session) RemoteAddr(ctx context.Context) string {
	actor, err := ResolveActorContext(ctx)
	if err != nil {
		return ""
	}
	addr, _ := actor.Metadata[MetadataRemoteAddr].(string)
	return strings.TrimSpace(addr)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
