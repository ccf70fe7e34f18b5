package types

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// StaticSession is a fixed Session used by jobs, imports and tests where no
// request scoped identity exists.
type StaticSession struct {
	UserID      uuid.UUID
	Permissions []string
	IsVerified  bool
	Addr        string
}

var _ Session = StaticSession{}

// CurrentUserID implements Session.
func (s StaticSession) CurrentUserID(context.Context) (uuid.UUID, bool) {
	return s.UserID, s.UserID != uuid.Nil
}

// HasPermission implements Session.
func (s StaticSession) HasPermission(_ context.Context, permission string) bool {
	permission = strings.TrimSpace(permission)
	for _, candidate := range s.Permissions {
		if strings.EqualFold(strings.TrimSpace(candidate), permission) {
			return true
		}
	}
	return false
}

// Verified implements Session.
func (s StaticSession) Verified(context.Context) bool { return s.IsVerified }

// RemoteAddr implements Session.
func (s StaticSession) RemoteAddr(context.Context) string { return s.Addr }
