package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestModeratorResolver_Order(t *testing.T) {
	ctx := context.Background()
	sessionUser := uuid.New()
	session := types.StaticSession{UserID: sessionUser, Permissions: []string{types.PermissionModerationManage}}
	resolver := NewModeratorResolver(session, "")

	id, err := resolver.Resolve(ctx, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, sessionUser, id)

	configured := uuid.New()
	resolver.SetModerator(configured)
	id, err = resolver.Resolve(ctx, uuid.Nil)
	require.NoError(t, err)
	require.Equal(t, configured, id)

	explicit := uuid.New()
	id, err = resolver.Resolve(ctx, explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, id)

	resolver.SetModerator(uuid.Nil)
	require.Equal(t, uuid.Nil, resolver.Moderator())
}

func TestModeratorResolver_RequiresPermission(t *testing.T) {
	resolver := NewModeratorResolver(types.StaticSession{UserID: uuid.New()}, "")
	_, err := resolver.Resolve(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, types.ErrModeratorNotResolved)

	var nilResolver *ModeratorResolver
	_, err = nilResolver.Resolve(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, types.ErrModeratorNotResolved)
}
