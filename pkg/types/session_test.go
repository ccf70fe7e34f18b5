package types

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStaticSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	session := StaticSession{
		UserID:      userID,
		Permissions: []string{"Moderation.Manage"},
		Addr:        "10.0.0.1",
	}

	id, ok := session.CurrentUserID(ctx)
	require.True(t, ok)
	require.Equal(t, userID, id)
	require.True(t, session.HasPermission(ctx, PermissionModerationManage))
	require.False(t, session.HasPermission(ctx, "garden.settings.manage"))
	require.False(t, session.Verified(ctx))
	require.Equal(t, "10.0.0.1", session.RemoteAddr(ctx))

	_, ok = StaticSession{}.CurrentUserID(ctx)
	require.False(t, ok)
}

func TestParseForeignType(t *testing.T) {
	ft, ok := ParseForeignType(" ActivityComment ")
	require.True(t, ok)
	require.Equal(t, ForeignTypeActivityComment, ft)

	_, ok = ParseForeignType("poll")
	require.False(t, ok)
}

func TestItemFieldsCoversFieldNames(t *testing.T) {
	fields := Item{Attributes: map[string]any{"source": "import"}}.Fields()
	for _, name := range ItemFieldNames {
		_, ok := fields[name]
		require.True(t, ok, "missing field %s", name)
	}
	require.Equal(t, map[string]any{"source": "import"}, fields["attributes"])
	require.Len(t, fields, len(ItemFieldNames)+1)
}
