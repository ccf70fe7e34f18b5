package queue

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-moderation/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type fixedClock struct {
	t time.Time
}

func (f fixedClock) Now() time.Time { return f.t }

func TestQueueRepository_InsertGetUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: fixedClock{t: now}})
	require.NoError(t, err)

	author := uuid.New()
	created, err := repo.Insert(ctx, types.Item{
		Queue:         "forum",
		ForeignType:   types.ForeignTypeComment,
		ForeignID:     "c-1",
		ForeignUserID: author,
		Body:          "hello",
		Format:        "html",
		DiscussionID:  "10",
		Attributes:    map[string]any{"source": "import"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, types.StatusUnread, created.Status)

	fetched, err := repo.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "forum", fetched.Queue)
	require.Equal(t, author, fetched.ForeignUserID)
	require.Equal(t, map[string]any{"source": "import"}, fetched.Attributes)
	require.True(t, fetched.DateInserted.Equal(now))
	require.Equal(t, uuid.Nil, fetched.StatusUserID)

	fetched.Body = "edited"
	fetched.Attributes = map[string]any{"source": "import", "tag": "spam"}
	updated, err := repo.Update(ctx, *fetched)
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Body)

	reloaded, err := repo.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "edited", reloaded.Body)
	require.Equal(t, map[string]any{"source": "import", "tag": "spam"}, reloaded.Attributes)

	_, err = repo.GetItem(ctx, uuid.New())
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestQueueRepository_TransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: fixedClock{t: now}})
	require.NoError(t, err)

	item, err := repo.Insert(ctx, types.Item{Queue: "forum", ForeignType: types.ForeignTypeDiscussion, ForeignID: "d-1"})
	require.NoError(t, err)

	moderator := uuid.New()
	later := now.Add(time.Hour)
	approved, err := repo.Transition(ctx, types.StatusTransition{
		ItemID:            item.ID,
		From:              types.StatusUnread,
		To:                types.StatusApproved,
		ActorID:           moderator,
		At:                later,
		ForeignID:         "D-44",
		PreviousForeignID: "d-1",
	})
	require.NoError(t, err)
	require.Equal(t, types.StatusApproved, approved.Status)
	require.Equal(t, moderator, approved.StatusUserID)
	require.Equal(t, moderator, approved.UpdateUserID)
	require.Equal(t, "D-44", approved.ForeignID)
	require.Equal(t, "d-1", approved.PreviousForeignID)
	require.True(t, approved.DateStatus.Equal(later))

	_, err = repo.Transition(ctx, types.StatusTransition{
		ItemID:  item.ID,
		From:    types.StatusUnread,
		To:      types.StatusDenied,
		ActorID: uuid.New(),
	})
	require.ErrorIs(t, err, types.ErrConcurrentTransition)

	current, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusApproved, current.Status)
	require.Equal(t, moderator, current.StatusUserID)

	_, err = repo.Transition(ctx, types.StatusTransition{
		ItemID: uuid.New(),
		From:   types.StatusUnread,
		To:     types.StatusDenied,
	})
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestQueueRepository_ListItemsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	for i, foreignType := range []types.ForeignType{
		types.ForeignTypeComment,
		types.ForeignTypeDiscussion,
		types.ForeignTypeComment,
	} {
		_, err := repo.Insert(ctx, types.Item{
			Queue:        "forum",
			ForeignType:  foreignType,
			ForeignID:    "f-" + string(rune('a'+i)),
			DateInserted: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err = repo.Insert(ctx, types.Item{Queue: "other", ForeignType: types.ForeignTypeComment, DateInserted: base})
	require.NoError(t, err)

	items, total, err := repo.ListItems(ctx, types.ItemFilter{Queue: "forum"})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, "f-c", items[0].ForeignID)

	items, total, err = repo.ListItems(ctx, types.ItemFilter{
		Queue: "forum",
		Where: map[string]any{"foreignType": "comment"},
		Order: "asc",
	})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, []string{"f-a", "f-c"}, []string{items[0].ForeignID, items[1].ForeignID})

	items, total, err = repo.ListItems(ctx, types.ItemFilter{
		Queue:      "forum",
		Order:      "asc",
		Pagination: types.Pagination{Limit: 1, Offset: 1},
	})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, items, 1)
	require.Equal(t, "f-b", items[0].ForeignID)

	_, _, err = repo.ListItems(ctx, types.ItemFilter{Queue: "forum", Where: map[string]any{"drop table": 1}})
	require.Error(t, err)

	_, _, err = repo.ListItems(ctx, types.ItemFilter{Queue: "forum", OrderBy: "random()"})
	require.Error(t, err)
}

func TestQueueRepository_StatusCounts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	seed := map[types.Status]int{types.StatusUnread: 3, types.StatusApproved: 2, types.StatusDenied: 1}
	for status, n := range seed {
		for i := 0; i < n; i++ {
			_, err := repo.Insert(ctx, types.Item{Queue: "forum", Status: status, ForeignType: types.ForeignTypeComment})
			require.NoError(t, err)
		}
	}
	_, err = repo.Insert(ctx, types.Item{Queue: "other", ForeignType: types.ForeignTypeComment})
	require.NoError(t, err)

	counts, err := repo.StatusCounts(ctx, "forum", nil)
	require.NoError(t, err)
	require.Equal(t, seed, counts)

	counts, err = repo.StatusCounts(ctx, "forum", map[string]any{"status": types.StatusDenied})
	require.NoError(t, err)
	require.Equal(t, map[types.Status]int{types.StatusDenied: 1}, counts)
}

func TestQueueRepository_CacheWrapsListings(t *testing.T) {
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db}, WithCache(true))
	require.NoError(t, err)

	_, ok := repo.cached.(*repositorycache.CachedRepository[*Record])
	require.True(t, ok)
	_, ok = repo.store.(*repositorycache.CachedRepository[*Record])
	require.False(t, ok)
	require.NotNil(t, repo.db)
}

func TestQueueRepository_CachedListingsFollowWrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	repo, err := NewRepository(RepositoryConfig{DB: db}, WithCache(true))
	require.NoError(t, err)

	item, err := repo.Insert(ctx, types.Item{Queue: "forum", ForeignType: types.ForeignTypeComment, Body: "one"})
	require.NoError(t, err)

	filter := types.ItemFilter{Queue: "forum", Where: map[string]any{"status": types.StatusUnread}}
	listed, total, err := repo.ListItems(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, listed, 1)

	_, err = repo.Transition(ctx, types.StatusTransition{
		ItemID: item.ID,
		From:   types.StatusUnread,
		To:     types.StatusApproved,
	})
	require.NoError(t, err)

	listed, total, err = repo.ListItems(ctx, filter)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, listed)

	_, err = repo.Insert(ctx, types.Item{Queue: "forum", ForeignType: types.ForeignTypeComment, Body: "two"})
	require.NoError(t, err)
	filter.Fresh = true
	listed, total, err = repo.ListItems(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "two", listed[0].Body)

	_, err = repo.Transition(ctx, types.StatusTransition{
		ItemID: item.ID,
		From:   types.StatusUnread,
		To:     types.StatusDenied,
	})
	require.ErrorIs(t, err, types.ErrConcurrentTransition)
	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusApproved, stored.Status)
}

func TestQueueRepository_RequiresStore(t *testing.T) {
	_, err := NewRepository(RepositoryConfig{})
	require.Error(t, err)

	db := newTestDB(t)
	repo, err := NewRepository(RepositoryConfig{Repository: newRecordRepository(db)})
	require.NoError(t, err)
	var _ repository.Repository[*Record] = repo.store
}

func newTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyDDL(t *testing.T, db *bun.DB) {
	content, err := os.ReadFile("../data/sql/migrations/sqlite/000001_moderation_queue.sql")
	require.NoError(t, err)
	for _, stmt := range splitStatements(string(content)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}
