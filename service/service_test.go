package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-moderation/command"
	"github.com/goliatone/go-moderation/counts"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/goliatone/go-moderation/query"
	"github.com/goliatone/go-moderation/queue"
	"github.com/goliatone/go-moderation/service"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestService_PremoderateApproveFlow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	author := uuid.New()
	moderator := uuid.New()
	comments := newContentStore()
	discussions := newContentStore()
	discussions.records["42"] = types.Payload{"discussionId": 42, "categoryId": 4}
	countCache := counts.NewMemoryCache(time.Minute)

	var statusEvents []types.StatusEvent
	svc := service.New(service.Config{
		DB: db,
		ContentModels: types.ContentModels{
			Comments:    comments,
			Discussions: discussions,
		},
		Session:     types.StaticSession{UserID: author, Addr: "172.16.0.9"},
		FeatureGate: staticGate{enabled: true},
		Moderator:   moderator,
		CountCache:  countCache,
		Hooks: types.Hooks{
			AfterStatusChange: func(_ context.Context, event types.StatusEvent) {
				statusEvents = append(statusEvents, event)
			},
		},
	})
	require.True(t, svc.Ready())
	require.NoError(t, svc.HealthCheck(ctx))

	held := &command.PremoderateResult{}
	require.NoError(t, svc.Commands().Premoderate.Execute(ctx, command.PremoderateInput{
		RecordType: "Comment",
		Payload: types.Payload{
			"queueName":    "forum",
			"discussionId": "42",
			"body":         "is this spam?",
			"format":       "Text",
		},
		Result: held,
	}))
	require.True(t, held.Held)
	queueID := held.Item.ID

	item, err := svc.Queries().Item.Query(ctx, query.ItemQueryInput{ID: queueID})
	require.NoError(t, err)
	require.Equal(t, "4", item.CategoryID)
	require.Equal(t, "text", item.Format)
	require.Equal(t, author, item.ForeignUserID)
	createdForeignID := item.ForeignID

	before, err := svc.Queries().Counts.Query(ctx, query.CountsQueryInput{Queue: "forum"})
	require.NoError(t, err)
	require.Equal(t, 1, before.Status[types.StatusUnread])
	require.Equal(t, 1, before.Pages)

	review := &command.ReviewResult{}
	require.NoError(t, svc.Commands().Approve.Execute(ctx, command.ApproveInput{ID: queueID, Result: review}))
	require.Equal(t, "1", review.ContentID)

	approved, err := svc.Queries().Item.Query(ctx, query.ItemQueryInput{ID: queueID})
	require.NoError(t, err)
	require.Equal(t, types.StatusApproved, approved.Status)
	require.Equal(t, "C-1", approved.ForeignID)
	require.Equal(t, createdForeignID, approved.PreviousForeignID)
	require.Equal(t, moderator, approved.StatusUserID)
	require.Equal(t, moderator, approved.UpdateUserID)

	published := comments.get("1")
	require.Equal(t, "is this spam?", published["body"])
	require.Equal(t, true, published["approved"])

	again := &command.ReviewResult{}
	require.NoError(t, svc.Commands().Approve.Execute(ctx, command.ApproveInput{ID: queueID, Result: again}))
	require.True(t, again.Skipped)
	require.Equal(t, 1, comments.count())
	require.Len(t, statusEvents, 1)

	cached, err := svc.Queries().Counts.Query(ctx, query.CountsQueryInput{Queue: "forum"})
	require.NoError(t, err)
	require.Equal(t, before, cached)

	countCache.Flush()
	after, err := svc.Queries().Counts.Query(ctx, query.CountsQueryInput{Queue: "forum"})
	require.NoError(t, err)
	require.Equal(t, 1, after.Status[types.StatusApproved])
	require.Equal(t, 0, after.Status[types.StatusUnread])
	require.Equal(t, 1, after.Records)
}

func TestService_DenyDiscussion(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	discussions := newContentStore()
	svc := service.New(service.Config{
		DB:            db,
		ContentModels: types.ContentModels{Discussions: discussions},
		Session:       types.StaticSession{UserID: uuid.New()},
		FeatureGate:   staticGate{enabled: true},
		Moderator:     uuid.New(),
	})

	err := svc.Commands().Premoderate.Execute(ctx, command.PremoderateInput{
		RecordType: "discussion",
		Payload:    types.Payload{"name": "Hello", "body": "first post"},
	})
	require.ErrorIs(t, err, types.ErrMissingRequiredField)

	held := &command.PremoderateResult{}
	require.NoError(t, svc.Commands().Premoderate.Execute(ctx, command.PremoderateInput{
		RecordType: "discussion",
		Payload:    types.Payload{"name": "Hello", "body": "first post", "categoryId": 9},
		Result:     held,
	}))
	require.True(t, held.Held)

	require.NoError(t, svc.Commands().Deny.Execute(ctx, command.DenyInput{ID: held.Item.ID}))
	denied, err := svc.Queries().Item.Query(ctx, query.ItemQueryInput{ID: held.Item.ID})
	require.NoError(t, err)
	require.Equal(t, types.StatusDenied, denied.Status)
	require.Zero(t, discussions.count())
}

func TestService_CachedBulkApprovePublishesOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	comments := newContentStore()
	discussions := newContentStore()
	discussions.records["42"] = types.Payload{"discussionId": 42, "categoryId": 4}
	svc := service.New(service.Config{
		DB:                db,
		RepositoryOptions: []queue.RepositoryOption{queue.WithCache(true)},
		ContentModels:     types.ContentModels{Comments: comments, Discussions: discussions},
		Session:           types.StaticSession{UserID: uuid.New()},
		FeatureGate:       staticGate{enabled: true},
		Moderator:         uuid.New(),
	})

	held := &command.PremoderateResult{}
	require.NoError(t, svc.Commands().Premoderate.Execute(ctx, command.PremoderateInput{
		RecordType: "comment",
		Payload:    types.Payload{"queueName": "forum", "discussionId": "42", "body": "cached"},
		Result:     held,
	}))

	page, err := svc.Queries().List.Query(ctx, query.ListQueryInput{Queue: "forum"})
	require.NoError(t, err)
	require.Equal(t, types.StatusUnread, page.Items[0].Status)

	for range 2 {
		require.NoError(t, svc.Commands().ApproveWhere.Execute(ctx, command.BulkApproveInput{
			BulkInput: command.BulkInput{Filter: types.ItemFilter{Queue: "forum"}},
		}))
	}
	require.Equal(t, 1, comments.count())

	page, err = svc.Queries().List.Query(ctx, query.ListQueryInput{Queue: "forum"})
	require.NoError(t, err)
	require.Equal(t, types.StatusApproved, page.Items[0].Status)
	require.Equal(t, "C-1", page.Items[0].ForeignID)

	stale := page.Items[0]
	stale.Status = types.StatusUnread
	review := &command.ReviewResult{}
	require.NoError(t, svc.Commands().Approve.Execute(ctx, command.ApproveInput{Item: &stale, Result: review}))
	require.True(t, review.Skipped)
	require.Equal(t, 1, comments.count())
}

func TestService_BulkDenyAndListing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	applyDDL(t, db)

	svc := service.New(service.Config{
		DB:            db,
		ContentModels: types.ContentModels{Activities: newContentStore()},
	})
	svc.SetModerator(uuid.New())

	for i := range 3 {
		require.NoError(t, svc.Commands().SaveItem.Execute(ctx, command.SaveItemInput{
			Data: types.Payload{
				"queueName":    "reports",
				"foreignType":  "activity",
				"foreignId":    fmt.Sprintf("imported-%d", i),
				"body":         fmt.Sprintf("post %d", i),
				"dateInserted": time.Date(2024, 1, 1, i, 0, 0, 0, time.UTC),
				"reason":       "flagged",
			},
		}))
	}

	page, err := svc.Queries().List.Query(ctx, query.ListQueryInput{Queue: "reports", Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, "post 2", page.Items[0].Body)

	rows, err := svc.Queries().Rows.Query(ctx, query.RowsQueryInput{Queue: "reports"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "flagged", rows[0]["reason"])
	require.Equal(t, "post 0", rows[0]["body"])

	result := &command.BulkResult{}
	require.NoError(t, svc.Commands().DenyWhere.Execute(ctx, command.BulkDenyInput{
		BulkInput: command.BulkInput{
			Filter: types.ItemFilter{Queue: "reports"},
			Result: result,
		},
	}))
	require.True(t, result.OK)
	require.Equal(t, 3, result.Processed)

	denied, err := svc.Queries().List.Query(ctx, query.ListQueryInput{
		Queue: "reports",
		Where: map[string]any{"status": types.StatusDenied},
	})
	require.NoError(t, err)
	require.Equal(t, 3, denied.Total)
}

func TestService_HealthCheckReportsMissingDependencies(t *testing.T) {
	svc := service.New(service.Config{})
	require.False(t, svc.Ready())
	require.ErrorIs(t, svc.HealthCheck(context.Background()), types.ErrMissingRepository)

	db := newTestDB(t)
	svc = service.New(service.Config{DB: db})
	require.ErrorIs(t, svc.HealthCheck(context.Background()), types.ErrMissingContentModel)
}

func TestService_ModeratorFromSession(t *testing.T) {
	user := uuid.New()
	svc := service.New(service.Config{
		Session: types.StaticSession{UserID: user, Permissions: []string{types.PermissionModerationManage}},
	})
	id, err := svc.Moderator(context.Background())
	require.NoError(t, err)
	require.Equal(t, user, id)

	svc = service.New(service.Config{Session: types.StaticSession{UserID: user}})
	_, err = svc.Moderator(context.Background())
	require.ErrorIs(t, err, types.ErrModeratorNotResolved)
}

type staticGate struct {
	enabled bool
}

func (g staticGate) Enabled(context.Context, string, ...featuregate.ResolveOption) (bool, error) {
	return g.enabled, nil
}

type contentStore struct {
	mu      sync.Mutex
	next    int
	records map[string]types.Payload
}

func newContentStore() *contentStore {
	return &contentStore{records: map[string]types.Payload{}}
}

func (s *contentStore) Create(_ context.Context, payload types.Payload) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.records[fmt.Sprint(s.next)] = payload
	return s.next, nil
}

func (s *contentStore) Lookup(_ context.Context, id string) (types.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id], nil
}

func (s *contentStore) get(id string) types.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *contentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
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
	for _, stmt := range strings.Split(string(content), ";") {
		stmt = strings.TrimSpace(stripComments(stmt))
		if stmt == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func stripComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
