package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-moderation/attributes"
	"github.com/goliatone/go-moderation/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	defaultOrderBy = "dateInserted"
	tableName      = "moderation_queue"
)

// RepositoryConfig wires the Bun-backed queue repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
	Codec      *attributes.Codec
}

// Repository implements types.QueueRepository using Bun. Writes go through
// the cached repository when listing cache is enabled so cached listings
// are invalidated; item reads always use the uncached store.
type Repository struct {
	store  repository.Repository[*Record]
	cached repository.Repository[*Record]
	db     *bun.DB
	clock  types.Clock
	idGen  types.IDGenerator
	codec  *attributes.Codec
}

// NewRepository constructs the default queue repository.
func NewRepository(cfg RepositoryConfig, opts ...RepositoryOption) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("queue: db or repository required")
	}
	options := applyRepositoryOptions(opts)
	store := cfg.Repository
	if store == nil {
		store = newRecordRepository(cfg.DB)
	}
	cached := store
	if _, ok := store.(*repositorycache.CachedRepository[*Record]); ok {
		if cfg.DB != nil {
			store = newRecordRepository(cfg.DB)
		}
	} else if options.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		if options.CacheConfig != nil {
			cacheCfg = *options.CacheConfig
		}
		cacheService, err := cache.NewCacheService(cacheCfg)
		if err != nil {
			return nil, fmt.Errorf("queue: cache service: %w", err)
		}
		cached = repositorycache.New(store, cacheService, cache.NewDefaultKeySerializer())
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	codec := cfg.Codec
	if codec == nil {
		codec = attributes.NewCodec(0)
	}
	db := cfg.DB
	if db == nil {
		if withDB, ok := store.(interface{ DB() *bun.DB }); ok {
			db = withDB.DB()
		}
	}
	return &Repository{
		store:  store,
		cached: cached,
		db:     db,
		clock:  clock,
		idGen:  idGen,
		codec:  codec,
	}, nil
}

func newRecordRepository(db *bun.DB) repository.Repository[*Record] {
	return repository.NewRepository(db, repository.ModelHandlers[*Record]{
		NewRecord: func() *Record { return &Record{} },
		GetID: func(rec *Record) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.ID
		},
		SetID: func(rec *Record, id uuid.UUID) {
			if rec != nil {
				rec.ID = id
			}
		},
	})
}

var _ types.QueueRepository = (*Repository)(nil)

// Insert persists a new queue item.
func (r *Repository) Insert(ctx context.Context, item types.Item) (*types.Item, error) {
	if strings.TrimSpace(item.Queue) == "" {
		return nil, fmt.Errorf("%w: queueName", types.ErrMissingRequiredField)
	}
	if item.Status == "" {
		item.Status = types.StatusUnread
	}
	if !item.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidStatus, item.Status)
	}
	if item.ID == uuid.Nil {
		item.ID = r.idGen.UUID()
	}
	if item.DateInserted.IsZero() {
		item.DateInserted = r.clock.Now()
	}
	rec, err := fromDomain(item, r.codec)
	if err != nil {
		return nil, err
	}
	created, err := r.cached.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return toDomain(created, r.codec), nil
}

// Update overwrites an existing queue item.
func (r *Repository) Update(ctx context.Context, item types.Item) (*types.Item, error) {
	if item.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: queueId", types.ErrMissingRequiredField)
	}
	if !item.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidStatus, item.Status)
	}
	rec, err := fromDomain(item, r.codec)
	if err != nil {
		return nil, err
	}
	updated, err := r.cached.Update(ctx, rec)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return toDomain(updated, r.codec), nil
}

// Transition moves an item out of transition.From. The update only applies
// while the stored status still equals From; otherwise
// types.ErrConcurrentTransition is returned.
func (r *Repository) Transition(ctx context.Context, transition types.StatusTransition) (*types.Item, error) {
	if transition.ItemID == uuid.Nil {
		return nil, fmt.Errorf("%w: queueId", types.ErrMissingRequiredField)
	}
	if !transition.To.Valid() || !transition.From.Valid() {
		return nil, fmt.Errorf("%w: %q -> %q", types.ErrInvalidStatus, transition.From, transition.To)
	}
	at := transition.At
	if at.IsZero() {
		at = r.clock.Now()
	}
	rec := &Record{
		ID:           transition.ItemID,
		Status:       string(transition.To),
		StatusUserID: transition.ActorID,
		DateStatus:   &at,
		UpdateUserID: transition.ActorID,
		DateUpdated:  &at,
	}
	cols := []string{"status", "status_user_id", "date_status", "update_user_id", "date_updated"}
	if transition.ForeignID != "" {
		rec.ForeignID = transition.ForeignID
		rec.PreviousForeignID = transition.PreviousForeignID
		cols = append(cols, "foreign_id", "previous_foreign_id")
	}
	from := string(transition.From)
	_, err := r.cached.Update(ctx, rec, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Column(cols...).Where("status = ?", from)
	})
	if err != nil {
		if !repository.IsSQLExpectedCountViolation(err) {
			return nil, err
		}
		if _, getErr := r.GetItem(ctx, transition.ItemID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: %s", types.ErrConcurrentTransition, transition.ItemID)
	}
	return r.GetItem(ctx, transition.ItemID)
}

// GetItem returns the queue item by id or types.ErrNotFound.
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*types.Item, error) {
	if id == uuid.Nil {
		return nil, types.ErrNotFound
	}
	rec, err := r.store.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return toDomain(rec, r.codec), nil
}

// ListItems returns a page of items matching the filter and the total
// number of matches.
func (r *Repository) ListItems(ctx context.Context, filter types.ItemFilter) ([]types.Item, int, error) {
	where, err := whereCriteria(filter.Queue, filter.Where)
	if err != nil {
		return nil, 0, err
	}
	order, err := orderCriteria(filter.OrderBy, filter.Order)
	if err != nil {
		return nil, 0, err
	}
	criteria := []repository.SelectCriteria{where, order}
	if filter.Pagination.Limit > 0 || filter.Pagination.Offset > 0 {
		page := filter.Pagination
		criteria = append(criteria, func(q *bun.SelectQuery) *bun.SelectQuery {
			if page.Limit > 0 {
				q = q.Limit(page.Limit)
			}
			if page.Offset > 0 {
				q = q.Offset(page.Offset)
			}
			return q
		})
	}

	lister := r.cached
	if filter.Fresh {
		lister = r.store
	}
	records, total, err := lister.List(ctx, criteria...)
	if err != nil {
		return nil, 0, err
	}
	items := make([]types.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, *toDomain(rec, r.codec))
	}
	return items, total, nil
}

// StatusCounts aggregates matching items grouped by status.
func (r *Repository) StatusCounts(ctx context.Context, queue string, where map[string]any) (map[types.Status]int, error) {
	criteria, err := whereCriteria(queue, where)
	if err != nil {
		return nil, err
	}
	out := make(map[types.Status]int, len(types.Statuses()))
	if r.db == nil {
		records, _, err := r.store.List(ctx, criteria)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			out[types.Status(rec.Status)]++
		}
		return out, nil
	}

	query := r.db.NewSelect().
		Table(tableName).
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("status").
		Group("status")
	query = criteria(query)

	type row struct {
		Status string `bun:"status"`
		Total  int    `bun:"total"`
	}
	var rows []row
	if err := query.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	for _, rec := range rows {
		out[types.Status(rec.Status)] = rec.Total
	}
	return out, nil
}

func whereCriteria(queue string, where map[string]any) (repository.SelectCriteria, error) {
	type clause struct {
		column string
		value  any
	}
	clauses := make([]clause, 0, len(where)+1)
	if queue = strings.TrimSpace(queue); queue != "" {
		clauses = append(clauses, clause{column: "queue_name", value: queue})
	}
	for field, value := range where {
		column, ok := Column(field)
		if !ok {
			return nil, fmt.Errorf("queue: unknown filter field %q", field)
		}
		if column == "queue_name" && queue != "" {
			continue
		}
		clauses = append(clauses, clause{column: column, value: value})
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, c := range clauses {
			switch value := c.value.(type) {
			case nil:
				q = q.Where("? IS NULL", bun.Ident(c.column))
			case []string:
				q = q.Where("? IN (?)", bun.Ident(c.column), bun.In(value))
			case []any:
				q = q.Where("? IN (?)", bun.Ident(c.column), bun.In(value))
			case []types.Status:
				q = q.Where("? IN (?)", bun.Ident(c.column), bun.In(value))
			case types.Status:
				q = q.Where("? = ?", bun.Ident(c.column), string(value))
			case types.ForeignType:
				q = q.Where("? = ?", bun.Ident(c.column), string(value))
			default:
				q = q.Where("? = ?", bun.Ident(c.column), value)
			}
		}
		return q
	}, nil
}

func orderCriteria(orderBy, order string) (repository.SelectCriteria, error) {
	field := strings.TrimSpace(orderBy)
	if field == "" {
		field = defaultOrderBy
	}
	column, ok := Column(field)
	if !ok {
		return nil, fmt.Errorf("queue: unknown order field %q", orderBy)
	}
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(order), "asc") {
		direction = "ASC"
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("? "+direction, bun.Ident(column)).
			OrderExpr("? "+direction, bun.Ident("id"))
	}, nil
}
