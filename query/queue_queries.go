package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-moderation/attributes"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
)

// DefaultPageSize is the listing page size when none is requested.
const DefaultPageSize = 30

type itemReader interface {
	GetItem(ctx context.Context, id uuid.UUID) (*types.Item, error)
	ListItems(ctx context.Context, filter types.ItemFilter) ([]types.Item, int, error)
}

type countReader interface {
	Get(ctx context.Context, queue string, where map[string]any, pageSize int) (types.QueueCounts, error)
}

// ItemQueryInput identifies a queue item.
type ItemQueryInput struct {
	ID uuid.UUID
}

// ItemQuery loads one queue item with its attributes.
type ItemQuery struct {
	repo itemReader
}

// NewItemQuery constructs the item query.
func NewItemQuery(repo itemReader) *ItemQuery {
	return &ItemQuery{repo: repo}
}

var _ gocommand.Querier[ItemQueryInput, *types.Item] = (*ItemQuery)(nil)

// Query returns the item or types.ErrNotFound.
func (q *ItemQuery) Query(ctx context.Context, input ItemQueryInput) (*types.Item, error) {
	if q.repo == nil {
		return nil, types.ErrMissingRepository
	}
	if input.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: queueId", types.ErrMissingRequiredField)
	}
	item, err := q.repo.GetItem(ctx, input.ID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: queue item %s", types.ErrNotFound, input.ID)
		}
		return nil, err
	}
	return item, nil
}

// ListQueryInput pages through one queue. Page is 1-based.
type ListQueryInput struct {
	Queue   string
	Page    int
	Limit   int
	Where   map[string]any
	OrderBy string
	Order   string
}

// ListPage is a page of queue items.
type ListPage struct {
	Items []types.Item
	Total int
	Page  int
	Limit int
}

// ListQuery lists queue items newest first unless asked otherwise.
type ListQuery struct {
	repo itemReader
}

// NewListQuery constructs the listing query.
func NewListQuery(repo itemReader) *ListQuery {
	return &ListQuery{repo: repo}
}

var _ gocommand.Querier[ListQueryInput, ListPage] = (*ListQuery)(nil)

// Query returns the requested page.
func (q *ListQuery) Query(ctx context.Context, input ListQueryInput) (ListPage, error) {
	if q.repo == nil {
		return ListPage{}, types.ErrMissingRepository
	}
	if strings.TrimSpace(input.Queue) == "" {
		return ListPage{}, fmt.Errorf("%w: queueName", types.ErrMissingRequiredField)
	}
	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	orderBy := input.OrderBy
	if orderBy == "" {
		orderBy = "dateInserted"
	}
	order := "desc"
	if strings.EqualFold(strings.TrimSpace(input.Order), "asc") {
		order = "asc"
	}

	items, total, err := q.repo.ListItems(ctx, types.ItemFilter{
		Queue:   input.Queue,
		Where:   input.Where,
		OrderBy: orderBy,
		Order:   order,
		Pagination: types.Pagination{
			Limit:  limit,
			Offset: (page - 1) * limit,
		},
	})
	if err != nil {
		return ListPage{}, err
	}
	return ListPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// RowsQueryInput selects rows by equality filter.
type RowsQueryInput struct {
	Queue   string
	Where   map[string]any
	OrderBy string
	Order   string
	Limit   int
	Offset  int
}

// RowsQuery returns queue rows as flat maps with their attributes merged in,
// the shape consumed by exports and templates.
type RowsQuery struct {
	repo  itemReader
	codec *attributes.Codec
}

// NewRowsQuery constructs the flattened row query.
func NewRowsQuery(repo itemReader, codec *attributes.Codec) *RowsQuery {
	if codec == nil {
		codec = attributes.NewCodec(attributes.DefaultMaxAttributes)
	}
	return &RowsQuery{repo: repo, codec: codec}
}

var _ gocommand.Querier[RowsQueryInput, []map[string]any] = (*RowsQuery)(nil)

// Query returns the matching rows. Rows default to ascending insert order.
func (q *RowsQuery) Query(ctx context.Context, input RowsQueryInput) ([]map[string]any, error) {
	if q.repo == nil {
		return nil, types.ErrMissingRepository
	}
	order := input.Order
	if order == "" {
		order = "asc"
	}
	items, _, err := q.repo.ListItems(ctx, types.ItemFilter{
		Queue:      input.Queue,
		Where:      input.Where,
		OrderBy:    input.OrderBy,
		Order:      order,
		Pagination: types.Pagination{Limit: input.Limit, Offset: input.Offset},
	})
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, q.codec.Decode(item.Fields()))
	}
	return rows, nil
}

// CountsQueryInput selects the queue to count.
type CountsQueryInput struct {
	Queue    string
	Where    map[string]any
	PageSize int
}

// CountsQuery returns per-status counts, served from the count cache when
// fresh.
type CountsQuery struct {
	counts countReader
}

// NewCountsQuery constructs the counts query.
func NewCountsQuery(counts countReader) *CountsQuery {
	return &CountsQuery{counts: counts}
}

var _ gocommand.Querier[CountsQueryInput, types.QueueCounts] = (*CountsQuery)(nil)

// Query returns the counts snapshot.
func (q *CountsQuery) Query(ctx context.Context, input CountsQueryInput) (types.QueueCounts, error) {
	if q.counts == nil {
		return types.QueueCounts{}, types.ErrMissingRepository
	}
	if strings.TrimSpace(input.Queue) == "" {
		return types.QueueCounts{}, fmt.Errorf("%w: queueName", types.ErrMissingRequiredField)
	}
	return q.counts.Get(ctx, input.Queue, input.Where, input.PageSize)
}

// StatusesQueryInput is empty; statuses are a closed set.
type StatusesQueryInput struct{}

// StatusesQuery lists the queue statuses.
type StatusesQuery struct{}

// NewStatusesQuery constructs the statuses query.
func NewStatusesQuery() *StatusesQuery {
	return &StatusesQuery{}
}

var _ gocommand.Querier[StatusesQueryInput, []types.Status] = (*StatusesQuery)(nil)

// Query returns the statuses in display order.
func (q *StatusesQuery) Query(context.Context, StatusesQueryInput) ([]types.Status, error) {
	return types.Statuses(), nil
}
