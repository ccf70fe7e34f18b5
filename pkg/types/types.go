package types

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the moderation state of a queue item.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Statuses returns the closed set of queue statuses in display order.
func Statuses() []Status {
	return []Status{StatusUnread, StatusApproved, StatusDenied}
}

// Valid reports whether the status belongs to the closed enum.
func (s Status) Valid() bool {
	switch s {
	case StatusUnread, StatusApproved, StatusDenied:
		return true
	default:
		return false
	}
}

// ForeignType identifies the kind of content a queue item represents.
type ForeignType string

const (
	ForeignTypeComment         ForeignType = "comment"
	ForeignTypeDiscussion      ForeignType = "discussion"
	ForeignTypeActivity        ForeignType = "activity"
	ForeignTypeActivityComment ForeignType = "activitycomment"
)

// ForeignTypes returns every supported foreign type.
func ForeignTypes() []ForeignType {
	return []ForeignType{
		ForeignTypeComment,
		ForeignTypeDiscussion,
		ForeignTypeActivity,
		ForeignTypeActivityComment,
	}
}

// ParseForeignType normalizes a record type name (case insensitive) into a
// ForeignType. The boolean is false for unknown names.
func ParseForeignType(name string) (ForeignType, bool) {
	candidate := ForeignType(strings.ToLower(strings.TrimSpace(name)))
	for _, t := range ForeignTypes() {
		if t == candidate {
			return t, true
		}
	}
	return "", false
}

const (
	// DefaultQueue is used when a payload does not name its queue.
	DefaultQueue = "premoderation"
	// DefaultFormat is the input format assumed when none is supplied.
	DefaultFormat = "html"
	// ActivityTypeWallPost tags queued activity posts.
	ActivityTypeWallPost = "WallPost"
	// NotifyPublic marks activity notifications as public.
	NotifyPublic = "public"
	// PermissionModerationManage is required for session users acting as moderators.
	PermissionModerationManage = "moderation.manage"
	// FeatureApprovalRequired gates mandatory approval of unverified users.
	FeatureApprovalRequired = "moderation.approval_required"
)

// Payload is an open content record exchanged with content models and
// premoderation callers. Keys use the camelCase field names listed in
// ItemFieldNames plus the content specific keys (story, commentId).
type Payload map[string]any

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Item is a single moderation queue row. Attributes carries the overflow
// key/value pairs that do not map onto a fixed column.
type Item struct {
	ID                uuid.UUID      `json:"queueId" mapstructure:"queueId"`
	Queue             string         `json:"queueName" mapstructure:"queueName"`
	Status            Status         `json:"status" mapstructure:"status"`
	ForeignType       ForeignType    `json:"foreignType" mapstructure:"foreignType"`
	ForeignID         string         `json:"foreignId" mapstructure:"foreignId"`
	PreviousForeignID string         `json:"previousForeignId" mapstructure:"previousForeignId"`
	ForeignUserID     uuid.UUID      `json:"foreignUserId" mapstructure:"foreignUserId"`
	ForeignIPAddress  string         `json:"foreignIpAddress" mapstructure:"foreignIpAddress"`
	Body              string         `json:"body" mapstructure:"body"`
	Format            string         `json:"format" mapstructure:"format"`
	DiscussionID      string         `json:"discussionId" mapstructure:"discussionId"`
	CategoryID        string         `json:"categoryId" mapstructure:"categoryId"`
	Name              string         `json:"name" mapstructure:"name"`
	Announce          bool           `json:"announce" mapstructure:"announce"`
	HeadlineFormat    string         `json:"headlineFormat" mapstructure:"headlineFormat"`
	RegardingUserID   uuid.UUID      `json:"regardingUserId" mapstructure:"regardingUserId"`
	ActivityUserID    uuid.UUID      `json:"activityUserId" mapstructure:"activityUserId"`
	ActivityType      string         `json:"activityType" mapstructure:"activityType"`
	ActivityID        string         `json:"activityId" mapstructure:"activityId"`
	NotifyUserID      string         `json:"notifyUserId" mapstructure:"notifyUserId"`
	Attributes        map[string]any `json:"-" mapstructure:"-"`
	StatusUserID      uuid.UUID      `json:"statusUserId" mapstructure:"statusUserId"`
	DateStatus        time.Time      `json:"dateStatus" mapstructure:"dateStatus"`
	InsertUserID      uuid.UUID      `json:"insertUserId" mapstructure:"insertUserId"`
	InsertIPAddress   string         `json:"insertIpAddress" mapstructure:"insertIpAddress"`
	DateInserted      time.Time      `json:"dateInserted" mapstructure:"dateInserted"`
	UpdateUserID      uuid.UUID      `json:"updateUserId" mapstructure:"updateUserId"`
	DateUpdated       time.Time      `json:"dateUpdated" mapstructure:"dateUpdated"`
}

// ItemFieldNames lists the fixed queue schema fields. Payload keys outside
// this list are stored as attributes.
var ItemFieldNames = []string{
	"queueId",
	"queueName",
	"status",
	"foreignType",
	"foreignId",
	"previousForeignId",
	"foreignUserId",
	"foreignIpAddress",
	"body",
	"format",
	"discussionId",
	"categoryId",
	"name",
	"announce",
	"headlineFormat",
	"regardingUserId",
	"activityUserId",
	"activityType",
	"activityId",
	"notifyUserId",
	"statusUserId",
	"dateStatus",
	"insertUserId",
	"insertIpAddress",
	"dateInserted",
	"updateUserId",
	"dateUpdated",
}

// Fields returns the item as a flat map keyed by ItemFieldNames. Attributes
// are returned under the "attributes" key so callers can flatten them with
// the attribute codec.
func (i Item) Fields() map[string]any {
	fields := map[string]any{
		"queueId":           i.ID,
		"queueName":         i.Queue,
		"status":            i.Status,
		"foreignType":       i.ForeignType,
		"foreignId":         i.ForeignID,
		"previousForeignId": i.PreviousForeignID,
		"foreignUserId":     i.ForeignUserID,
		"foreignIpAddress":  i.ForeignIPAddress,
		"body":              i.Body,
		"format":            i.Format,
		"discussionId":      i.DiscussionID,
		"categoryId":        i.CategoryID,
		"name":              i.Name,
		"announce":          i.Announce,
		"headlineFormat":    i.HeadlineFormat,
		"regardingUserId":   i.RegardingUserID,
		"activityUserId":    i.ActivityUserID,
		"activityType":      i.ActivityType,
		"activityId":        i.ActivityID,
		"notifyUserId":      i.NotifyUserID,
		"statusUserId":      i.StatusUserID,
		"dateStatus":        i.DateStatus,
		"insertUserId":      i.InsertUserID,
		"insertIpAddress":   i.InsertIPAddress,
		"dateInserted":      i.DateInserted,
		"updateUserId":      i.UpdateUserID,
		"dateUpdated":       i.DateUpdated,
	}
	if len(i.Attributes) > 0 {
		fields["attributes"] = CloneMap(i.Attributes)
	}
	return fields
}

// ItemFilter narrows queue lookups. Queue is applied when set; Where holds
// equality filters keyed by ItemFieldNames.
type ItemFilter struct {
	Queue      string
	Where      map[string]any
	OrderBy    string
	Order      string
	Pagination Pagination
	// Fresh bypasses any listing cache.
	Fresh bool
}

// Pagination supports paged queue listings.
type Pagination struct {
	Limit  int
	Offset int
}

// QueueCounts summarizes item counts per status for a queue.
type QueueCounts struct {
	Status   map[Status]int `json:"status"`
	Records  int            `json:"records"`
	PageSize int            `json:"pageSize"`
	Pages    int            `json:"pages"`
}

// StatusTransition describes a conditional status change. The update only
// applies while the row is still in From.
type StatusTransition struct {
	ItemID            uuid.UUID
	From              Status
	To                Status
	ActorID           uuid.UUID
	At                time.Time
	ForeignID         string
	PreviousForeignID string
}

// QueueRepository persists queue rows.
type QueueRepository interface {
	Insert(ctx context.Context, item Item) (*Item, error)
	Update(ctx context.Context, item Item) (*Item, error)
	Transition(ctx context.Context, transition StatusTransition) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, int, error)
	StatusCounter
}

// StatusCounter aggregates item counts grouped by status.
type StatusCounter interface {
	StatusCounts(ctx context.Context, queue string, where map[string]any) (map[Status]int, error)
}

// CountCache stores queue count snapshots for a bounded time.
type CountCache interface {
	Get(ctx context.Context, key string) (QueueCounts, bool)
	Set(ctx context.Context, key string, counts QueueCounts, ttl time.Duration)
}

// ContentModel persists published content of one foreign type. Create
// returns the new record id, either a scalar or a structured value carrying
// an activityId. Lookup returns nil, nil when the record does not exist.
type ContentModel interface {
	Create(ctx context.Context, payload Payload) (any, error)
	Lookup(ctx context.Context, id string) (Payload, error)
}

// CommentCreator is implemented by content models that publish activity
// comments through a dedicated path.
type CommentCreator interface {
	CreateComment(ctx context.Context, payload Payload) (any, error)
}

// ContentFinalizer is an optional post-create hook.
type ContentFinalizer interface {
	Finalize(ctx context.Context, id string, approved bool) error
}

// ContentModels groups the content models per foreign type. Activity
// comments are published through the Activities model.
type ContentModels struct {
	Comments    ContentModel
	Discussions ContentModel
	Activities  ContentModel
}

// Session exposes the acting identity of the current request.
type Session interface {
	CurrentUserID(ctx context.Context) (uuid.UUID, bool)
	HasPermission(ctx context.Context, permission string) bool
	Verified(ctx context.Context) bool
	RemoteAddr(ctx context.Context) string
}

// PremoderationContext is handed to the premoderation policy.
type PremoderationContext struct {
	RecordType  string
	Payload     Payload
	Options     map[string]any
	Premoderate bool
}

// PremoderationDecision is returned by the policy. ForeignID and
// InsertUserID are optional overrides.
type PremoderationDecision struct {
	Premoderate  bool
	ForeignID    string
	InsertUserID uuid.UUID
}

// PremoderationPolicy decides whether content must be held for review.
type PremoderationPolicy interface {
	ShouldHold(ctx context.Context, input PremoderationContext) (PremoderationDecision, error)
}

// PremoderationPolicyFunc adapts a function to PremoderationPolicy.
type PremoderationPolicyFunc func(ctx context.Context, input PremoderationContext) (PremoderationDecision, error)

// ShouldHold implements PremoderationPolicy.
func (f PremoderationPolicyFunc) ShouldHold(ctx context.Context, input PremoderationContext) (PremoderationDecision, error) {
	return f(ctx, input)
}

// PremoderationEvent is emitted after content was held.
type PremoderationEvent struct {
	RecordType string
	Item       Item
	Payload    Payload
	OccurredAt time.Time
}

// StatusEvent is emitted after an item left the unread state.
type StatusEvent struct {
	Item       Item
	From       Status
	To         Status
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterPremoderate  func(context.Context, PremoderationEvent)
	AfterStatusChange func(context.Context, StatusEvent)
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

// CloneMap returns a shallow copy of the map, or nil when empty.
func CloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
