// Package translate converts content payloads into queue rows and approved
// queue rows back into the payloads each content model expects.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-moderation/foreignid"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
)

// Config wires the translator collaborators.
type Config struct {
	// Discussions resolves the category of commented discussions.
	Discussions   types.ContentModel
	Session       types.Session
	IDs           *foreignid.Generator
	DefaultQueue  string
	DefaultFormat string
}

type rowMapper func(ctx context.Context, in rowInput, item *types.Item) error

type saveMapper func(item types.Item, data types.Payload)

// Translator maps payloads to queue items and back.
type Translator struct {
	discussions   types.ContentModel
	session       types.Session
	ids           *foreignid.Generator
	defaultQueue  string
	defaultFormat string
	rows          map[types.ForeignType]rowMapper
	saves         map[types.ForeignType]saveMapper
}

// rowInput holds the payload keys the translator understands.
type rowInput struct {
	QueueName       string    `mapstructure:"queueName"`
	Status          string    `mapstructure:"status"`
	ForeignID       string    `mapstructure:"foreignId"`
	InsertUserID    uuid.UUID `mapstructure:"insertUserId"`
	InsertIPAddress string    `mapstructure:"insertIpAddress"`
	Body            string    `mapstructure:"body"`
	Format          string    `mapstructure:"format"`
	DiscussionID    string    `mapstructure:"discussionId"`
	CategoryID      string    `mapstructure:"categoryId"`
	Name            string    `mapstructure:"name"`
	Announce        bool      `mapstructure:"announce"`
	Story           string    `mapstructure:"story"`
	HeadlineFormat  string    `mapstructure:"headlineFormat"`
	RegardingUserID uuid.UUID `mapstructure:"regardingUserId"`
	ActivityUserID  uuid.UUID `mapstructure:"activityUserId"`
	ActivityID      string    `mapstructure:"activityId"`
}

// New builds a translator.
func New(cfg Config) *Translator {
	t := &Translator{
		discussions:   cfg.Discussions,
		session:       cfg.Session,
		ids:           cfg.IDs,
		defaultQueue:  strings.TrimSpace(cfg.DefaultQueue),
		defaultFormat: strings.TrimSpace(cfg.DefaultFormat),
	}
	if t.ids == nil {
		t.ids = foreignid.New(nil)
	}
	if t.defaultQueue == "" {
		t.defaultQueue = types.DefaultQueue
	}
	if t.defaultFormat == "" {
		t.defaultFormat = types.DefaultFormat
	}
	t.rows = map[types.ForeignType]rowMapper{
		types.ForeignTypeComment:         t.commentRow,
		types.ForeignTypeDiscussion:      discussionRow,
		types.ForeignTypeActivity:        activityRow,
		types.ForeignTypeActivityComment: activityCommentRow,
	}
	t.saves = map[types.ForeignType]saveMapper{
		types.ForeignTypeComment:         commentSave,
		types.ForeignTypeDiscussion:      discussionSave,
		types.ForeignTypeActivity:        activitySave,
		types.ForeignTypeActivityComment: activityCommentSave,
	}
	return t
}

// ToQueueRow builds the queue item for a payload of the given record type.
// Record type names are matched case-insensitively.
func (t *Translator) ToQueueRow(ctx context.Context, recordType string, payload types.Payload) (*types.Item, error) {
	kind, ok := types.ParseForeignType(recordType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownRecordType, recordType)
	}
	mapper := t.rows[kind]
	if mapper == nil {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownRecordType, recordType)
	}

	var in rowInput
	if err := Decode(payload, &in); err != nil {
		return nil, fmt.Errorf("translate %s payload: %w", kind, err)
	}

	item := &types.Item{
		Queue:            firstNonEmpty(in.QueueName, t.defaultQueue),
		Status:           types.Status(strings.ToLower(firstNonEmpty(in.Status, string(types.StatusUnread)))),
		ForeignType:      kind,
		ForeignUserID:    in.InsertUserID,
		ForeignIPAddress: in.InsertIPAddress,
		Body:             in.Body,
		Format:           strings.ToLower(firstNonEmpty(in.Format, t.defaultFormat)),
		ForeignID:        in.ForeignID,
	}
	if !item.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidStatus, in.Status)
	}
	if item.ForeignUserID == uuid.Nil && t.session != nil {
		if id, ok := t.session.CurrentUserID(ctx); ok {
			item.ForeignUserID = id
		}
	}
	if item.ForeignIPAddress == "" && t.session != nil {
		item.ForeignIPAddress = t.session.RemoteAddr(ctx)
	}
	if item.ForeignID == "" {
		item.ForeignID = t.ids.ForCreation(payload)
	}

	if err := mapper(ctx, in, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (t *Translator) commentRow(ctx context.Context, in rowInput, item *types.Item) error {
	if strings.TrimSpace(in.DiscussionID) == "" {
		return fmt.Errorf("%w: discussionId is required for comments", types.ErrMissingRequiredField)
	}
	item.DiscussionID = in.DiscussionID
	if t.discussions == nil {
		return fmt.Errorf("%w: discussion %s", types.ErrNotFound, in.DiscussionID)
	}
	discussion, err := t.discussions.Lookup(ctx, in.DiscussionID)
	if err != nil {
		return fmt.Errorf("lookup discussion %s: %w", in.DiscussionID, err)
	}
	if discussion == nil {
		return fmt.Errorf("%w: discussion %s", types.ErrNotFound, in.DiscussionID)
	}
	if category, ok := discussion["categoryId"]; ok && category != nil {
		item.CategoryID = fmt.Sprint(category)
	}
	return nil
}

func discussionRow(_ context.Context, in rowInput, item *types.Item) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required for discussions", types.ErrMissingRequiredField)
	}
	if strings.TrimSpace(in.CategoryID) == "" {
		return fmt.Errorf("%w: categoryId is required for discussions", types.ErrMissingRequiredField)
	}
	item.Name = in.Name
	item.CategoryID = in.CategoryID
	item.Announce = in.Announce
	return nil
}

func activityRow(_ context.Context, in rowInput, item *types.Item) error {
	item.Body = in.Story
	item.HeadlineFormat = in.HeadlineFormat
	item.RegardingUserID = in.RegardingUserID
	item.ActivityUserID = in.ActivityUserID
	item.ActivityType = types.ActivityTypeWallPost
	item.NotifyUserID = types.NotifyPublic
	return nil
}

func activityCommentRow(_ context.Context, in rowInput, item *types.Item) error {
	if strings.TrimSpace(in.ActivityID) == "" {
		return fmt.Errorf("%w: activityId is required for activity comments", types.ErrMissingRequiredField)
	}
	item.ActivityID = in.ActivityID
	return nil
}

// ToSaveData builds the payload handed to the content model when the item is
// approved.
func (t *Translator) ToSaveData(item types.Item) (types.Payload, error) {
	kind, _ := types.ParseForeignType(string(item.ForeignType))
	mapper := t.saves[kind]
	if mapper == nil {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownContentType, item.ForeignType)
	}
	data := types.Payload{
		"body":            item.Body,
		"format":          item.Format,
		"insertUserId":    item.ForeignUserID,
		"insertIpAddress": item.ForeignIPAddress,
	}
	mapper(item, data)
	return data, nil
}

func commentSave(item types.Item, data types.Payload) {
	data["discussionId"] = item.DiscussionID
	data["categoryId"] = item.CategoryID
}

func discussionSave(item types.Item, data types.Payload) {
	data["name"] = item.Name
	data["categoryId"] = item.CategoryID
	if item.Announce {
		data["announce"] = true
	}
}

func activitySave(item types.Item, data types.Payload) {
	data["story"] = item.Body
	data["headlineFormat"] = item.HeadlineFormat
	if item.RegardingUserID != uuid.Nil {
		data["regardingUserId"] = item.RegardingUserID
	}
	data["activityUserId"] = item.ActivityUserID
	data["notifyUserId"] = item.NotifyUserID
	data["activityType"] = item.ActivityType
}

func activityCommentSave(item types.Item, data types.Payload) {
	data["activityId"] = item.ActivityID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
