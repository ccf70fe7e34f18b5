package queue

import (
	"time"

	"github.com/goliatone/go-moderation/attributes"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted moderation_queue row.
type Record struct {
	bun.BaseModel `bun:"table:moderation_queue"`

	ID                uuid.UUID  `bun:"id,pk,type:uuid"`
	QueueName         string     `bun:"queue_name,notnull"`
	Status            string     `bun:"status,notnull"`
	ForeignType       string     `bun:"foreign_type,notnull"`
	ForeignID         string     `bun:"foreign_id"`
	PreviousForeignID string     `bun:"previous_foreign_id"`
	ForeignUserID     uuid.UUID  `bun:"foreign_user_id,type:uuid,nullzero"`
	ForeignIPAddress  string     `bun:"foreign_ip_address"`
	Body              string     `bun:"body"`
	Format            string     `bun:"format"`
	DiscussionID      string     `bun:"discussion_id"`
	CategoryID        string     `bun:"category_id"`
	Name              string     `bun:"name"`
	Announce          bool       `bun:"announce"`
	HeadlineFormat    string     `bun:"headline_format"`
	RegardingUserID   uuid.UUID  `bun:"regarding_user_id,type:uuid,nullzero"`
	ActivityUserID    uuid.UUID  `bun:"activity_user_id,type:uuid,nullzero"`
	ActivityType      string     `bun:"activity_type"`
	ActivityID        string     `bun:"activity_id"`
	NotifyUserID      string     `bun:"notify_user_id"`
	Attributes        *string    `bun:"attributes"`
	StatusUserID      uuid.UUID  `bun:"status_user_id,type:uuid,nullzero"`
	DateStatus        *time.Time `bun:"date_status,nullzero"`
	InsertUserID      uuid.UUID  `bun:"insert_user_id,type:uuid,nullzero"`
	InsertIPAddress   string     `bun:"insert_ip_address"`
	DateInserted      time.Time  `bun:"date_inserted,notnull"`
	UpdateUserID      uuid.UUID  `bun:"update_user_id,type:uuid,nullzero"`
	DateUpdated       *time.Time `bun:"date_updated,nullzero"`
}

// columns maps item field names to queue columns. Filters and ordering are
// restricted to these names.
var columns = map[string]string{
	"queueId":           "id",
	"queueName":         "queue_name",
	"status":            "status",
	"foreignType":       "foreign_type",
	"foreignId":         "foreign_id",
	"previousForeignId": "previous_foreign_id",
	"foreignUserId":     "foreign_user_id",
	"foreignIpAddress":  "foreign_ip_address",
	"body":              "body",
	"format":            "format",
	"discussionId":      "discussion_id",
	"categoryId":        "category_id",
	"name":              "name",
	"announce":          "announce",
	"headlineFormat":    "headline_format",
	"regardingUserId":   "regarding_user_id",
	"activityUserId":    "activity_user_id",
	"activityType":      "activity_type",
	"activityId":        "activity_id",
	"notifyUserId":      "notify_user_id",
	"statusUserId":      "status_user_id",
	"dateStatus":        "date_status",
	"insertUserId":      "insert_user_id",
	"insertIpAddress":   "insert_ip_address",
	"dateInserted":      "date_inserted",
	"updateUserId":      "update_user_id",
	"dateUpdated":       "date_updated",
}

// Column returns the column backing an item field name.
func Column(field string) (string, bool) {
	col, ok := columns[field]
	return col, ok
}

func toDomain(rec *Record, codec *attributes.Codec) *types.Item {
	if rec == nil {
		return nil
	}
	item := &types.Item{
		ID:                rec.ID,
		Queue:             rec.QueueName,
		Status:            types.Status(rec.Status),
		ForeignType:       types.ForeignType(rec.ForeignType),
		ForeignID:         rec.ForeignID,
		PreviousForeignID: rec.PreviousForeignID,
		ForeignUserID:     rec.ForeignUserID,
		ForeignIPAddress:  rec.ForeignIPAddress,
		Body:              rec.Body,
		Format:            rec.Format,
		DiscussionID:      rec.DiscussionID,
		CategoryID:        rec.CategoryID,
		Name:              rec.Name,
		Announce:          rec.Announce,
		HeadlineFormat:    rec.HeadlineFormat,
		RegardingUserID:   rec.RegardingUserID,
		ActivityUserID:    rec.ActivityUserID,
		ActivityType:      rec.ActivityType,
		ActivityID:        rec.ActivityID,
		NotifyUserID:      rec.NotifyUserID,
		StatusUserID:      rec.StatusUserID,
		InsertUserID:      rec.InsertUserID,
		InsertIPAddress:   rec.InsertIPAddress,
		DateInserted:      rec.DateInserted,
		UpdateUserID:      rec.UpdateUserID,
	}
	if rec.DateStatus != nil {
		item.DateStatus = *rec.DateStatus
	}
	if rec.DateUpdated != nil {
		item.DateUpdated = *rec.DateUpdated
	}
	if rec.Attributes != nil {
		item.Attributes = types.CloneMap(codec.Unmarshal(*rec.Attributes))
	}
	return item
}

func fromDomain(item types.Item, codec *attributes.Codec) (*Record, error) {
	blob, err := codec.Marshal(item.Attributes)
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:                item.ID,
		QueueName:         item.Queue,
		Status:            string(item.Status),
		ForeignType:       string(item.ForeignType),
		ForeignID:         item.ForeignID,
		PreviousForeignID: item.PreviousForeignID,
		ForeignUserID:     item.ForeignUserID,
		ForeignIPAddress:  item.ForeignIPAddress,
		Body:              item.Body,
		Format:            item.Format,
		DiscussionID:      item.DiscussionID,
		CategoryID:        item.CategoryID,
		Name:              item.Name,
		Announce:          item.Announce,
		HeadlineFormat:    item.HeadlineFormat,
		RegardingUserID:   item.RegardingUserID,
		ActivityUserID:    item.ActivityUserID,
		ActivityType:      item.ActivityType,
		ActivityID:        item.ActivityID,
		NotifyUserID:      item.NotifyUserID,
		Attributes:        blob,
		StatusUserID:      item.StatusUserID,
		DateStatus:        timePtr(item.DateStatus),
		InsertUserID:      item.InsertUserID,
		InsertIPAddress:   item.InsertIPAddress,
		DateInserted:      item.DateInserted,
		UpdateUserID:      item.UpdateUserID,
		DateUpdated:       timePtr(item.DateUpdated),
	}, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
