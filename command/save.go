package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-moderation/attributes"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/goliatone/go-moderation/translate"
	"github.com/google/uuid"
)

// SaveItemInput inserts or merges a queue row from a flat payload. A payload
// carrying queueId updates that row, otherwise a new row is inserted. Keys
// outside the fixed schema are stored as attributes; a nil value removes one.
type SaveItemInput struct {
	Data    types.Payload
	ActorID uuid.UUID
	Result  *SaveItemResult
}

// Type implements gocommand.Message.
func (SaveItemInput) Type() string {
	return "command.moderation.save"
}

// Validate implements gocommand.Message.
func (input SaveItemInput) Validate() error {
	if len(input.Data) == 0 {
		return ErrPayloadRequired
	}
	return nil
}

// SaveItemResult returns the stored row.
type SaveItemResult struct {
	Item     *types.Item
	Inserted bool
}

// SaveItemCommandConfig wires the generic save command.
type SaveItemCommandConfig struct {
	Repository types.QueueRepository
	Codec      *attributes.Codec
	Session    types.Session
	Clock      types.Clock
	IDGen      types.IDGenerator
	Logger     types.Logger
}

// SaveItemCommand is the generic queue row writer used by imports and
// administrative edits. It does not run the review workflow.
type SaveItemCommand struct {
	repo    types.QueueRepository
	codec   *attributes.Codec
	session types.Session
	clock   types.Clock
	idGen   types.IDGenerator
	logger  types.Logger
}

// NewSaveItemCommand constructs the save handler.
func NewSaveItemCommand(cfg SaveItemCommandConfig) *SaveItemCommand {
	codec := cfg.Codec
	if codec == nil {
		codec = attributes.NewCodec(attributes.DefaultMaxAttributes)
	}
	return &SaveItemCommand{
		repo:    cfg.Repository,
		codec:   codec,
		session: safeSession(cfg.Session),
		clock:   safeClock(cfg.Clock),
		idGen:   safeIDGenerator(cfg.IDGen),
		logger:  safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[SaveItemInput] = (*SaveItemCommand)(nil)

type saveKey struct {
	ID uuid.UUID `mapstructure:"queueId"`
}

// Execute validates and persists the row. Every failure, attribute limit
// included, is reported as types.ErrQueueSaveFailed wrapping the cause.
func (c *SaveItemCommand) Execute(ctx context.Context, input SaveItemInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if c.repo == nil {
		return types.ErrMissingRepository
	}

	var key saveKey
	if err := translate.Decode(input.Data, &key); err != nil {
		return saveFailed(fmt.Errorf("%w: queueId: %v", types.ErrMissingRequiredField, err))
	}

	item := types.Item{}
	insert := key.ID == uuid.Nil
	if !insert {
		current, err := c.repo.GetItem(ctx, key.ID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return fmt.Errorf("%w: queue item %s", types.ErrNotFound, key.ID)
			}
			return err
		}
		item = *current
	}

	fields, attrs, err := c.codec.Encode(types.ItemFieldNames, input.Data, item.Attributes)
	if err != nil {
		return saveFailed(err)
	}
	if err := translate.Decode(fields, &item); err != nil {
		return saveFailed(fmt.Errorf("%w: %v", types.ErrMissingRequiredField, err))
	}
	item.Attributes = attrs

	actor := input.ActorID
	if actor == uuid.Nil {
		actor = sessionUser(ctx, c.session)
	}
	stamp := now(c.clock)
	if insert {
		if item.ID == uuid.Nil {
			item.ID = c.idGen.UUID()
		}
		if item.InsertUserID == uuid.Nil {
			item.InsertUserID = actor
		}
		if item.DateInserted.IsZero() {
			item.DateInserted = stamp
		}
		if item.InsertIPAddress == "" {
			item.InsertIPAddress = c.session.RemoteAddr(ctx)
		}
		if item.Status == "" {
			item.Status = types.StatusUnread
		}
	} else {
		item.UpdateUserID = actor
		item.DateUpdated = stamp
		if _, ok := fields["status"]; ok && actor != uuid.Nil {
			if _, supplied := fields["statusUserId"]; !supplied {
				item.StatusUserID = actor
			}
			item.DateStatus = stamp
		}
	}
	item.Format = strings.ToLower(item.Format)
	if foreignType, ok := types.ParseForeignType(string(item.ForeignType)); ok {
		item.ForeignType = foreignType
	}

	if err := validateItem(item); err != nil {
		return saveFailed(err)
	}

	var saved *types.Item
	if insert {
		saved, err = c.repo.Insert(ctx, item)
	} else {
		saved, err = c.repo.Update(ctx, item)
	}
	if err != nil {
		c.logger.Error("queue item save failed", err, "queue_id", item.ID, "insert", insert)
		return saveFailed(err)
	}

	c.logger.Debug("queue item saved", "queue_id", saved.ID, "insert", insert)
	if input.Result != nil {
		*input.Result = SaveItemResult{Item: saved, Inserted: insert}
	}
	return nil
}

func validateItem(item types.Item) error {
	if strings.TrimSpace(item.Queue) == "" {
		return fmt.Errorf("%w: queueName", types.ErrMissingRequiredField)
	}
	if _, ok := types.ParseForeignType(string(item.ForeignType)); !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownRecordType, item.ForeignType)
	}
	if !item.Status.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidStatus, item.Status)
	}
	return nil
}

func saveFailed(err error) error {
	return fmt.Errorf("%w: %w", types.ErrQueueSaveFailed, err)
}
