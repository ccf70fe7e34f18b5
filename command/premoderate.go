package command

import (
	"context"
	"fmt"
	"strings"

	featuregate "github.com/goliatone/go-featuregate/gate"
	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/goliatone/go-moderation/translate"
	"github.com/google/uuid"
)

// PremoderateInput routes freshly submitted content through the queue.
type PremoderateInput struct {
	RecordType string
	Payload    types.Payload
	Options    map[string]any
	Result     *PremoderateResult
}

// Type implements gocommand.Message.
func (PremoderateInput) Type() string {
	return "command.moderation.premoderate"
}

// Validate implements gocommand.Message.
func (input PremoderateInput) Validate() error {
	switch {
	case strings.TrimSpace(input.RecordType) == "":
		return ErrRecordTypeRequired
	case input.Payload == nil:
		return ErrPayloadRequired
	default:
		return nil
	}
}

// PremoderateResult reports whether the content was held and the queued item.
type PremoderateResult struct {
	Held bool
	Item *types.Item
}

// PremoderateCommandConfig wires the premoderation command.
type PremoderateCommandConfig struct {
	Repository   types.QueueRepository
	Translator   *translate.Translator
	Policy       types.PremoderationPolicy
	FeatureGate  featuregate.FeatureGate
	Session      types.Session
	SystemUserID uuid.UUID
	Clock        types.Clock
	IDGen        types.IDGenerator
	Logger       types.Logger
	Hooks        types.Hooks
	Masker       *masker.Masker
}

// PremoderateCommand decides whether content is held for review and queues
// it when it is.
type PremoderateCommand struct {
	repo       types.QueueRepository
	translator *translate.Translator
	policy     types.PremoderationPolicy
	gate       featuregate.FeatureGate
	session    types.Session
	systemUser uuid.UUID
	clock      types.Clock
	idGen      types.IDGenerator
	logger     types.Logger
	hooks      types.Hooks
	mask       *masker.Masker
}

// NewPremoderateCommand constructs the premoderation handler.
func NewPremoderateCommand(cfg PremoderateCommandConfig) *PremoderateCommand {
	translator := cfg.Translator
	if translator == nil {
		translator = translate.New(translate.Config{Session: cfg.Session})
	}
	return &PremoderateCommand{
		repo:       cfg.Repository,
		translator: translator,
		policy:     cfg.Policy,
		gate:       cfg.FeatureGate,
		session:    safeSession(cfg.Session),
		systemUser: cfg.SystemUserID,
		clock:      safeClock(cfg.Clock),
		idGen:      safeIDGenerator(cfg.IDGen),
		logger:     safeLogger(cfg.Logger),
		hooks:      cfg.Hooks,
		mask:       cfg.Masker,
	}
}

var _ gocommand.Commander[PremoderateInput] = (*PremoderateCommand)(nil)

type premoderationAuthor struct {
	InsertUserID uuid.UUID `mapstructure:"insertUserId"`
}

// Execute holds the content when approval is required for the session user
// or the premoderation policy says so. Content posted by the system user is
// never held.
func (c *PremoderateCommand) Execute(ctx context.Context, input PremoderateInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if c.repo == nil {
		return types.ErrMissingRepository
	}
	if input.Result != nil {
		*input.Result = PremoderateResult{}
	}

	var author premoderationAuthor
	if err := translate.Decode(input.Payload, &author); err != nil {
		return fmt.Errorf("%w: insertUserId: %v", types.ErrMissingRequiredField, err)
	}
	if c.systemUser != uuid.Nil && author.InsertUserID == c.systemUser {
		c.logger.Debug("premoderation bypassed for system user", "record_type", input.RecordType)
		return nil
	}

	actor := sessionUser(ctx, c.session)
	approvalRequired := false
	enabled, err := featureEnabled(ctx, c.gate, types.FeatureApprovalRequired, actor)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", types.FeatureApprovalRequired, err)
	}
	if enabled && !c.session.Verified(ctx) {
		approvalRequired = true
	}

	decision := types.PremoderationDecision{Premoderate: approvalRequired}
	if c.policy != nil {
		decision, err = c.policy.ShouldHold(ctx, types.PremoderationContext{
			RecordType:  input.RecordType,
			Payload:     input.Payload.Clone(),
			Options:     types.CloneMap(input.Options),
			Premoderate: approvalRequired,
		})
		if err != nil {
			return fmt.Errorf("premoderation policy: %w", err)
		}
	}
	if !decision.Premoderate {
		return nil
	}

	payload := input.Payload.Clone()
	if decision.ForeignID != "" {
		payload["foreignId"] = decision.ForeignID
	}
	item, err := c.translator.ToQueueRow(ctx, input.RecordType, payload)
	if err != nil {
		return err
	}
	item.ID = c.idGen.UUID()
	item.InsertUserID = actor
	if decision.InsertUserID != uuid.Nil && !enabled {
		item.InsertUserID = decision.InsertUserID
	}
	item.InsertIPAddress = c.session.RemoteAddr(ctx)
	item.DateInserted = now(c.clock)

	saved, err := c.repo.Insert(ctx, *item)
	if err != nil {
		c.logger.Error("premoderation queue insert failed", err, "record_type", input.RecordType, "queue", item.Queue)
		return fmt.Errorf("%w: %w", types.ErrQueueSaveFailed, err)
	}

	c.logger.Info("content held for moderation", "queue_id", saved.ID, "queue", saved.Queue, "foreign_type", saved.ForeignType)
	emitPremoderateHook(ctx, c.hooks, types.PremoderationEvent{
		RecordType: input.RecordType,
		Item:       *saved,
		Payload:    SanitizePayload(c.mask, payload),
		OccurredAt: saved.DateInserted,
	})

	if input.Result != nil {
		input.Result.Held = true
		input.Result.Item = saved
	}
	return nil
}
