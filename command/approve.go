package command

import (
	"context"
	"errors"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-moderation/content"
	"github.com/goliatone/go-moderation/foreignid"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/goliatone/go-moderation/translate"
	"github.com/google/uuid"
)

// ApproveInput requests publication of a queued item. Item takes precedence
// over ID when both are set.
type ApproveInput struct {
	ID          uuid.UUID
	Item        *types.Item
	ModeratorID uuid.UUID
	Result      *ReviewResult
}

// Type implements gocommand.Message.
func (ApproveInput) Type() string {
	return "command.moderation.approve"
}

// Validate implements gocommand.Message.
func (input ApproveInput) Validate() error {
	if input.Item == nil && input.ID == uuid.Nil {
		return ErrQueueItemRequired
	}
	return nil
}

// ReviewResult carries the outcome of an approve or deny call.
type ReviewResult struct {
	Item *types.Item
	// Skipped is set when the item had already left the unread state.
	Skipped bool
	// AlreadyPublished is set when approval found the content already
	// published and did not publish it again.
	AlreadyPublished bool
	ContentID        string
}

// ReviewCommandConfig wires the approve and deny commands.
type ReviewCommandConfig struct {
	Repository types.QueueRepository
	Content    *content.Registry
	Translator *translate.Translator
	Moderators *ModeratorResolver
	Policy     types.TransitionPolicy
	Clock      types.Clock
	Logger     types.Logger
	Hooks      types.Hooks
}

type reviewer struct {
	repo       types.QueueRepository
	content    *content.Registry
	translator *translate.Translator
	moderators *ModeratorResolver
	policy     types.TransitionPolicy
	clock      types.Clock
	logger     types.Logger
	hooks      types.Hooks
}

func newReviewer(cfg ReviewCommandConfig) reviewer {
	policy := cfg.Policy
	if policy == nil {
		policy = types.DefaultTransitionPolicy()
	}
	registry := cfg.Content
	if registry == nil {
		registry = content.NewRegistry(types.ContentModels{})
	}
	translator := cfg.Translator
	if translator == nil {
		translator = translate.New(translate.Config{Discussions: registry.Discussions()})
	}
	return reviewer{
		repo:       cfg.Repository,
		content:    registry,
		translator: translator,
		moderators: cfg.Moderators,
		policy:     policy,
		clock:      safeClock(cfg.Clock),
		logger:     safeLogger(cfg.Logger),
		hooks:      cfg.Hooks,
	}
}

// load reads the stored item and reports whether it is still unread. A
// caller supplied Item only names the row; its status may be stale.
func (r reviewer) load(ctx context.Context, id uuid.UUID, item *types.Item) (*types.Item, bool, error) {
	if r.repo == nil {
		return nil, false, types.ErrMissingRepository
	}
	if item != nil {
		id = item.ID
	}
	found, err := r.repo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: queue item %s", types.ErrNotFound, id)
		}
		return nil, false, err
	}
	if found == nil {
		return nil, false, fmt.Errorf("%w: queue item %s", types.ErrNotFound, id)
	}
	return found, found.Status == types.StatusUnread, nil
}

// lostRace reports whether a failed transition lost to another moderator
// that already moved the item to a terminal state.
func (r reviewer) lostRace(ctx context.Context, id uuid.UUID, err error) (*types.Item, bool) {
	if !errors.Is(err, types.ErrConcurrentTransition) {
		return nil, false
	}
	current, getErr := r.repo.GetItem(ctx, id)
	if getErr != nil || current == nil || !terminal(r.policy, current.Status) {
		return nil, false
	}
	return current, true
}

func (r reviewer) transition(ctx context.Context, item *types.Item, target types.Status, moderator uuid.UUID, foreignID string) (*types.Item, error) {
	if err := r.policy.Validate(item.Status, target); err != nil {
		return nil, err
	}
	transition := types.StatusTransition{
		ItemID:  item.ID,
		From:    item.Status,
		To:      target,
		ActorID: moderator,
		At:      now(r.clock),
	}
	if foreignID != "" {
		transition.ForeignID = foreignID
		transition.PreviousForeignID = item.ForeignID
	}
	return r.repo.Transition(ctx, transition)
}

func (r reviewer) emit(ctx context.Context, from types.Status, updated *types.Item, moderator uuid.UUID) {
	emitStatusHook(ctx, r.hooks, types.StatusEvent{
		Item:       *updated,
		From:       from,
		To:         updated.Status,
		ActorID:    moderator,
		OccurredAt: updated.DateStatus,
	})
}

// ApproveCommand publishes a queued item into its content model and marks
// it approved.
type ApproveCommand struct {
	reviewer
}

// NewApproveCommand constructs the approve handler.
func NewApproveCommand(cfg ReviewCommandConfig) *ApproveCommand {
	return &ApproveCommand{reviewer: newReviewer(cfg)}
}

var _ gocommand.Commander[ApproveInput] = (*ApproveCommand)(nil)

// Execute approves the item. The row is claimed with a conditional update
// before anything is published, so items that already left the unread
// state, including ones another moderator claimed concurrently, are
// skipped without side effects. Items in testing queues are marked
// approved without publishing.
func (c *ApproveCommand) Execute(ctx context.Context, input ApproveInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	result := ReviewResult{}
	defer func() {
		if input.Result != nil {
			*input.Result = result
		}
	}()

	item, unread, err := c.load(ctx, input.ID, input.Item)
	if err != nil {
		return err
	}
	result.Item = item
	if !unread {
		c.logger.Debug("queue item already processed", "queue_id", item.ID, "status", item.Status)
		result.Skipped = true
		return nil
	}

	moderator, err := c.moderators.Resolve(ctx, input.ModeratorID)
	if err != nil {
		return err
	}

	var publisher *content.Publisher
	if !testingQueue(item.Queue) {
		publisher, err = c.content.For(item.ForeignType)
		if err != nil {
			return err
		}
	}

	claimed, err := c.transition(ctx, item, types.StatusApproved, moderator, "")
	if err != nil {
		if current, lost := c.lostRace(ctx, item.ID, err); lost {
			c.logger.Debug("queue item processed concurrently", "queue_id", item.ID, "status", current.Status)
			result.Item = current
			result.Skipped = true
			return nil
		}
		c.logger.Error("queue item approval not persisted", err, "queue_id", item.ID)
		return fmt.Errorf("%w: %w", types.ErrQueueSaveFailed, err)
	}
	result.Item = claimed

	if publisher != nil {
		foreignID, err := c.publish(ctx, publisher, item, moderator, &result)
		if err != nil {
			if result.ContentID == "" {
				c.release(ctx, item)
				result.Item = item
			}
			return err
		}
		if foreignID != "" {
			recorded := *claimed
			recorded.PreviousForeignID = item.ForeignID
			recorded.ForeignID = foreignID
			updated, err := c.repo.Update(ctx, recorded)
			if err != nil {
				c.logger.Error("queue item foreign id not persisted", err, "queue_id", item.ID, "content_id", result.ContentID)
				return fmt.Errorf("%w: %w", types.ErrQueueSaveFailed, err)
			}
			result.Item = updated
		}
	}

	c.logger.Info("queue item approved", "queue_id", result.Item.ID, "foreign_id", result.Item.ForeignID, "moderator", moderator)
	c.emit(ctx, item.Status, result.Item, moderator)
	return nil
}

// release puts a claimed item back the way it was read. Only used when no
// content was created.
func (c *ApproveCommand) release(ctx context.Context, item *types.Item) {
	if _, err := c.repo.Update(ctx, *item); err != nil {
		c.logger.Error("queue item claim not released", err, "queue_id", item.ID)
	}
}

// publish creates the content record and returns the foreign id recorded on
// the queue item. An empty id with a nil error means the content was
// already published.
func (c *ApproveCommand) publish(ctx context.Context, publisher *content.Publisher, item *types.Item, moderator uuid.UUID, result *ReviewResult) (string, error) {
	if item.ForeignID != "" {
		published, err := publisher.Published(ctx, item.ForeignID)
		if err != nil {
			return "", fmt.Errorf("lookup published content %s: %w", item.ForeignID, err)
		}
		if published {
			c.logger.Debug("queue item content already published", "queue_id", item.ID, "foreign_id", item.ForeignID)
			result.AlreadyPublished = true
			return "", nil
		}
	}

	data, err := c.translator.ToSaveData(*item)
	if err != nil {
		return "", err
	}
	if publisher.Moderated() {
		data["attributes"] = map[string]any{
			"moderation": map[string]any{
				"approved":       true,
				"approvedUserId": moderator,
				"dateApproved":   now(c.clock),
			},
		}
	}
	data["approved"] = true

	newID, err := publisher.Publish(ctx, data)
	if err != nil {
		c.logger.Error("content model rejected approved item", err, "queue_id", item.ID, "foreign_type", item.ForeignType)
		return "", fmt.Errorf("%w: %w", types.ErrContentSaveFailed, err)
	}
	contentID := foreignid.ContentID(newID, publisher.Kind())
	result.ContentID = contentID

	if err := publisher.Finalize(ctx, contentID, true); err != nil {
		c.logger.Error("content finalize failed", err, "queue_id", item.ID, "content_id", contentID)
	}

	foreignID, err := foreignid.ForApproval(newID, publisher.Kind())
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrQueueSaveFailed, err)
	}
	return foreignID, nil
}
