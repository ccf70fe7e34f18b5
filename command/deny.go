package command

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
)

// DenyInput requests rejection of a queued item. Item takes precedence over
// ID when both are set.
type DenyInput struct {
	ID          uuid.UUID
	Item        *types.Item
	ModeratorID uuid.UUID
	Result      *ReviewResult
}

// Type implements gocommand.Message.
func (DenyInput) Type() string {
	return "command.moderation.deny"
}

// Validate implements gocommand.Message.
func (input DenyInput) Validate() error {
	if input.Item == nil && input.ID == uuid.Nil {
		return ErrQueueItemRequired
	}
	return nil
}

// DenyCommand marks a queued item denied. Denied content is never published.
type DenyCommand struct {
	reviewer
}

// NewDenyCommand constructs the deny handler.
func NewDenyCommand(cfg ReviewCommandConfig) *DenyCommand {
	return &DenyCommand{reviewer: newReviewer(cfg)}
}

var _ gocommand.Commander[DenyInput] = (*DenyCommand)(nil)

// Execute denies the item. Items that already left the unread state,
// including ones another moderator processed concurrently, are skipped.
func (c *DenyCommand) Execute(ctx context.Context, input DenyInput) error {
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

	updated, err := c.transition(ctx, item, types.StatusDenied, moderator, "")
	if err != nil {
		if current, lost := c.lostRace(ctx, item.ID, err); lost {
			c.logger.Debug("queue item processed concurrently", "queue_id", item.ID, "status", current.Status)
			result.Item = current
			result.Skipped = true
			return nil
		}
		c.logger.Error("queue item denial not persisted", err, "queue_id", item.ID)
		return fmt.Errorf("%w: %w", types.ErrQueueSaveFailed, err)
	}
	result.Item = updated
	c.logger.Info("queue item denied", "queue_id", updated.ID, "moderator", moderator)
	c.emit(ctx, item.Status, updated, moderator)
	return nil
}
