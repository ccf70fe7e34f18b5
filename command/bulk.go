package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
)

// NotFoundKey is the failure key recorded when a bulk filter matched nothing.
const NotFoundKey = "not_found"

// BulkInput selects the queue items a bulk approve or deny applies to.
type BulkInput struct {
	Filter      types.ItemFilter
	ModeratorID uuid.UUID
	Result      *BulkResult
}

// Validate ensures the filter is scoped.
func (input BulkInput) Validate() error {
	if strings.TrimSpace(input.Filter.Queue) == "" && len(input.Filter.Where) == 0 {
		return ErrFilterRequired
	}
	return nil
}

// BulkApproveInput approves every item matching the filter.
type BulkApproveInput struct {
	BulkInput
}

// Type implements gocommand.Message.
func (BulkApproveInput) Type() string {
	return "command.moderation.approve.where"
}

// BulkDenyInput denies every item matching the filter.
type BulkDenyInput struct {
	BulkInput
}

// Type implements gocommand.Message.
func (BulkDenyInput) Type() string {
	return "command.moderation.deny.where"
}

// BulkResult summarizes a bulk run. OK is true only when nothing failed.
type BulkResult struct {
	OK        bool
	Processed int
	Failures  map[string]error
}

// BulkError aggregates per item failures keyed by queue id.
type BulkError struct {
	Failures map[string]error
}

// Error implements error.
func (e *BulkError) Error() string {
	if e == nil || len(e.Failures) == 0 {
		return "go-moderation: bulk operation failed"
	}
	keys := make([]string, 0, len(e.Failures))
	for key := range e.Failures {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, e.Failures[key]))
	}
	return fmt.Sprintf("go-moderation: %d bulk failures: %s", len(keys), strings.Join(parts, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BulkError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		out = append(out, err)
	}
	return out
}

type bulkRunner struct {
	repo types.QueueRepository
}

func (r bulkRunner) run(ctx context.Context, input BulkInput, action string, apply func(context.Context, types.Item) error) error {
	if err := input.Validate(); err != nil {
		return err
	}
	if r.repo == nil {
		return types.ErrMissingRepository
	}

	filter := input.Filter
	filter.OrderBy = "dateInserted"
	filter.Order = "asc"
	filter.Fresh = true
	items, _, err := r.repo.ListItems(ctx, filter)
	if err != nil {
		return fmt.Errorf("list queue items: %w", err)
	}

	failures := map[string]error{}
	if len(items) == 0 {
		metadata := map[string]any{"action": action, "queue": filter.Queue}
		if foreignID, ok := filter.Where["foreignId"]; ok {
			metadata["foreignId"] = fmt.Sprint(foreignID)
		}
		failures[NotFoundKey] = RichError(types.ErrNotFound, "no queue items matched", metadata)
	}

	processed := 0
	for _, item := range items {
		if err := apply(ctx, item); err != nil {
			failures[item.ID.String()] = RichError(err, fmt.Sprintf("%s queue item", action), map[string]any{
				"queueId":   item.ID.String(),
				"foreignId": item.ForeignID,
				"action":    action,
			})
			continue
		}
		processed++
	}

	if input.Result != nil {
		*input.Result = BulkResult{
			OK:        len(failures) == 0,
			Processed: processed,
			Failures:  failures,
		}
	}
	if len(failures) > 0 {
		return &BulkError{Failures: failures}
	}
	return nil
}

// ApproveWhereCommand approves matching items sequentially, oldest first,
// reusing the single item approve command.
type ApproveWhereCommand struct {
	bulkRunner
	approve *ApproveCommand
}

// NewApproveWhereCommand constructs the bulk approve handler.
func NewApproveWhereCommand(repo types.QueueRepository, approve *ApproveCommand) *ApproveWhereCommand {
	return &ApproveWhereCommand{bulkRunner: bulkRunner{repo: repo}, approve: approve}
}

var _ gocommand.Commander[BulkApproveInput] = (*ApproveWhereCommand)(nil)

// Execute never stops on an item failure. The returned *BulkError lists
// every failure.
func (c *ApproveWhereCommand) Execute(ctx context.Context, input BulkApproveInput) error {
	if c == nil || c.approve == nil {
		return errors.New("go-moderation: bulk approve requires approve command")
	}
	return c.run(ctx, input.BulkInput, "approve", func(ctx context.Context, item types.Item) error {
		return c.approve.Execute(ctx, ApproveInput{Item: &item, ModeratorID: input.ModeratorID})
	})
}

// DenyWhereCommand denies matching items sequentially, oldest first.
type DenyWhereCommand struct {
	bulkRunner
	deny *DenyCommand
}

// NewDenyWhereCommand constructs the bulk deny handler.
func NewDenyWhereCommand(repo types.QueueRepository, deny *DenyCommand) *DenyWhereCommand {
	return &DenyWhereCommand{bulkRunner: bulkRunner{repo: repo}, deny: deny}
}

var _ gocommand.Commander[BulkDenyInput] = (*DenyWhereCommand)(nil)

// Execute never stops on an item failure.
func (c *DenyWhereCommand) Execute(ctx context.Context, input BulkDenyInput) error {
	if c == nil || c.deny == nil {
		return errors.New("go-moderation: bulk deny requires deny command")
	}
	return c.run(ctx, input.BulkInput, "deny", func(ctx context.Context, item types.Item) error {
		return c.deny.Execute(ctx, DenyInput{Item: &item, ModeratorID: input.ModeratorID})
	})
}
