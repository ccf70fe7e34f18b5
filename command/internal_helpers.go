package command

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-moderation/pkg/types"
	"github.com/google/uuid"
)

const testingQueueMarker = "testing"

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func safeIDGenerator(gen types.IDGenerator) types.IDGenerator {
	if gen != nil {
		return gen
	}
	return types.UUIDGenerator{}
}

func safeSession(session types.Session) types.Session {
	if session != nil {
		return session
	}
	return types.StaticSession{}
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}

func sessionUser(ctx context.Context, session types.Session) uuid.UUID {
	if session == nil {
		return uuid.Nil
	}
	id, ok := session.CurrentUserID(ctx)
	if !ok {
		return uuid.Nil
	}
	return id
}

// testingQueue reports whether items in the queue skip publication.
func testingQueue(queue string) bool {
	return strings.Contains(strings.ToLower(queue), testingQueueMarker)
}

func emitPremoderateHook(ctx context.Context, hooks types.Hooks, event types.PremoderationEvent) {
	if hooks.AfterPremoderate == nil {
		return
	}
	hooks.AfterPremoderate(ctx, event)
}

func emitStatusHook(ctx context.Context, hooks types.Hooks, event types.StatusEvent) {
	if hooks.AfterStatusChange == nil {
		return
	}
	hooks.AfterStatusChange(ctx, event)
}

func terminal(policy types.TransitionPolicy, status types.Status) bool {
	return len(policy.AllowedTargets(status)) == 0
}
