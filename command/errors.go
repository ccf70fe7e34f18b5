package command

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-moderation/pkg/types"
)

var (
	// ErrQueueItemRequired indicates a command was invoked without an item or id.
	ErrQueueItemRequired = errors.New("go-moderation: queue item or id required")
	// ErrRecordTypeRequired indicates premoderation was invoked without a record type.
	ErrRecordTypeRequired = errors.New("go-moderation: record type required")
	// ErrPayloadRequired indicates a command was invoked without a payload.
	ErrPayloadRequired = errors.New("go-moderation: payload required")
	// ErrFilterRequired indicates a bulk command was invoked without a queue or filter.
	ErrFilterRequired = errors.New("go-moderation: bulk filter requires a queue or where clause")
	// ErrNotFound aliases types.ErrNotFound.
	ErrNotFound = types.ErrNotFound
	// ErrModeratorNotResolved aliases types.ErrModeratorNotResolved.
	ErrModeratorNotResolved = types.ErrModeratorNotResolved
)

const (
	textCodeNotFound             = "QUEUE_ITEM_NOT_FOUND"
	textCodeModeratorUnresolved  = "MODERATOR_NOT_RESOLVED"
	textCodeAttributeLimit       = "ATTRIBUTE_LIMIT_EXCEEDED"
	textCodeMissingField         = "MISSING_REQUIRED_FIELD"
	textCodeUnknownRecordType    = "UNKNOWN_RECORD_TYPE"
	textCodeUnknownContentType   = "UNKNOWN_CONTENT_TYPE"
	textCodeInvalidStatus        = "INVALID_STATUS"
	textCodeContentSaveFailed    = "CONTENT_SAVE_FAILED"
	textCodeConcurrentTransition = "CONCURRENT_TRANSITION"
	textCodeQueueSaveFailed      = "QUEUE_SAVE_FAILED"
	textCodeInternal             = "MODERATION_FAILED"
)

// RichError maps moderation failures onto go-errors categories, codes and
// text codes. Errors that already are rich errors only gain metadata.
func RichError(err error, message string, metadata map[string]any) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if len(metadata) > 0 {
			return richErr.WithMetadata(metadata)
		}
		return richErr
	}

	category := goerrors.CategoryInternal
	code := goerrors.CodeInternal
	textCode := textCodeInternal
	switch {
	case errors.Is(err, types.ErrNotFound):
		category, code, textCode = goerrors.CategoryNotFound, goerrors.CodeNotFound, textCodeNotFound
	case errors.Is(err, types.ErrModeratorNotResolved):
		category, code, textCode = goerrors.CategoryAuthz, goerrors.CodeForbidden, textCodeModeratorUnresolved
	case errors.Is(err, types.ErrAttributeLimitExceeded):
		category, code, textCode = goerrors.CategoryValidation, goerrors.CodeBadRequest, textCodeAttributeLimit
	case errors.Is(err, types.ErrMissingRequiredField),
		errors.Is(err, ErrQueueItemRequired),
		errors.Is(err, ErrRecordTypeRequired),
		errors.Is(err, ErrPayloadRequired),
		errors.Is(err, ErrFilterRequired):
		category, code, textCode = goerrors.CategoryValidation, goerrors.CodeBadRequest, textCodeMissingField
	case errors.Is(err, types.ErrUnknownRecordType):
		category, code, textCode = goerrors.CategoryValidation, goerrors.CodeBadRequest, textCodeUnknownRecordType
	case errors.Is(err, types.ErrUnknownContentType):
		category, code, textCode = goerrors.CategoryValidation, goerrors.CodeBadRequest, textCodeUnknownContentType
	case errors.Is(err, types.ErrInvalidStatus):
		category, code, textCode = goerrors.CategoryValidation, goerrors.CodeBadRequest, textCodeInvalidStatus
	case errors.Is(err, types.ErrContentSaveFailed):
		category, code, textCode = goerrors.CategoryValidation, goerrors.CodeBadRequest, textCodeContentSaveFailed
	case errors.Is(err, types.ErrConcurrentTransition):
		textCode = textCodeConcurrentTransition
	case errors.Is(err, types.ErrQueueSaveFailed):
		textCode = textCodeQueueSaveFailed
	}

	rich := goerrors.Wrap(err, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		rich = rich.WithMetadata(metadata)
	}
	return rich
}
