package types

import "errors"

var (
	// ErrAttributeLimitExceeded indicates a payload carried more attributes than allowed.
	ErrAttributeLimitExceeded = errors.New("go-moderation: maximum number of attributes exceeded")
	// ErrUnknownRecordType indicates premoderation received an unsupported record type.
	ErrUnknownRecordType = errors.New("go-moderation: unknown record type")
	// ErrUnknownContentType indicates a queue item carries an unsupported foreign type.
	ErrUnknownContentType = errors.New("go-moderation: unknown content type")
	// ErrMissingRequiredField indicates a payload omitted a field its record type requires.
	ErrMissingRequiredField = errors.New("go-moderation: missing required field")
	// ErrInvalidStatus indicates a status outside the closed enum.
	ErrInvalidStatus = errors.New("go-moderation: invalid status")
	// ErrNotFound indicates the queue item (or a referenced record) does not exist.
	ErrNotFound = errors.New("go-moderation: not found")
	// ErrModeratorNotResolved indicates no moderator identity could be determined.
	ErrModeratorNotResolved = errors.New("go-moderation: moderator not resolved")
	// ErrQueueSaveFailed indicates the queue row could not be persisted.
	ErrQueueSaveFailed = errors.New("go-moderation: queue save failed")
	// ErrContentSaveFailed indicates the content model rejected the approved payload.
	ErrContentSaveFailed = errors.New("go-moderation: content save failed")
	// ErrConcurrentTransition indicates another actor changed the item status first.
	ErrConcurrentTransition = errors.New("go-moderation: item status changed concurrently")
	// ErrMissingRepository occurs when no queue repository was supplied.
	ErrMissingRepository = errors.New("go-moderation: missing queue repository")
	// ErrMissingContentModel occurs when no content model was supplied.
	ErrMissingContentModel = errors.New("go-moderation: missing content model")
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-moderation: service not ready")
)
