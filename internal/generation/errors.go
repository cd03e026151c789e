package generation

import "errors"

var (
	ErrEmptyText        = errors.New("document text is empty")
	ErrGenerationFailed = errors.New("card extraction failed")
	ErrInvalidConfig    = errors.New("invalid generator configuration")

	// ErrInvalidResponse means the model answered but no usable card drafts
	// could be parsed from it.
	ErrInvalidResponse = errors.New("unusable model response")

	// ErrContentBlocked means the provider's safety filter refused the document.
	ErrContentBlocked = errors.New("document blocked by content filter")

	// ErrTransientFailure marks provider errors worth retrying: rate limits,
	// timeouts and 5xx responses.
	ErrTransientFailure = errors.New("temporary model failure")
)

// IsRetryable reports whether err wraps ErrTransientFailure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}
