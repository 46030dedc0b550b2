package model

import "errors"

// Pipeline error kinds. Callers wrap these with fmt.Errorf("%w: ...") and
// test them with errors.Is.
var (
	// ErrRemoteUnavailable is a network or timeout failure on an external call.
	ErrRemoteUnavailable = errors.New("remote service unavailable")
	// ErrMalformedResponse means an external call returned content that does
	// not have the expected shape.
	ErrMalformedResponse = errors.New("malformed remote response")
	// ErrInvalidFields means an external call returned values outside the
	// closed enums.
	ErrInvalidFields = errors.New("remote response has invalid fields")
	// ErrCatalogQueryFailed is a single catalog source failure.
	ErrCatalogQueryFailed = errors.New("catalog query failed")
	// ErrSessionRace means the active conversation changed underneath a
	// get-or-create.
	ErrSessionRace = errors.New("active conversation changed concurrently")
	// ErrPipelineFatal wraps storage failures the pipeline cannot recover from.
	ErrPipelineFatal = errors.New("pipeline failed")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// IsRecoverable reports whether err is one of the external-call failures
// that are answered with a fallback.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrInvalidFields)
}

// FallbackReason returns a short metric label for err.
func FallbackReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrRemoteUnavailable):
		return "remote_unavailable"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrInvalidFields):
		return "invalid_fields"
	default:
		return "error"
	}
}
