package apperrors

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks requests that need a persisted LinkedIn credential
// when none exists or the current one requires manual re-authorization.
var ErrUnauthorized = errors.New("no authorized linkedin credential")

// ValidationError is bad or missing caller input. It short-circuits before
// any side effect and maps to a 4xx response.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ProvisioningError is an identity or account failure on the learning
// platform (or actor resolution on LinkedIn). Maps to a 5xx response; the
// caller does not retry.
type ProvisioningError struct {
	Op  string
	Err error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// PublishError is a non-success response from the remote content-posting
// API. The remote status and body are passed through to the caller.
type PublishError struct {
	StatusCode int
	Body       string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("linkedin publish failed: status=%d body=%s", e.StatusCode, e.Body)
}
