package remote

import (
	"errors"
	"fmt"

	"github.com/ashureev/agentdesk/internal/domain"
)

var (
	// ErrNoRefreshToken means a 403 arrived and no refresh token was stored.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrRefreshFailed is matched by every RefreshError.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrMalformedResponse means a success body did not match its schema.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnknown stands for any error of no recognized shape, such as a
	// transport failure. Message renders all of them as one generic text.
	ErrUnknown = errors.New("unknown error")
)

// RefreshError carries the refresh endpoint's rejection message. Err is set
// when the endpoint answered with an unusable body.
type RefreshError struct {
	Status  int
	Message string
	Err     error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh token: %s", e.Message)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRefreshFailed) hold.
func (e *RefreshError) Is(target error) bool {
	return target == ErrRefreshFailed
}

// APIError is a non-success response after at most one retry.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsAuthFailure reports errors after which the user has to log in again.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrNoRefreshToken) || errors.Is(err, ErrRefreshFailed)
}

// unknownMessage is shown for ErrUnknown and any error of no recognized shape.
const unknownMessage = "An unknown error occurred."

// Message renders err for display next to the control that caused it.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	var refreshErr *RefreshError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &refreshErr):
		return refreshErr.Message
	case errors.Is(err, ErrNoRefreshToken):
		return "Your session has expired. Please log in again."
	case errors.Is(err, domain.ErrInvalid) && !errors.Is(err, ErrMalformedResponse):
		return err.Error()
	case errors.Is(err, ErrMalformedResponse):
		return "The server sent an unexpected response."
	case errors.Is(err, ErrUnknown):
		return unknownMessage
	}
	return unknownMessage
}

// Kind classifies err for logs.
func Kind(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoRefreshToken):
		return "no_refresh_token"
	case errors.Is(err, ErrRefreshFailed):
		return "refresh_failed"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, domain.ErrInvalid):
		return "invalid_input"
	case errors.Is(err, ErrUnknown):
		return "unknown"
	}
	return "unknown"
}
