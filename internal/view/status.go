// Package view holds the state machines behind the dashboard screens. Each
// screen moves idle → loading → success | error and back to idle when the
// outcome is dismissed or the action is retried. Failures never modify the
// data a screen already shows.
package view

import (
	"errors"

	"github.com/ashureev/agentdesk/internal/notify"
	"github.com/ashureev/agentdesk/internal/remote"
)

// Phase is the lifecycle position of a screen action.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Status is the phase plus the inline message shown with it.
type Status struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

// Notifier shows transient toasts.
type Notifier interface {
	Notify(kind notify.Kind, title, description string)
}

// ErrNotLoggedIn is returned when an action needs the stored identity.
var ErrNotLoggedIn = errors.New("user not logged in")

const msgNotLoggedIn = "User not logged in."

func idle() Status { return Status{Phase: PhaseIdle} }

func loading() Status { return Status{Phase: PhaseLoading} }

func succeeded(msg string) Status { return Status{Phase: PhaseSuccess, Message: msg} }

func failed(err error) Status {
	return Status{Phase: PhaseError, Message: Message(err)}
}

// Message renders err for display on a screen.
func Message(err error) string {
	if errors.Is(err, ErrNotLoggedIn) {
		return msgNotLoggedIn
	}
	return remote.Message(err)
}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Kind, string, string) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
