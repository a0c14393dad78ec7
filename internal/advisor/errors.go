package advisor

import (
	"fmt"

	"github.com/jonathan/application-advisor/internal/session"
)

// InputError reports a turn the orchestrator could not accept: empty input,
// an unreadable document, or an unsupported format. Recoverable within the
// same session by resubmitting; the phase never changes.
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// StateError reports a command that is not valid in the session's current
// phase, like "done" before any analysis has run. The Message is guidance
// suitable for showing to the user directly.
type StateError struct {
	Phase   session.Phase
	Command string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("command %q not valid in phase %s: %s", e.Command, e.Phase, e.Message)
}
