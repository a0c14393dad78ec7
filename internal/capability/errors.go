package capability

import "fmt"

// Error reports a capability call that failed: the provider was unreachable,
// returned malformed output, or kept violating its response schema after a
// retry. It identifies the port so callers can report which step broke
// without parsing the message.
type Error struct {
	Port    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("capability %s: %s: %v", e.Port, e.Message, e.Cause)
	}
	return fmt.Sprintf("capability %s: %s", e.Port, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
