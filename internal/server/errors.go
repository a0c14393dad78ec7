package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/application-advisor/internal/advisor"
	"github.com/jonathan/application-advisor/internal/capability"
)

// statusForError maps the orchestrator's error taxonomy onto HTTP statuses:
// user-correctable problems are 400, upstream capability failures are 502,
// anything else is 500.
func statusForError(err error) int {
	var inputErr *advisor.InputError
	var stateErr *advisor.StateError
	var capErr *capability.Error

	switch {
	case errors.As(err, &inputErr), errors.As(err, &stateErr):
		return http.StatusBadRequest
	case errors.As(err, &capErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// guidanceMessage extracts user-facing guidance from an orchestrator error.
// Capability and internal failures get a generic message; the details stay in
// the logs.
func guidanceMessage(err error) string {
	var inputErr *advisor.InputError
	if errors.As(err, &inputErr) {
		return inputErr.Message
	}
	var stateErr *advisor.StateError
	if errors.As(err, &stateErr) {
		return stateErr.Message
	}
	var capErr *capability.Error
	if errors.As(err, &capErr) {
		return "that could not be processed right now; please try again"
	}
	return "internal error"
}
