package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrCatalogNotFound is returned when no question catalog could be loaded.
	ErrCatalogNotFound = errors.New("question catalog not found")
	// ErrParticipantNotFound is returned when a submission arrives for an unregistered regno.
	ErrParticipantNotFound = errors.New("please register first")
	// ErrAlreadyRegistered rejects a second registration for the same regno.
	ErrAlreadyRegistered = errors.New("registration already exists for this regno")
	// ErrMissingFields indicates a registration without every required field.
	ErrMissingFields = errors.New("missing fields")
	// ErrInvalidYear indicates a non-numeric year.
	ErrInvalidYear = errors.New("year must be a number")
	// ErrMissingRegno indicates a submission without a regno.
	ErrMissingRegno = errors.New("missing regno")
	// ErrEmptySubmission indicates a submission without a body.
	ErrEmptySubmission = errors.New("no data")
)

// ValidationError is a locally recovered input problem; the state machine does not move.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", strings.Join(e.Fields, ", "), e.Message)
}

// NetworkError wraps any failed or timed out collaborator call.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedResponseError is a collaborator answer with an unexpected shape.
type MalformedResponseError struct {
	Op     string
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Detail)
}

// IncompleteLedgerError means finalize ran while some positions had no entry.
type IncompleteLedgerError struct {
	Missing []int
}

func (e *IncompleteLedgerError) Error() string {
	missing := append([]int(nil), e.Missing...)
	sort.Ints(missing)
	return fmt.Sprintf("ledger incomplete: missing positions %v", missing)
}

// IsNetwork reports whether err should be displayed as a connectivity problem.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	var malformed *MalformedResponseError
	return errors.As(err, &netErr) || errors.As(err, &malformed)
}

// UserMessage converts an error into the status line shown on the display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var validation *ValidationError
	var incomplete *IncompleteLedgerError
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &incomplete):
		return "Something went wrong. Please ask staff for help."
	case IsNetwork(err):
		return "Network error."
	default:
		return err.Error()
	}
}
