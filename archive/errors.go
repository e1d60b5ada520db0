package archive

import "fmt"

// FetchErrorKind classifies why a work page could not be retrieved
type FetchErrorKind int

const (
	// The archive reports no such work
	NotFound FetchErrorKind = iota
	// Restricted works and other access refusals
	Forbidden
	// Transport failures, timeouts and temporary upstream errors
	Unavailable
	UnexpectedStatus
)

func (k FetchErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Forbidden:
		return "forbidden"
	case Unavailable:
		return "unavailable"
	case UnexpectedStatus:
		return "unexpected status"
	default:
		return fmt.Sprintf("FetchErrorKind(%d)", int(k))
	}
}

// InvalidIDError is returned before any request is made when the work id
// does not look like an archive work id
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid work id %q", e.ID)
}

// FetchError is returned when the work page could not be retrieved
type FetchError struct {
	Kind       FetchErrorKind
	WorkID     string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch work %s: %s", e.WorkID, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
