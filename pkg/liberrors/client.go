// Package liberrors contains errors returned by the library.
package liberrors

import (
	"fmt"
)

// ErrClientWrongState is returned in case of a wrong client state.
type ErrClientWrongState struct {
	AllowedList []fmt.Stringer
	State       fmt.Stringer
}

// Error implements the error interface.
func (e ErrClientWrongState) Error() string {
	return fmt.Sprintf("must be in state %v, while is in state %v",
		e.AllowedList, e.State)
}

// ErrClientSessionHeaderMissing is returned in case the Session header is missing.
type ErrClientSessionHeaderMissing struct{}

// Error implements the error interface.
func (e ErrClientSessionHeaderMissing) Error() string {
	return "Session header is missing"
}

// ErrClientSessionHeaderInvalid is returned in case of an invalid session header.
type ErrClientSessionHeaderInvalid struct {
	Err error
}

// Error implements the error interface.
func (e ErrClientSessionHeaderInvalid) Error() string {
	return fmt.Sprintf("invalid session header: %v", e.Err)
}

// ErrClientTransportHeaderMissing is returned in case the Transport header is missing.
type ErrClientTransportHeaderMissing struct{}

// Error implements the error interface.
func (e ErrClientTransportHeaderMissing) Error() string {
	return "Transport header is missing"
}

// ErrClientTransportHeaderInvalid is returned in case the transport header is invalid.
type ErrClientTransportHeaderInvalid struct {
	Err error
}

// Error implements the error interface.
func (e ErrClientTransportHeaderInvalid) Error() string {
	return fmt.Sprintf("invalid transport header: %v", e.Err)
}

// ErrClientServerPortMissing is returned in case the server port is missing.
type ErrClientServerPortMissing struct{}

// Error implements the error interface.
func (e ErrClientServerPortMissing) Error() string {
	return "server port is missing from the Transport header"
}

// ErrClientNotConnected is returned when a request is issued before the control connection is up.
type ErrClientNotConnected struct{}

// Error implements the error interface.
func (e ErrClientNotConnected) Error() string {
	return "not connected"
}

// ErrClientTerminated is returned when the client has been closed.
type ErrClientTerminated struct{}

// Error implements the error interface.
func (e ErrClientTerminated) Error() string {
	return "terminated"
}

// ErrClientRequestPending is returned when a request cannot be queued.
type ErrClientRequestPending struct {
	Max int
}

// Error implements the error interface.
func (e ErrClientRequestPending) Error() string {
	return fmt.Sprintf("too many pending requests (max %d)", e.Max)
}
