package rtsp

import (
	"github.com/bluenviron/goraop/pkg/base"
	"github.com/bluenviron/goraop/pkg/headerlist"
)

// Action is something the host of a Session must do.
type Action interface {
	isAction()
}

// ActionWrite asks the host to write a request to the control connection.
type ActionWrite struct {
	Request *base.Request
}

// ActionNotify asks the host to notify the user about a state.
// Header contains the response headers, or is nil for
// the Connect and Disconnected states.
type ActionNotify struct {
	State  State
	Header *headerlist.HeaderList
}

// ActionClose asks the host to close the control connection.
// The host must then call Session.Closed.
type ActionClose struct {
	Err error
}

func (ActionWrite) isAction()  {}
func (ActionNotify) isAction() {}
func (ActionClose) isAction()  {}
