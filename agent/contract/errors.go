package contract

import "errors"

var (
	ErrTransport    = errors.New("transport failure")
	ErrUnknownAgent = errors.New("unknown agent")
	ErrBadContent   = errors.New("malformed message content")
)
