package dispatch

import "errors"

var (
	ErrToolNotFound          = errors.New("tool not found")
	ErrDuplicateTool         = errors.New("duplicate tool name")
	ErrInvalidArguments      = errors.New("invalid tool arguments")
	ErrConnectionUnavailable = errors.New("connection unavailable")
	ErrTransport             = errors.New("transport failure")
)
