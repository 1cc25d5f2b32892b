package gate

import "errors"

var (
	// ErrBlocked is returned for absolute-block failures
	ErrBlocked = errors.New("validation blocked")
	// ErrRejected is returned for shape or format failures
	ErrRejected = errors.New("validation failed")
	// ErrUnknownPipeline is returned when no pipeline has the requested id
	ErrUnknownPipeline = errors.New("unknown pipeline")
)
