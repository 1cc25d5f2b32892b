package plan

import "errors"

var (
	ErrMalformed         = errors.New("malformed plan")
	ErrEmptyPlan         = errors.New("plan has no calls and no answer")
	ErrMissingTool       = errors.New("call has no tool")
	ErrDuplicateCall     = errors.New("duplicate call id")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrCycle             = errors.New("circular dependency")
)
