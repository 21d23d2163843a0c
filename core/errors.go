package core

import "errors"

var (
	// ErrUnknownWorkflowType is returned by StartWorkflow when the requested
	// workflow type has no pipeline definition. Nothing is scheduled and no
	// session is created.
	ErrUnknownWorkflowType = errors.New("unknown workflow type")

	// ErrSessionNotFound is returned by session-scoped operations when the
	// session id is absent from the live session table.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnknownAgent is returned when a pipeline references an agent name
	// that has not been registered.
	ErrUnknownAgent = errors.New("unknown agent")
)
