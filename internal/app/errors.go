package service

import "errors"

var (
	// ErrRecordFailed wraps sink failures returned by Coordinator.Handle.
	ErrRecordFailed = errors.New("audit row not recorded")
	// ErrPipelinePanic is the cause recorded when the pipeline panics.
	ErrPipelinePanic = errors.New("pipeline panic")
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("service not started")
)
