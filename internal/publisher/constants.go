package publisher

import "time"

// Defaults applied by Run when the config leaves a field empty.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultEndpoint = "/push"
	DefaultCount    = 100
	DefaultWorkers  = 4
	DefaultTimeout  = 10 * time.Second
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)
