// Package publisher sends match payloads to the adapter's push endpoint,
// wrapped the way a push subscription delivers them.
package publisher

import "time"

// Config holds configuration for a publish run.
type Config struct {
	BaseURL  string        // Base URL of the adapter
	Files    []string      // JSON payload files; synthetic matches are generated when empty
	Count    int           // Number of synthetic matches to generate
	Repeat   int           // Deliveries per payload, to exercise redelivery dedupe
	Workers  int           // Number of concurrent senders
	Timeout  time.Duration // HTTP request timeout
	Seed     int64         // Seed for synthetic matches
	Verbose  bool          // Log every delivery
	Endpoint string        // Push path, normally /push
}

// Delivery is one push request body plus the id it carries.
type Delivery struct {
	ID   string
	Body []byte
}

// Stats holds publish statistics.
type Stats struct {
	Payloads  int
	Sent      int
	Accepted  int
	Duplicate int
	Throttled int
	Failed    int
	StartTime time.Time
	Duration  time.Duration
}
