// Package model contains domain models passed between layers.
package model

import "time"

// Source names the transport a message arrived on.
type Source string

// Known sources.
const (
	SourcePush  Source = "push"
	SourceKafka Source = "kafka"
)

// Message is one inbound prediction request as handed over by a transport.
// Data is the event body: raw bytes, a decoded object, or any value that
// can be serialized to JSON.
type Message struct {
	ID         string            // transport message id, used for redelivery dedupe
	Data       any               // event body
	Attributes map[string]string // transport attributes or headers
	ReceivedAt time.Time
	Source     Source
}

// Key returns the id used for dedupe. Messages without an id are never
// treated as duplicates.
func (m Message) Key() string {
	if m.ID == "" {
		return ""
	}
	return string(m.Source) + ":" + m.ID
}
