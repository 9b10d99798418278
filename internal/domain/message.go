package domain

import (
	"context"
	"time"
)

// RawMessage is an undecoded reading as read from the message broker.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time

	// Commit acknowledges the message. Nil when the source has no offsets.
	Commit func(ctx context.Context) error
}
