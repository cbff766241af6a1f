package queue

import (
	"context"
	"time"
)

type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Message is the envelope pushed onto a queue.
type Message struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
