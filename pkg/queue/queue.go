package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher enqueues messages for asynchronous processing.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

// QueueConfig contains the configuration for the queue.
type QueueConfig struct {
	Workers    int           // number of workers
	RetryLimit int           // number of maximum retries
	RetryDelay time.Duration // time delay between retries
	PollWait   time.Duration // blocking pop timeout
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}
