// Package redis appends audit events to a Redis stream.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"idintake/internal/audit"
)

// DefaultMaxLen caps the stream length (approximate trimming).
const DefaultMaxLen = 100_000

type Store struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

func New(client redis.Cmdable, stream string) *Store {
	return &Store{client: client, stream: stream, maxLen: DefaultMaxLen}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":      event.ID,
			"action":  string(event.Action),
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Range reads up to count events from the start of the stream.
func (s *Store) Range(ctx context.Context, count int64) ([]audit.Event, error) {
	msgs, err := s.client.XRangeN(ctx, s.stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", s.stream, err)
	}
	events := make([]audit.Event, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["payload"].(string)
		if !ok {
			return nil, fmt.Errorf("stream entry %s has no payload", msg.ID)
		}
		var e audit.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode stream entry %s: %w", msg.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}
