package queue

import (
	"context"
	"errors"
	"sync"
)

var _ Queue = (*Memory)(nil)

// ErrFull is returned by Memory.Publish when the buffer is exhausted.
var ErrFull = errors.New("queue: buffer full")

// Memory is a bounded in-process queue.
type Memory struct {
	events chan *Event
	once   sync.Once
}

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 1024
	}
	return &Memory{events: make(chan *Event, size)}
}

func (m *Memory) Publish(ctx context.Context, event *Event) error {
	select {
	case m.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

func (m *Memory) Poll(ctx context.Context, max int) ([]*Event, error) {
	events := make([]*Event, 0)
	for len(events) < max {
		select {
		case event, ok := <-m.events:
			if !ok {
				return events, nil
			}
			events = append(events, event)
		case <-ctx.Done():
			return events, ctx.Err()
		default:
			return events, nil
		}
	}
	return events, nil
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.events) })
	return nil
}
