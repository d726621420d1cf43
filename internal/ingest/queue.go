// Package ingest decouples capture cadence from transcription cadence with a
// small bounded queue. Producers never wait on the consumer: when the queue is
// full the oldest chunk is evicted and counted, keeping capture real-time at
// the cost of staleness.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

const (
	// DefaultCapacity bounds the number of chunks buffered between capture
	// and transcription.
	DefaultCapacity = 8

	defaultPollInterval = 10 * time.Millisecond
)

// Queue is a fixed-capacity FIFO between the capture sources and the single
// transcription consumer. Push validates at the boundary so downstream code
// can assume well-formed chunks.
type Queue struct {
	mu           sync.Mutex
	items        []audio.Chunk
	capacity     int
	blockSamples int
	dropped      int64
	pollInterval time.Duration
}

// NewQueue creates a queue with the given capacity and expected block size.
// Non-positive arguments fall back to the defaults.
func NewQueue(capacity, blockSamples int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if blockSamples <= 0 {
		blockSamples = audio.DefaultBlockSamples
	}
	return &Queue{
		items:        make([]audio.Chunk, 0, capacity),
		capacity:     capacity,
		blockSamples: blockSamples,
		pollInterval: defaultPollInterval,
	}
}

// Push enqueues a chunk without ever blocking the caller. At capacity the
// oldest chunk is evicted and the dropped counter is incremented before the
// new chunk is stored. Malformed chunks are rejected and never enqueued.
func (q *Queue) Push(c audio.Chunk) error {
	if err := c.Validate(q.blockSamples); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == q.capacity {
		copy(q.items, q.items[1:])
		q.items[len(q.items)-1] = c
		q.dropped++
		return nil
	}

	q.items = append(q.items, c)
	return nil
}

// Pop removes and returns the oldest chunk. When the queue is empty it waits,
// re-checking at a short interval so cancellation stays responsive. Intended
// for a single consumer.
func (q *Queue) Pop(ctx context.Context) (audio.Chunk, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			c := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return c, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return audio.Chunk{}, ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

// TryPop removes and returns the oldest chunk without waiting. The boolean is
// false when the queue is empty.
func (q *Queue) TryPop() (audio.Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return audio.Chunk{}, false
	}
	c := q.items[0]
	q.items = q.items[1:]
	return c, true
}

// Len reports how many chunks are currently buffered.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity reports the configured bound.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Dropped reports how many chunks have been evicted since creation.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
