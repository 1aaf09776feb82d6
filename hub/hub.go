// Package hub implements the bounded broadcast channel between the decoder
// and its sinks. Every record pushed is observed by every registered
// consumer; a full consumer buffer blocks the producer, which is the only
// backpressure mechanism in the pipeline.
package hub

import (
	"sync"
	"time"

	"github.com/fsetools/fseparse/record"
)

// DefaultCapacity is the per-consumer buffer size when none is configured.
const DefaultCapacity = 4096

// Hub fans decoded records out to independently-paced consumers. Consumers
// must be registered before the first Push of a run; late registrations
// observe nothing retroactively.
type Hub struct {
	capacity int

	mu        sync.RWMutex
	consumers []*Consumer
	closed    bool
}

// Consumer is one registered receive handle. Each consumer has its own
// buffer and observes records in exact push order.
type Consumer struct {
	ch   chan *record.Record
	stop chan struct{}
}

// New creates a hub whose consumers each buffer up to capacity records.
func New(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{capacity: capacity}
}

// Register adds a consumer. Must be called before decoding starts pushing
// records; registering on a closed hub yields a consumer that is already
// drained.
func (h *Hub) Register() *Consumer {
	c := &Consumer{
		ch:   make(chan *record.Record, h.capacity),
		stop: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.ch)
		return c
	}
	h.consumers = append(h.consumers, c)
	return c
}

// Push delivers rec to every registered consumer, blocking while any
// consumer's buffer is full. Canceled consumers are skipped. Safe for
// concurrent use by multiple producers; each producer's own order is
// preserved for every consumer.
func (h *Hub) Push(rec *record.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.consumers {
		select {
		case c.ch <- rec:
		case <-c.stop:
		}
	}
}

// Cancel removes c from the broadcast and closes its channel. Records
// delivered before cancellation stay readable until the buffer drains; a
// producer blocked on this consumer is released.
func (h *Hub) Cancel(c *Consumer) {
	close(c.stop)

	h.mu.Lock()
	removed := false
	for i, existing := range h.consumers {
		if existing == c {
			h.consumers = append(h.consumers[:i], h.consumers[i+1:]...)
			removed = true
			break
		}
	}
	h.mu.Unlock()

	if removed {
		close(c.ch)
	}
}

// Close tears the hub down once no producer is outstanding. Every remaining
// consumer's channel is closed; buffered records are still delivered before
// the consumer observes closure.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, c := range h.consumers {
		close(c.stop)
		close(c.ch)
	}
	h.consumers = nil
}

// Recv blocks until a record arrives or the consumer's channel is closed.
// ok is false once the channel is closed and drained.
func (c *Consumer) Recv() (rec *record.Record, ok bool) {
	rec, ok = <-c.ch
	return rec, ok
}

// RecvTimeout waits up to d for a record. timedOut is true when the wait
// expired with the channel still open; open is false once the channel is
// closed and drained.
func (c *Consumer) RecvTimeout(d time.Duration) (rec *record.Record, open bool, timedOut bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case rec, ok := <-c.ch:
		return rec, ok, false
	case <-timer.C:
		return nil, true, true
	}
}
