package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsetools/fseparse/record"
)

func push(h *Hub, n int) {
	for i := 0; i < n; i++ {
		h.Push(&record.Record{EventID: uint64(i)})
	}
}

func drain(c *Consumer) []*record.Record {
	var out []*record.Record
	for {
		rec, ok := c.Recv()
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}

func TestBroadcastIdenticalSequences(t *testing.T) {
	h := New(64)
	consumers := []*Consumer{h.Register(), h.Register(), h.Register()}

	const total = 50
	go func() {
		push(h, total)
		h.Close()
	}()

	var wg sync.WaitGroup
	results := make([][]*record.Record, len(consumers))
	for i, c := range consumers {
		wg.Add(1)
		go func(i int, c *Consumer) {
			defer wg.Done()
			results[i] = drain(c)
		}(i, c)
	}
	wg.Wait()

	for i, got := range results {
		require.Len(t, got, total, "consumer %d", i)
		for j, rec := range got {
			assert.Equal(t, uint64(j), rec.EventID, "consumer %d position %d", i, j)
		}
	}
}

func TestPushBlocksOnFullConsumer(t *testing.T) {
	h := New(1)
	c := h.Register()

	h.Push(&record.Record{EventID: 0}) // fills the buffer

	pushed := make(chan struct{})
	go func() {
		h.Push(&record.Record{EventID: 1})
		close(pushed)
	}()

	select {
	case <-pushed:
		t.Fatal("push should block while the consumer buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	rec, ok := c.Recv()
	require.True(t, ok)
	assert.Equal(t, uint64(0), rec.EventID)

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("push should complete once the buffer drains")
	}
}

func TestRecvTimeout(t *testing.T) {
	h := New(4)
	c := h.Register()

	rec, open, timedOut := c.RecvTimeout(20 * time.Millisecond)
	assert.Nil(t, rec)
	assert.True(t, open)
	assert.True(t, timedOut)

	h.Push(&record.Record{EventID: 7})
	rec, open, timedOut = c.RecvTimeout(time.Second)
	require.NotNil(t, rec)
	assert.True(t, open)
	assert.False(t, timedOut)
	assert.Equal(t, uint64(7), rec.EventID)

	h.Close()
	rec, open, timedOut = c.RecvTimeout(time.Second)
	assert.Nil(t, rec)
	assert.False(t, open)
	assert.False(t, timedOut)
}

func TestCancelReleasesBlockedProducer(t *testing.T) {
	h := New(1)
	c := h.Register()

	h.Push(&record.Record{EventID: 0})

	released := make(chan struct{})
	go func() {
		h.Push(&record.Record{EventID: 1}) // blocks: c is full
		close(released)
	}()

	time.Sleep(20 * time.Millisecond)
	h.Cancel(c)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("cancel should release a producer blocked on the canceled consumer")
	}

	// Records delivered before cancellation remain readable.
	rec, ok := c.Recv()
	require.True(t, ok)
	assert.Equal(t, uint64(0), rec.EventID)
}

func TestCloseDeliversBufferedRecords(t *testing.T) {
	h := New(8)
	c := h.Register()

	push(h, 5)
	h.Close()

	got := drain(c)
	require.Len(t, got, 5)
}

func TestRegisterAfterClose(t *testing.T) {
	h := New(8)
	h.Close()

	c := h.Register()
	_, ok := c.Recv()
	assert.False(t, ok)
}

func TestCancelIsIgnoredByLaterPushes(t *testing.T) {
	h := New(2)
	a := h.Register()
	b := h.Register()

	h.Cancel(a)
	push(h, 2)
	h.Close()

	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 2)
}
