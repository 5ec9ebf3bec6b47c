package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guildgrid/internal/model"
)

func cellEvent(id string) model.ChangeEvent {
	return model.ChangeEvent{Type: model.EventInsert, Record: model.CellRecord{StorageID: id}}
}

func TestEventQueue_EnqueueDequeue(t *testing.T) {
	q := newEventQueue()

	ok := q.Enqueue(cellEvent("cell-1"))
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, model.EventInsert, got.Type)
	assert.Equal(t, "cell-1", got.Record.StorageID)
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for _, id := range []string{"A", "B", "C"} {
		q.Enqueue(cellEvent(id))
	}

	for _, want := range []string{"A", "B", "C"} {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, e.Record.StorageID)
	}
}

func TestEventQueue_TryDequeue_Empty(t *testing.T) {
	q := newEventQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_Wait_SignalsOnEnqueue(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(cellEvent("late"))
	}()

	select {
	case <-q.Wait():
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, "late", e.Record.StorageID)
	case <-time.After(time.Second):
		t.Fatal("wait did not signal")
	}
}

func TestEventQueue_Close_UnblocksWait(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(cellEvent("pending"))
	<-q.Wait() // drain the enqueue signal

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Close()
	}()

	select {
	case <-q.Wait():
		assert.True(t, q.Closed())
		_, ok := q.TryDequeue()
		assert.False(t, ok, "close discards pending events")
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after close")
	}
}

func TestEventQueue_Enqueue_AfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close() // idempotent

	ok := q.Enqueue(cellEvent("after-close"))
	assert.False(t, ok, "enqueue after close should return false")
}

func TestEventQueue_Len(t *testing.T) {
	q := newEventQueue()

	assert.Equal(t, 0, q.Len())

	q.Enqueue(cellEvent("1"))
	q.Enqueue(cellEvent("2"))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())

	q.TryDequeue()
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ThreadSafe(t *testing.T) {
	q := newEventQueue()

	const producers = 10
	const eventsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Enqueue(cellEvent("x"))
			}
		}()
	}

	received := 0
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for received < producers*eventsPerProducer {
			if _, ok := q.TryDequeue(); ok {
				received++
				continue
			}
			<-q.Wait()
		}
	}()

	wg.Wait()

	select {
	case <-consumerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer timeout")
	}

	assert.Equal(t, producers*eventsPerProducer, received)
}
