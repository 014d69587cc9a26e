package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu  sync.Mutex
	got []int
}

func (r *recorder) add(v int) {
	r.mu.Lock()
	r.got = append(r.got, v)
	r.mu.Unlock()
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.got...)
}

func TestBroadcaster_InitialThenPublishedInOrder(t *testing.T) {
	b := New[int]()
	var r recorder
	unsub := b.Subscribe(r.add, 0)
	defer unsub()

	for i := 1; i <= 100; i++ {
		b.Publish(i)
	}

	assert.Eventually(t, func() bool { return len(r.values()) == 101 }, time.Second, 5*time.Millisecond)
	for i, v := range r.values() {
		assert.Equal(t, i, v)
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New[int]()
	release := make(chan struct{})
	var r recorder
	unsub := b.Subscribe(func(v int) {
		<-release
		r.add(v)
	})
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			b.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	close(release)
	assert.Eventually(t, func() bool { return len(r.values()) == 50 }, time.Second, 5*time.Millisecond)
}

func TestBroadcaster_UnsubscribeStopsDelivery(t *testing.T) {
	b := New[int]()
	var r recorder
	unsub := b.Subscribe(r.add)

	b.Publish(1)
	assert.Eventually(t, func() bool { return len(r.values()) == 1 }, time.Second, 5*time.Millisecond)

	unsub()
	unsub() // idempotent
	b.Publish(2)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []int{1}, r.values())
	assert.Zero(t, b.Len())
}

func TestBroadcaster_Close(t *testing.T) {
	b := New[int]()
	var r recorder
	b.Subscribe(r.add)
	b.Close()

	b.Publish(1)
	b.Subscribe(r.add, 2)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.values())
	assert.Zero(t, b.Len())
}
