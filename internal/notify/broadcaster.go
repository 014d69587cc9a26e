// Package notify fans values out to subscribers. Each subscriber receives
// values on its own goroutine, in publish order, without blocking publishers.
package notify

import (
	"sync"
	"sync/atomic"
)

// Broadcaster delivers published values to every current subscriber
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber[T]
	nextID uint64
	closed bool
}

// New creates an empty broadcaster
func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[uint64]*subscriber[T])}
}

type subscriber[T any] struct {
	fn func(T)

	mu    sync.Mutex
	queue []T

	wake    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once
}

func (s *subscriber[T]) enqueue(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default: // Already signalled
	}
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() {
		s.stopped.Store(true)
		close(s.done)
	})
}

func (s *subscriber[T]) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			v := s.queue[0]
			var zero T
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if s.stopped.Load() {
				return
			}
			s.fn(v)
		}
	}
}

// Subscribe registers fn. When initial values are given they are delivered
// first, before anything published after Subscribe returns. The returned
// func unsubscribes; values still queued are dropped.
func (b *Broadcaster[T]) Subscribe(fn func(T), initial ...T) (unsubscribe func()) {
	s := &subscriber[T]{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	for _, v := range initial {
		s.enqueue(v)
	}
	b.mu.Unlock()

	go s.run()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		s.stop()
	}
}

// Publish queues v for every subscriber
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, s := range b.subs {
		s.enqueue(v)
	}
}

// Len returns the number of active subscribers
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unsubscribes everyone. Later Subscribe and Publish calls are no-ops.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*subscriber[T])
	b.closed = true
	b.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}
