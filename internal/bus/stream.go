package bus

import "sync"

// Stream is a broadcast channel for one kind of event within a session.
// Every publish is delivered to every live subscriber in the same total
// order; publishing is serialized by the stream mutex.
type Stream[T any] struct {
	mu     sync.Mutex
	subs   map[*subscriber[T]]struct{}
	closed bool
}

type subscriber[T any] struct {
	ch chan T
}

// Subscription is the receiving end of one subscriber. C terminates
// (closes) when the stream closes, the subscriber cancels, or the
// subscriber overflows its buffer.
type Subscription[T any] struct {
	C <-chan T

	st  *Stream[T]
	sub *subscriber[T]
}

// NewStream returns an open stream with no subscribers.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{subs: make(map[*subscriber[T]]struct{})}
}

// Subscribe registers a subscriber with the given buffer size. Events
// published before the subscription are not replayed. Subscribing to a
// closed stream yields an immediately-terminated subscription.
func (st *Stream[T]) Subscribe(buf int) *Subscription[T] {
	if buf <= 0 {
		buf = 1
	}
	sub := &subscriber[T]{ch: make(chan T, buf)}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		close(sub.ch)
		return &Subscription[T]{C: sub.ch, st: st, sub: sub}
	}
	st.subs[sub] = struct{}{}
	return &Subscription[T]{C: sub.ch, st: st, sub: sub}
}

// Publish delivers v to every subscriber. A subscriber whose buffer is
// full is disconnected rather than blocking the producer; the number of
// such drops is returned. Publishing to a closed stream is a no-op.
func (st *Stream[T]) Publish(v T) (delivered, dropped int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return 0, 0
	}
	for sub := range st.subs {
		select {
		case sub.ch <- v:
			delivered++
		default:
			delete(st.subs, sub)
			close(sub.ch)
			dropped++
		}
	}
	return delivered, dropped
}

// Close terminates every subscription. Subscribers observe a closed
// channel, not an error. Close is idempotent.
func (st *Stream[T]) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.closed = true
	for sub := range st.subs {
		close(sub.ch)
	}
	st.subs = nil
}

// Len reports the current number of subscribers.
func (st *Stream[T]) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subs)
}

// Cancel detaches the subscription and closes its channel. Safe to call
// more than once, and independent of the producer.
func (s *Subscription[T]) Cancel() {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, ok := s.st.subs[s.sub]; ok {
		delete(s.st.subs, s.sub)
		close(s.sub.ch)
	}
}
