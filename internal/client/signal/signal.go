// Package signal provides a push-based observable value.
//
// A Signal holds a value and notifies subscribers when it changes. Derived
// signals recompute from their source and only notify when the derived value
// itself changes.
package signal

import (
	"reflect"
	"sort"
	"sync"
)

// Option configures a signal.
type Option[T any] func(*Signal[T])

// WithEqual sets the function used to detect that a new value is a change.
// The default is reflect.DeepEqual.
func WithEqual[T any](equal func(a, b T) bool) Option[T] {
	return func(s *Signal[T]) {
		s.equal = equal
	}
}

// Signal is an observable value safe for concurrent use.
type Signal[T any] struct {
	value T
	equal func(a, b T) bool
	subs  map[int]func(T)
	next  int
	mu    sync.Mutex
	// notifyMu упорядочивает уведомления между конкурентными Set
	notifyMu sync.Mutex
}

// New creates a signal holding initial.
func New[T any](initial T, opts ...Option[T]) *Signal[T] {
	s := &Signal[T]{
		value: initial,
		subs:  make(map[int]func(T)),
		equal: func(a, b T) bool { return reflect.DeepEqual(a, b) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores v and notifies subscribers if it differs from the current value.
// Subscribers run on the calling goroutine and must not Set the same signal.
func (s *Signal[T]) Set(v T) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.equal(s.value, v) {
		s.mu.Unlock()
		return
	}
	s.value = v
	subs := s.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update sets the value computed by fn from the current one.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.Get()))
}

// Subscribe registers fn for later changes. It is not called with the current
// value; use Observe for that. The returned function unsubscribes.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}

// Observe calls fn with the current value and then on every change.
func (s *Signal[T]) Observe(fn func(T)) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	stop := s.Subscribe(fn)
	fn(s.Get())
	return stop
}

// Subscribers returns the number of registered subscribers.
func (s *Signal[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// snapshot копирует подписчиков в порядке регистрации; вызывается под s.mu
func (s *Signal[T]) snapshot() []func(T) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

// Map derives a signal from src. The derived signal recomputes on every change
// of src; stop detaches it from src.
func Map[A, B any](src *Signal[A], fn func(A) B, opts ...Option[B]) (derived *Signal[B], stop func()) {
	src.notifyMu.Lock()
	defer src.notifyMu.Unlock()

	derived = New(fn(src.Get()), opts...)
	stop = src.Subscribe(func(a A) {
		derived.Set(fn(a))
	})
	return derived, stop
}
