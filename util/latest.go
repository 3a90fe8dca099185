package util

import (
	"sync"
)

// Latest holds the most recent value of something that changes over time,
// such as the loaded configuration. Publishing never blocks; readers select
// on Changed and then Load the newest value, intermediate values may be
// skipped.
type Latest[T any] struct {
	mu       sync.Mutex
	value    T
	revision uint64
	notify   chan struct{} // capacity 1, a pending notification is enough
}

func NewLatest[T any](initial T) *Latest[T] {
	return &Latest[T]{
		value:  initial,
		notify: make(chan struct{}, 1),
	}
}

// Publish replaces the current value and wakes up a waiting reader.
func (l *Latest[T]) Publish(value T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.value = value
	l.revision++

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Changed returns the notification channel for use in select statements.
func (l *Latest[T]) Changed() <-chan struct{} {
	return l.notify
}

func (l *Latest[T]) Load() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Revision counts the values published so far.
func (l *Latest[T]) Revision() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revision
}
