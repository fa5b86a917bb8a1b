// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pubsub

import "sync"

// Registry is a typed observer list with explicit delivery order. Listeners
// are keyed by id: subscribing under an existing id is a no-op, so redundant
// registration cannot double-deliver, and unsubscribing an unknown id is a
// no-op. Publish delivers synchronously, in subscription order, in the
// caller's goroutine.
type Registry[T any] struct {
	mu    sync.Mutex
	order []string
	subs  map[string]func(T)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{subs: make(map[string]func(T))}
}

// Subscribe registers fn under id. If id is already registered the call is a
// no-op and the original listener keeps its position.
func (r *Registry[T]) Subscribe(id string, fn func(T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; ok {
		return
	}
	r.subs[id] = fn
	r.order = append(r.order, id)
}

// Unsubscribe removes the listener registered under id, if any.
func (r *Registry[T]) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return
	}
	delete(r.subs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Publish delivers v to every listener in subscription order. Listeners run
// in the publisher's goroutine; the listener set is snapshotted first so a
// listener may unsubscribe itself without corrupting the iteration.
func (r *Registry[T]) Publish(v T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.order))
	for _, id := range r.order {
		fns = append(fns, r.subs[id])
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of registered listeners.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Clear removes all listeners.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[string]func(T))
	r.order = nil
}
