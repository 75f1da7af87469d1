// Copyright 2024 bbaa
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package event is a synchronous, in-process publish/subscribe bus.
//
// Handlers are keyed by the concrete type of the event value and run in
// priority order, Highest first. Handlers of equal priority run in the order
// they subscribed. An event embedding Cancelation stops being delivered as soon as
// a handler cancels it.
package event

import (
	"reflect"
	"slices"
	"sync"
)

type Priority int

const (
	Highest Priority = iota
	High
	Normal
	Low
	Lowest
)

func (p Priority) String() string {
	switch p {
	case Highest:
		return "HIGHEST"
	case High:
		return "HIGH"
	case Normal:
		return "NORMAL"
	case Low:
		return "LOW"
	case Lowest:
		return "LOWEST"
	}
	return "UNKNOWN"
}

type Cancelable interface {
	Cancel()
	Canceled() bool
}

// Cancelation is embedded by events that handlers may cancel. Such events
// must be posted by pointer.
type Cancelation struct {
	canceled bool
}

func (c *Cancelation) Cancel() {
	c.canceled = true
}

func (c *Cancelation) Canceled() bool {
	return c.canceled
}

type handler struct {
	id       uint64
	priority Priority
	fn       func(any)
}

type Bus struct {
	handlers map[reflect.Type][]*handler
	lock     sync.RWMutex
	nextID   uint64
	// OnPanic receives the event and the recovered value when a handler panics.
	OnPanic func(e any, recovered any)
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]*handler)}
}

// Subscribe registers fn for events whose dynamic type is exactly T and
// returns a function that removes the subscription.
func Subscribe[T any](b *Bus, priority Priority, fn func(T)) (unsubscribe func()) {
	eventType := reflect.TypeFor[T]()
	b.lock.Lock()
	b.nextID++
	h := &handler{id: b.nextID, priority: priority, fn: func(e any) { fn(e.(T)) }}
	list := append(slices.Clone(b.handlers[eventType]), h)
	slices.SortStableFunc(list, func(a, b *handler) int {
		return int(a.priority - b.priority)
	})
	b.handlers[eventType] = list
	b.lock.Unlock()

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		b.handlers[eventType] = slices.DeleteFunc(slices.Clone(b.handlers[eventType]), func(item *handler) bool {
			return item.id == h.id
		})
		if len(b.handlers[eventType]) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

// Post delivers e synchronously and reports whether it ended up canceled.
func (b *Bus) Post(e any) (canceled bool) {
	b.lock.RLock()
	list := b.handlers[reflect.TypeOf(e)]
	b.lock.RUnlock()

	cancelable, _ := e.(Cancelable)
	for _, h := range list {
		if cancelable != nil && cancelable.Canceled() {
			break
		}
		b.call(h, e)
	}
	return cancelable != nil && cancelable.Canceled()
}

func (b *Bus) call(h *handler, e any) {
	defer func() {
		if r := recover(); r != nil {
			if b.OnPanic != nil {
				b.OnPanic(e, r)
			}
		}
	}()
	h.fn(e)
}

func (b *Bus) SubscriberCount(e any) int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.handlers[reflect.TypeOf(e)])
}
