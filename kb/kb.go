package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/orbit-engine/model"
)

var (
	// ErrBodyExists indicates a body with the same name is already registered.
	ErrBodyExists = errors.New("body already exists")
	// ErrBodyNotFound indicates a requested body was not found.
	ErrBodyNotFound = errors.New("body not found")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventBodyAdded EventType = iota
	EventBodyRemoved
	EventFrameUpdated
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type  EventType
	Body  model.OrbitalBody // set for EventBodyAdded / EventBodyRemoved
	Frame model.Frame       // set for EventFrameUpdated
}

// KnowledgeBase is an in-memory, thread-safe store for orbital bodies and
// the most recently computed frame.
type KnowledgeBase struct {
	mu sync.RWMutex

	bodies map[string]model.OrbitalBody
	order  []string

	latest model.Frame

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		bodies: make(map[string]model.OrbitalBody),
		subs:   make(map[int]func(Event)),
	}
}

// AddBody validates and registers a body. It returns an error if the body is
// invalid or the name already exists.
func (kb *KnowledgeBase) AddBody(b model.OrbitalBody) error {
	if err := b.Validate(); err != nil {
		return err
	}

	kb.mu.Lock()
	if _, exists := kb.bodies[b.Name]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBodyExists, b.Name)
	}
	kb.bodies[b.Name] = b
	kb.order = append(kb.order, b.Name)
	subs := kb.subscribersLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventBodyAdded, Body: b})
	return nil
}

// AddBodies registers every body or none of them.
func (kb *KnowledgeBase) AddBodies(bodies []model.OrbitalBody) error {
	if err := model.ValidateBodies(bodies); err != nil {
		return err
	}

	kb.mu.Lock()
	for _, b := range bodies {
		if _, exists := kb.bodies[b.Name]; exists {
			kb.mu.Unlock()
			return fmt.Errorf("%w: %q", ErrBodyExists, b.Name)
		}
	}
	for _, b := range bodies {
		kb.bodies[b.Name] = b
		kb.order = append(kb.order, b.Name)
	}
	subs := kb.subscribersLocked()
	kb.mu.Unlock()

	for _, b := range bodies {
		notify(subs, Event{Type: EventBodyAdded, Body: b})
	}
	return nil
}

// RemoveBody unregisters a body by name.
func (kb *KnowledgeBase) RemoveBody(name string) error {
	kb.mu.Lock()
	b, ok := kb.bodies[name]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrBodyNotFound, name)
	}
	delete(kb.bodies, name)
	for i, n := range kb.order {
		if n == name {
			kb.order = append(kb.order[:i], kb.order[i+1:]...)
			break
		}
	}
	subs := kb.subscribersLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventBodyRemoved, Body: b})
	return nil
}

// GetBody returns the body with the given name.
func (kb *KnowledgeBase) GetBody(name string) (model.OrbitalBody, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	b, ok := kb.bodies[name]
	if !ok {
		return model.OrbitalBody{}, fmt.Errorf("%w: %q", ErrBodyNotFound, name)
	}
	return b, nil
}

// ListBodies returns a snapshot of all bodies in registration order.
func (kb *KnowledgeBase) ListBodies() []model.OrbitalBody {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.OrbitalBody, 0, len(kb.order))
	for _, name := range kb.order {
		res = append(res, kb.bodies[name])
	}
	return res
}

// Len returns the number of registered bodies.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.order)
}

// UpdateFrame records the latest computed frame and notifies subscribers.
func (kb *KnowledgeBase) UpdateFrame(f model.Frame) {
	kb.mu.Lock()
	kb.latest = f
	subs := kb.subscribersLocked()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, Event{Type: EventFrameUpdated, Frame: f})
}

// LatestFrame returns the most recently recorded frame.
func (kb *KnowledgeBase) LatestFrame() model.Frame {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.latest
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

func (kb *KnowledgeBase) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(kb.subs))
	for id := 0; id < kb.nextID; id++ {
		if fn, ok := kb.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
