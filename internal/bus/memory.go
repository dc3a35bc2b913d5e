// Package bus implements the message transport that carries quotes and
// user-scoped notifications to connected sessions.
package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/efreitasn/tradefeed/internal/domain"
	"github.com/efreitasn/tradefeed/internal/message"
)

// Session is one connected client. Send must not block.
type Session interface {
	ID() string
	User() string
	Send(msg message.Message)
}

// AvailabilityListener is told whenever bus availability flips.
type AvailabilityListener func(available bool)

// availability tracks the bus-up flag and fires listeners on each edge.
// mu serializes edges with registration, so every listener sees the
// states in the order they were set. Listeners must not call back into
// the availability they are registered on.
type availability struct {
	up        atomic.Bool
	mu        sync.Mutex
	listeners []AvailabilityListener
}

// OnAvailability registers l and immediately reports the current state.
func (a *availability) OnAvailability(l AvailabilityListener) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.listeners = append(a.listeners, l)
	l(a.up.Load())
}

// Available reports whether the bus currently accepts messages.
func (a *availability) Available() bool {
	return a.up.Load()
}

// set stores v and notifies listeners if it changed. Returns true on an edge.
func (a *availability) set(v bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.up.CompareAndSwap(!v, v) {
		return false
	}
	for _, l := range a.listeners {
		l(v)
	}
	return true
}

// Memory is an in-process hub: sessions subscribe to topics, topic
// messages fan out to every subscriber and user messages go to every
// session of that user.
type Memory struct {
	availability

	mu          sync.RWMutex
	subscribers map[string]map[Session]bool // topic → sessions
	sessionSubs map[Session]map[string]bool // session → topics
	users       map[string]map[Session]bool // user → sessions
}

// NewMemory creates an unavailable hub. Call SetAvailable(true) once the
// transport is serving.
func NewMemory() *Memory {
	return &Memory{
		subscribers: make(map[string]map[Session]bool),
		sessionSubs: make(map[Session]map[string]bool),
		users:       make(map[string]map[Session]bool),
	}
}

// SetAvailable flips the availability flag, notifying listeners on change.
func (m *Memory) SetAvailable(v bool) {
	m.set(v)
}

// Register adds a session so it receives messages addressed to its user.
func (m *Memory) Register(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.users[s.User()] == nil {
		m.users[s.User()] = make(map[Session]bool)
	}
	m.users[s.User()][s] = true
	if m.sessionSubs[s] == nil {
		m.sessionSubs[s] = make(map[string]bool)
	}
}

// Unregister drops a session and all of its topic subscriptions.
func (m *Memory) Unregister(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for topic := range m.sessionSubs[s] {
		m.removeSubscriber(topic, s)
	}
	delete(m.sessionSubs, s)

	if sessions, ok := m.users[s.User()]; ok {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(m.users, s.User())
		}
	}
}

// Subscribe adds s to topic. Subscribing twice is a no-op. Returns false
// if the session is not registered.
func (m *Memory) Subscribe(s Session, topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs, ok := m.sessionSubs[s]
	if !ok {
		return false
	}
	subs[topic] = true
	if m.subscribers[topic] == nil {
		m.subscribers[topic] = make(map[Session]bool)
	}
	m.subscribers[topic][s] = true
	return true
}

// Unsubscribe removes s from topic. Returns false if s was not subscribed.
func (m *Memory) Unsubscribe(s Session, topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs, ok := m.sessionSubs[s]
	if !ok || !subs[topic] {
		return false
	}
	delete(subs, topic)
	m.removeSubscriber(topic, s)
	return true
}

// removeSubscriber must be called with m.mu held.
func (m *Memory) removeSubscriber(topic string, s Session) {
	if sessions, ok := m.subscribers[topic]; ok {
		delete(sessions, s)
		if len(sessions) == 0 {
			delete(m.subscribers, topic)
		}
	}
}

// Subscribers returns the number of sessions subscribed to topic.
func (m *Memory) Subscribers(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers[topic])
}

// Publish delivers msg to every subscriber of msg.Destination.
func (m *Memory) Publish(_ context.Context, msg message.Message) error {
	if !m.Available() {
		return domain.ErrBusUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for s := range m.subscribers[msg.Destination] {
		s.Send(msg)
	}
	return nil
}

// SendToUser delivers msg to every session of user. A user with no
// sessions simply misses the message.
func (m *Memory) SendToUser(_ context.Context, user string, msg message.Message) error {
	if !m.Available() {
		return domain.ErrBusUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for s := range m.users[user] {
		s.Send(msg)
	}
	return nil
}
