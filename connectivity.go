package loginpage

import (
	"sync"
)

// ConnectivityMonitor holds the online flag reported by the environment
// and fans out changes to subscribers.
type ConnectivityMonitor struct {
	mu          sync.RWMutex
	online      bool
	subscribers map[int]func(online bool)
	nextID      int
}

// NewConnectivityMonitor returns a monitor with the given initial state
func NewConnectivityMonitor(online bool) *ConnectivityMonitor {
	return &ConnectivityMonitor{
		online:      online,
		subscribers: map[int]func(bool){},
	}
}

// Online implements Connectivity
func (m *ConnectivityMonitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a connectivity signal. Subscribers are notified only
// when the state changes.
func (m *ConnectivityMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	subs := make([]func(bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (m *ConnectivityMonitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}
