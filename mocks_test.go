package loginpage_test

import (
	"context"
	"sync"

	"github.com/MamBoota/LoginPage"
	"github.com/stretchr/testify/mock"
)

// MockAuthAPI implements loginpage.API
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Login(ctx context.Context, email, password string) (loginpage.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(loginpage.Session), args.Error(1)
}

func (m *MockAuthAPI) VerifyTwoFactor(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockAuthAPI) RequestNewCode(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockFocuser records focus intents
type MockFocuser struct {
	mu      sync.Mutex
	targets []int
}

func (m *MockFocuser) Focus(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, index)
}

func (m *MockFocuser) Targets() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.targets))
	copy(out, m.targets)
	return out
}

func (m *MockFocuser) Last() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.targets) == 0 {
		return -1
	}
	return m.targets[len(m.targets)-1]
}

// MockStatus implements loginpage.AuthStatus
type MockStatus struct {
	mu      sync.Mutex
	message string
	loading bool
	offline bool
	resets  int
}

func (m *MockStatus) ErrorMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.message
}

func (m *MockStatus) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *MockStatus) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.offline
}

func (m *MockStatus) SetError(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.message = message
}

func (m *MockStatus) SetLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}

func (m *MockStatus) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.message = ""
	m.resets++
}

func (m *MockStatus) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// MockConnectivity implements loginpage.Connectivity
type MockConnectivity struct {
	mu     sync.Mutex
	online bool
}

func (m *MockConnectivity) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *MockConnectivity) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = online
}

type recordingSink struct {
	mu     sync.Mutex
	events []loginpage.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event loginpage.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []loginpage.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]loginpage.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
