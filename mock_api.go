package loginpage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Demo account accepted by the mock API
const (
	DemoEmail    = "test@mail.com"
	DemoPassword = "password"
	DemoCode     = "123456"
	DemoUserID   = "123"
)

// Simulated latencies of the mock API
const (
	DefaultLoginDelay   = 800 * time.Millisecond
	DefaultVerifyDelay  = 600 * time.Millisecond
	DefaultRequestDelay = 500 * time.Millisecond
)

// MockAPIOption customizes a MockAPI
type MockAPIOption func(*mockAPIConfig)

type mockAPIConfig struct {
	email        string
	password     string
	code         string
	userID       string
	bcryptCost   int
	loginDelay   time.Duration
	verifyDelay  time.Duration
	requestDelay time.Duration
	connectivity Connectivity
	tokens       *TokenIssuer
	logger       Logger
}

// WithDemoAccount overrides the accepted credentials and code
func WithDemoAccount(email, password, code string) MockAPIOption {
	return func(c *mockAPIConfig) {
		c.email = email
		c.password = password
		c.code = code
	}
}

// WithMockDelays overrides the simulated latencies. Zero disables a delay.
func WithMockDelays(login, verify, request time.Duration) MockAPIOption {
	return func(c *mockAPIConfig) {
		c.loginDelay = login
		c.verifyDelay = verify
		c.requestDelay = request
	}
}

// WithMockConnectivity sets the signal consulted before every call
func WithMockConnectivity(conn Connectivity) MockAPIOption {
	return func(c *mockAPIConfig) {
		if conn != nil {
			c.connectivity = conn
		}
	}
}

// WithMockPasswordCost sets the bcrypt cost used to store the demo password
func WithMockPasswordCost(cost int) MockAPIOption {
	return func(c *mockAPIConfig) {
		c.bcryptCost = cost
	}
}

// WithMockTokenIssuer sets the issuer of session tokens
func WithMockTokenIssuer(issuer *TokenIssuer) MockAPIOption {
	return func(c *mockAPIConfig) {
		if issuer != nil {
			c.tokens = issuer
		}
	}
}

// WithMockLogger overrides the mock API logger
func WithMockLogger(logger Logger) MockAPIOption {
	return func(c *mockAPIConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// MockAPI simulates the remote login and verification calls
type MockAPI struct {
	email        string
	passwordHash string
	code         string
	userID       string
	loginDelay   time.Duration
	verifyDelay  time.Duration
	requestDelay time.Duration
	connectivity Connectivity
	tokens       *TokenIssuer
	logger       Logger
}

// NewMockAPI returns a mock API accepting the demo account
func NewMockAPI(opts ...MockAPIOption) (*MockAPI, error) {
	cfg := &mockAPIConfig{
		email:        DemoEmail,
		password:     DemoPassword,
		code:         DemoCode,
		userID:       DemoUserID,
		bcryptCost:   bcrypt.DefaultCost,
		loginDelay:   DefaultLoginDelay,
		verifyDelay:  DefaultVerifyDelay,
		requestDelay: DefaultRequestDelay,
		connectivity: alwaysOnline{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	hash, err := HashPassword(cfg.password, cfg.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	if cfg.tokens == nil {
		cfg.tokens = NewTokenIssuer([]byte("loginpage-mock-signing-key"), 15*time.Minute)
	}

	return &MockAPI{
		email:        cfg.email,
		passwordHash: hash,
		code:         cfg.code,
		userID:       cfg.userID,
		loginDelay:   cfg.loginDelay,
		verifyDelay:  cfg.verifyDelay,
		requestDelay: cfg.requestDelay,
		connectivity: cfg.connectivity,
		tokens:       cfg.tokens,
		logger:       cfg.logger,
	}, nil
}

// Login implements API
func (m *MockAPI) Login(ctx context.Context, email, password string) (Session, error) {
	if err := m.simulate(ctx, m.loginDelay); err != nil {
		return Session{}, err
	}

	if email != m.email {
		return Session{}, NewAPIError(MessageInvalidCredentials)
	}

	if err := ComparePasswordAndHash(password, m.passwordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			m.logger.Error("mock api: compare password: %v", err)
		}
		return Session{}, NewAPIError(MessageInvalidCredentials)
	}

	token, err := m.tokens.Issue(m.userID)
	if err != nil {
		return Session{}, err
	}

	m.logger.Debug("mock api: login accepted for %s", email)
	return Session{ID: m.userID, Token: token}, nil
}

// VerifyTwoFactor implements API
func (m *MockAPI) VerifyTwoFactor(ctx context.Context, code string) error {
	if err := m.simulate(ctx, m.verifyDelay); err != nil {
		return err
	}

	if code != m.code {
		return NewAPIError(MessageInvalidCode)
	}

	return nil
}

// RequestNewCode implements API
func (m *MockAPI) RequestNewCode(ctx context.Context) error {
	if err := m.simulate(ctx, m.requestDelay); err != nil {
		return err
	}

	m.logger.Info("mock api: new code sent")
	return nil
}

// Tokens returns the issuer used for session tokens
func (m *MockAPI) Tokens() *TokenIssuer {
	return m.tokens
}

func (m *MockAPI) simulate(ctx context.Context, delay time.Duration) error {
	if err := sleep(ctx, delay); err != nil {
		return err
	}

	if !m.connectivity.Online() {
		return NewNetworkError(nil)
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
