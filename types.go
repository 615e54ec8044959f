package loginpage

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Field identifies a tracked login form input
type Field string

const (
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
)

// Credentials holds the values submitted by the login form
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the result of a successful login call. The flow does not
// inspect it, it only signals that the first factor passed.
type Session struct {
	ID    string `json:"user_id"`
	Token string `json:"token,omitempty"`
}

// API is the network boundary used by the orchestrator and the flow.
type API interface {
	Login(ctx context.Context, email, password string) (Session, error)
	VerifyTwoFactor(ctx context.Context, code string) error
	RequestNewCode(ctx context.Context) error
}

// Connectivity reports whether the environment believes it is online.
type Connectivity interface {
	Online() bool
}

// Focuser is supplied by the rendering layer and receives focus intents
// produced by the two-factor form.
type Focuser interface {
	Focus(index int)
}

// FocuserFunc adapts a function to the Focuser interface.
type FocuserFunc func(index int)

// Focus implements Focuser.
func (f FocuserFunc) Focus(index int) {
	if f != nil {
		f(index)
	}
}

type noopFocuser struct{}

func (noopFocuser) Focus(int) {}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] LOGIN "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] LOGIN "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] LOGIN "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}
