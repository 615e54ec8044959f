package loginpage

import (
	"strings"
	"sync"
)

// AuthStatus exposes the orchestrator state a form renders: the surfaced
// error, the loading flag and connectivity.
type AuthStatus interface {
	ErrorMessage() string
	IsLoading() bool
	IsOnline() bool
}

type idleStatus struct{}

func (idleStatus) ErrorMessage() string { return "" }
func (idleStatus) IsLoading() bool      { return false }
func (idleStatus) IsOnline() bool       { return true }

// LoginView is the render model of the login form
type LoginView struct {
	Email       string
	Password    string
	Errors      ValidationErrors
	CanSubmit   bool
	Loading     bool
	Offline     bool
	ServerError string
}

// LoginFormOption customizes a LoginForm
type LoginFormOption func(*LoginForm)

// WithLoginStatus sets the source for server error, loading and connectivity.
func WithLoginStatus(status AuthStatus) LoginFormOption {
	return func(f *LoginForm) {
		if status != nil {
			f.status = status
		}
	}
}

// WithLoginErrorReset sets the hook invoked when an edit should clear the
// server error.
func WithLoginErrorReset(reset func()) LoginFormOption {
	return func(f *LoginForm) {
		f.resetError = reset
	}
}

// WithLoginSubmit sets the handler invoked with the credentials of a
// successful submit.
func WithLoginSubmit(handler func(Credentials)) LoginFormOption {
	return func(f *LoginForm) {
		f.onSubmit = handler
	}
}

// WithLoginLogger overrides the form logger
func WithLoginLogger(logger Logger) LoginFormOption {
	return func(f *LoginForm) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// LoginForm tracks email and password input, touched fields and the
// validation errors shown for them.
type LoginForm struct {
	mu         sync.Mutex
	email      string
	password   string
	touched    map[Field]bool
	errors     ValidationErrors
	status     AuthStatus
	resetError func()
	onSubmit   func(Credentials)
	logger     Logger
}

// NewLoginForm returns an empty login form
func NewLoginForm(opts ...LoginFormOption) *LoginForm {
	f := &LoginForm{
		touched: map[Field]bool{},
		errors:  ValidationErrors{},
		status:  idleStatus{},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// SetEmail updates the email value
func (f *LoginForm) SetEmail(value string) {
	f.Set(FieldEmail, value)
}

// SetPassword updates the password value
func (f *LoginForm) SetPassword(value string) {
	f.Set(FieldPassword, value)
}

// Set updates the raw value of field. It never marks the field as touched.
func (f *LoginForm) Set(field Field, value string) {
	f.mu.Lock()
	switch field {
	case FieldEmail:
		f.email = value
	case FieldPassword:
		f.password = value
	default:
		f.mu.Unlock()
		f.logger.Debug("login form: ignoring edit of unknown field %q", field)
		return
	}
	f.refreshTouchedErrors()
	f.mu.Unlock()

	f.clearServerError()
}

// Blur marks field as touched and refreshes the errors of touched fields
func (f *LoginForm) Blur(field Field) {
	if field != FieldEmail && field != FieldPassword {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.touched[field] = true
	f.refreshTouchedErrors()
}

// Submit touches every field and validates the form. When the form is
// valid the submit handler is invoked with the values as entered.
func (f *LoginForm) Submit() (Credentials, error) {
	f.mu.Lock()

	if f.status.IsLoading() {
		f.mu.Unlock()
		return Credentials{}, ErrLoading
	}

	f.touched[FieldEmail] = true
	f.touched[FieldPassword] = true

	creds := Credentials{Email: f.email, Password: f.password}
	errs := ComputeFieldErrors(creds)
	if !errs.Empty() {
		f.errors = errs
		f.mu.Unlock()
		return Credentials{}, ErrFormInvalid
	}

	f.errors = ValidationErrors{}
	handler := f.onSubmit
	f.mu.Unlock()

	if handler != nil {
		handler(creds)
	}

	return creds, nil
}

// IsValid reports whether both fields are filled and pass validation,
// regardless of which errors are currently displayed.
func (f *LoginForm) IsValid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isValid()
}

// CanSubmit reports whether the submit action is enabled
func (f *LoginForm) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isValid() && !f.status.IsLoading()
}

// Errors returns the errors currently displayed
func (f *LoginForm) Errors() ValidationErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors.Clone()
}

// Touched reports whether field has been blurred or submitted
func (f *LoginForm) Touched(field Field) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched[field]
}

// Credentials returns the current raw values
func (f *LoginForm) Credentials() Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Credentials{Email: f.email, Password: f.password}
}

// Snapshot returns the render model of the form
func (f *LoginForm) Snapshot() LoginView {
	f.mu.Lock()
	defer f.mu.Unlock()

	loading := f.status.IsLoading()
	return LoginView{
		Email:       f.email,
		Password:    f.password,
		Errors:      f.errors.Clone(),
		CanSubmit:   f.isValid() && !loading,
		Loading:     loading,
		Offline:     !f.status.IsOnline(),
		ServerError: f.status.ErrorMessage(),
	}
}

func (f *LoginForm) isValid() bool {
	return strings.TrimSpace(f.email) != "" &&
		strings.TrimSpace(f.password) != "" &&
		IsValidEmail(f.email) &&
		IsValidPassword(f.password)
}

// refreshTouchedErrors must be called with f.mu held
func (f *LoginForm) refreshTouchedErrors() {
	if !f.touched[FieldEmail] && !f.touched[FieldPassword] {
		return
	}

	computed := ComputeFieldErrors(Credentials{Email: f.email, Password: f.password})
	for _, field := range []Field{FieldEmail, FieldPassword} {
		if !f.touched[field] {
			continue
		}
		if msg, ok := computed[field]; ok {
			f.errors[field] = msg
		} else {
			delete(f.errors, field)
		}
	}
}

func (f *LoginForm) clearServerError() {
	if f.resetError == nil || f.status.ErrorMessage() == "" {
		return
	}
	f.resetError()
}
