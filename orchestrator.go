package loginpage

import (
	"context"
	"sync"
)

// Hooks are invoked once a call settles. Either may be nil.
type Hooks struct {
	OnSuccess func()
	OnError   func(err error)
}

// OrchestratorOption customizes an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithConnectivity sets the connectivity signal consulted on failures
func WithConnectivity(c Connectivity) OrchestratorOption {
	return func(o *Orchestrator) {
		if c != nil {
			o.connectivity = c
		}
	}
}

// WithOrchestratorLogger overrides the orchestrator logger
func WithOrchestratorLogger(logger Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator runs the login and verification calls and keeps the single
// error string and loading flag shown by the active form.
type Orchestrator struct {
	mu            sync.Mutex
	api           API
	connectivity  Connectivity
	errMessage    string
	loginPending  bool
	verifyPending bool
	epoch         uint64
	closed        bool
	logger        Logger
}

type alwaysOnline struct{}

func (alwaysOnline) Online() bool { return true }

// NewOrchestrator returns an orchestrator calling api
func NewOrchestrator(api API, opts ...OrchestratorOption) *Orchestrator {
	if api == nil {
		panic("loginpage: orchestrator requires an API")
	}

	o := &Orchestrator{
		api:          api,
		connectivity: alwaysOnline{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o
}

// Login runs the login call. On failure the surfaced error is set and
// OnError receives the original failure. On success the error is cleared
// and OnSuccess runs.
func (o *Orchestrator) Login(ctx context.Context, creds Credentials, hooks Hooks) (Session, error) {
	epoch, err := o.begin(&o.loginPending)
	if err != nil {
		return Session{}, err
	}

	session, err := o.api.Login(ctx, creds.Email, creds.Password)

	if settleErr := o.settle(&o.loginPending, epoch, err, hooks); settleErr != nil {
		return Session{}, settleErr
	}

	if err != nil {
		o.logger.Debug("login failed: %v", err)
		return Session{}, err
	}

	return session, nil
}

// VerifyTwoFactor runs the verification call with the same error and hook
// semantics as Login.
func (o *Orchestrator) VerifyTwoFactor(ctx context.Context, code string, hooks Hooks) error {
	epoch, err := o.begin(&o.verifyPending)
	if err != nil {
		return err
	}

	err = o.api.VerifyTwoFactor(ctx, code)

	if settleErr := o.settle(&o.verifyPending, epoch, err, hooks); settleErr != nil {
		return settleErr
	}

	if err != nil {
		o.logger.Debug("two-factor verification failed: %v", err)
	}

	return err
}

// ResetError clears the surfaced error. Calling it repeatedly is safe.
func (o *Orchestrator) ResetError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errMessage = ""
}

// Invalidate detaches calls still in flight: their results are dropped
// with ErrCallSuperseded and their hooks do not run. The surfaced error and
// the loading flag are cleared.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.epoch++
	o.errMessage = ""
	o.loginPending = false
	o.verifyPending = false
}

// ErrorMessage returns the surfaced error, empty when there is none
func (o *Orchestrator) ErrorMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMessage
}

// HasError reports whether an error is surfaced
func (o *Orchestrator) HasError() bool {
	return o.ErrorMessage() != ""
}

// IsLoading reports whether a login or verification call is in flight
func (o *Orchestrator) IsLoading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loginPending || o.verifyPending
}

// IsOnline reports the current connectivity signal
func (o *Orchestrator) IsOnline() bool {
	return o.connectivity.Online()
}

// Close makes results of calls still in flight inert: their hooks are not
// invoked and they return ErrClosed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

func (o *Orchestrator) begin(pending *bool) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, ErrClosed
	}
	if *pending {
		return 0, ErrCallInFlight
	}
	*pending = true
	return o.epoch, nil
}

func (o *Orchestrator) settle(pending *bool, epoch uint64, callErr error, hooks Hooks) error {
	o.mu.Lock()

	if o.closed {
		*pending = false
		o.mu.Unlock()
		o.logger.Debug("dropping call result after close")
		return ErrClosed
	}

	// pending belongs to a newer call once the epoch moved on
	if epoch != o.epoch {
		o.mu.Unlock()
		o.logger.Debug("dropping superseded call result")
		return ErrCallSuperseded
	}
	*pending = false

	if callErr != nil {
		if !o.connectivity.Online() {
			o.errMessage = OfflineMessage
		} else {
			o.errMessage = ErrorMessage(callErr)
		}
		o.mu.Unlock()

		if hooks.OnError != nil {
			hooks.OnError(callErr)
		}
		return nil
	}

	o.errMessage = ""
	o.mu.Unlock()

	if hooks.OnSuccess != nil {
		hooks.OnSuccess()
	}
	return nil
}
