package loginpage

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Toast messages shown by the flow
const (
	MessageLoginSuccess      = "Login successful! Enter your two-factor authentication code."
	MessageLoginFailed       = "Login failed"
	MessageWelcome           = "Authentication successful! Welcome!"
	MessageCodeSent          = "New code sent! Check your device."
	MessageCodeRequestFailed = "Failed to request a new code"
)

// WelcomeToastDuration is how long the final success toast stays visible
const WelcomeToastDuration = 5 * time.Second

// Renderer is the rendering boundary. It receives the active step every
// time it changes.
type Renderer interface {
	Render(step Step)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(step Step)

// Render implements Renderer.
func (f RendererFunc) Render(step Step) {
	if f != nil {
		f(step)
	}
}

type noopRenderer struct{}

func (noopRenderer) Render(Step) {}

// FlowOption customizes a Flow
type FlowOption func(*Flow)

// WithRenderer sets the rendering boundary
func WithRenderer(r Renderer) FlowOption {
	return func(f *Flow) {
		if r != nil {
			f.renderer = r
		}
	}
}

// WithFlowFocuser sets the focus target passed to two-factor forms
func WithFlowFocuser(focuser Focuser) FlowOption {
	return func(f *Flow) {
		if focuser != nil {
			f.focuser = focuser
		}
	}
}

// WithFlowConnectivity sets the connectivity signal
func WithFlowConnectivity(c Connectivity) FlowOption {
	return func(f *Flow) {
		if c != nil {
			f.connectivity = c
		}
	}
}

// WithFlowNotifier sets the notifier used for toasts
func WithFlowNotifier(n *Notifier) FlowOption {
	return func(f *Flow) {
		if n != nil {
			f.notifier = n
		}
	}
}

// WithFlowTwoFactorOptions appends options applied to every two-factor
// form the flow mounts.
func WithFlowTwoFactorOptions(opts ...TwoFactorOption) FlowOption {
	return func(f *Flow) {
		f.twoFactorOpts = append(f.twoFactorOpts, opts...)
	}
}

// WithFlowActivitySink sets the ActivitySink used to publish flow events.
func WithFlowActivitySink(sink ActivitySink) FlowOption {
	return func(f *Flow) {
		f.activity = normalizeActivitySink(sink)
	}
}

// WithFlowClock injects a custom clock (useful for tests).
func WithFlowClock(clock func() time.Time) FlowOption {
	return func(f *Flow) {
		if clock != nil {
			f.now = clock
		}
	}
}

// WithFlowLogger overrides the logger shared by the flow components
func WithFlowLogger(logger Logger) FlowOption {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Flow coordinates the login and two-factor steps. It owns the mounted
// form of the active step, the orchestrator and the notifier.
type Flow struct {
	mu        sync.Mutex
	steps     *StepMachine
	api       API
	auth      *Orchestrator
	notifier  *Notifier
	login     *LoginForm
	twoFactor *TwoFactorForm
	mounted   uint64
	closed    bool

	renderer      Renderer
	focuser       Focuser
	connectivity  Connectivity
	twoFactorOpts []TwoFactorOption
	activity      ActivitySink
	now           func() time.Time
	logger        Logger
}

// NewFlow returns a flow positioned at the login step
func NewFlow(api API, opts ...FlowOption) *Flow {
	f := &Flow{
		steps:        NewStepMachine(),
		api:          api,
		renderer:     noopRenderer{},
		focuser:      noopFocuser{},
		connectivity: alwaysOnline{},
		activity:     noopActivitySink{},
		now:          time.Now,
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	f.auth = NewOrchestrator(api,
		WithConnectivity(f.connectivity),
		WithOrchestratorLogger(f.logger),
	)

	if f.notifier == nil {
		f.notifier = NewNotifier()
	}

	f.login = f.newLoginForm()

	return f
}

// Step returns the active view state
func (f *Flow) Step() Step {
	return f.steps.Current()
}

// Auth returns the orchestrator
func (f *Flow) Auth() *Orchestrator {
	return f.auth
}

// Notifier returns the toast notifier
func (f *Flow) Notifier() *Notifier {
	return f.notifier
}

// LoginForm returns the mounted login form, nil outside the login step
func (f *Flow) LoginForm() *LoginForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.login
}

// TwoFactorForm returns the mounted two-factor form, nil outside the
// two-factor step
func (f *Flow) TwoFactorForm() *TwoFactorForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.twoFactor
}

// SubmitLogin submits the login form and, when the credentials are
// accepted, moves to the two-factor step.
func (f *Flow) SubmitLogin(ctx context.Context) error {
	form := f.LoginForm()
	if form == nil {
		return ErrInvalidTransition
	}

	creds, err := form.Submit()
	if err != nil {
		return err
	}

	_, err = f.auth.Login(ctx, creds, Hooks{
		OnSuccess: func() {
			if err := f.move(ctx, StepLogin, StepTwoFactor); err != nil {
				f.logger.Error("flow: enter two-factor step: %v", err)
				return
			}
			f.notifier.Success(MessageLoginSuccess)
			f.record(ctx, ActivityEventLoginSuccess, map[string]any{"email": creds.Email})
		},
		OnError: func(err error) {
			f.notifier.Error(toastMessage(err, MessageLoginFailed))
			f.record(ctx, ActivityEventLoginFailure, map[string]any{
				"email": creds.Email,
				"error": ErrorMessage(err),
			})
		},
	})

	return err
}

// SubmitCode submits the two-factor form and, when the code is accepted,
// moves to the authenticated step.
func (f *Flow) SubmitCode(ctx context.Context) error {
	form := f.TwoFactorForm()
	if form == nil {
		return ErrNoTwoFactorForm
	}

	code, err := form.Submit()
	if err != nil {
		return err
	}

	mounted := f.mountedForms()
	return f.auth.VerifyTwoFactor(ctx, code, Hooks{
		OnSuccess: func() {
			if err := f.move(ctx, StepTwoFactor, StepAuthenticated); err != nil {
				f.logger.Error("flow: enter authenticated step: %v", err)
				return
			}
			f.notifier.Success(MessageWelcome, WelcomeToastDuration)
			f.record(ctx, ActivityEventTwoFactorSuccess, nil)
		},
		OnError: func(err error) {
			if f.mountedForms() != mounted {
				return
			}
			f.notifier.Error(toastMessage(err, MessageInvalidCode))
			f.record(ctx, ActivityEventTwoFactorFailure, map[string]any{"error": ErrorMessage(err)})
		},
	})
}

// RequestNewCode asks the API for a new code and resets the two-factor
// form.
func (f *Flow) RequestNewCode(ctx context.Context) error {
	form := f.TwoFactorForm()
	if form == nil {
		return ErrNoTwoFactorForm
	}
	return form.RequestNewCode(ctx)
}

// Back returns from the two-factor step to a fresh login form and clears
// the surfaced error. Verification or code requests still in flight are
// dropped when they settle.
func (f *Flow) Back(ctx context.Context) error {
	return f.move(ctx, StepTwoFactor, StepLogin)
}

// Close tears the flow down. Calls still in flight become inert.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	form := f.twoFactor
	f.twoFactor = nil
	f.mu.Unlock()

	f.auth.Close()
	if form != nil {
		form.Close()
	}
	f.notifier.Close()
}

func (f *Flow) move(ctx context.Context, from, to Step) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}

	transition, err := f.steps.Transition(from, to)
	if err != nil {
		f.mu.Unlock()
		return err
	}

	previous := f.twoFactor
	f.twoFactor = nil
	f.login = nil
	f.mounted++

	switch to {
	case StepLogin:
		f.auth.Invalidate()
		f.login = f.newLoginForm()
	case StepTwoFactor:
		f.twoFactor = f.newTwoFactorForm()
	}
	f.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	f.record(ctx, ActivityEventStepChanged, map[string]any{
		"from": transition.From,
		"to":   transition.To,
	})
	f.renderer.Render(to)

	return nil
}

func (f *Flow) newLoginForm() *LoginForm {
	return NewLoginForm(
		WithLoginStatus(f.auth),
		WithLoginErrorReset(f.auth.ResetError),
		WithLoginLogger(f.logger),
	)
}

func (f *Flow) newTwoFactorForm() *TwoFactorForm {
	opts := []TwoFactorOption{
		WithTwoFactorStatus(f.auth),
		WithTwoFactorErrorReset(f.auth.ResetError),
		WithFocuser(f.focuser),
		WithCodeRequester(f.requestCode),
		WithTwoFactorLogger(f.logger),
	}
	opts = append(opts, f.twoFactorOpts...)
	return NewTwoFactorForm(opts...)
}

func (f *Flow) requestCode(ctx context.Context) {
	mounted := f.mountedForms()

	err := f.api.RequestNewCode(ctx)
	if current := f.mountedForms(); current == 0 || current != mounted {
		f.logger.Debug("flow: dropping code request result for an unmounted form")
		return
	}

	if err != nil {
		f.notifier.Error(toastMessage(err, MessageCodeRequestFailed))
		f.logger.Error("flow: request new code: %v", err)
		return
	}

	f.notifier.Success(MessageCodeSent)
	f.record(ctx, ActivityEventCodeRequested, nil)
}

// mountedForms changes every time the forms are swapped. It is zero once
// the flow is closed.
func (f *Flow) mountedForms() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0
	}
	return f.mounted + 1
}

func (f *Flow) record(ctx context.Context, eventType ActivityEventType, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		ToStep:     f.steps.Current(),
		Metadata:   metadata,
		OccurredAt: f.now(),
	}
	if from, ok := metadata["from"].(Step); ok {
		event.FromStep = from
	}

	if err := f.activity.Record(ctx, event); err != nil {
		f.logger.Error("flow activity sink error: %v", err)
	}
}

func toastMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Message != "" {
			return richErr.Message
		}
		return fallback
	}

	if msg := err.Error(); msg != "" {
		return msg
	}

	return fallback
}
