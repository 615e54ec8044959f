package loginpage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Key is a navigation key handled by the code inputs
type Key string

const (
	KeyBackspace  Key = "Backspace"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
)

// TwoFactorView is the render model of the two-factor form
type TwoFactorView struct {
	Code            [CodeLength]string
	TimeLeft        time.Duration
	SecondsLeft     string
	Expired         bool
	Disabled        bool
	Invalid         bool
	CanSubmit       bool
	ShowSubmit      bool
	ShowRequestCode bool
	Loading         bool
	Error           string
}

// TwoFactorOption customizes a TwoFactorForm
type TwoFactorOption func(*TwoFactorForm)

// WithCodeExpiration sets how long a code stays valid
func WithCodeExpiration(d time.Duration) TwoFactorOption {
	return func(f *TwoFactorForm) {
		f.expiration = d
	}
}

// WithCountdownInterval sets the wall clock interval between ticks. Each
// tick always subtracts CountdownStep.
func WithCountdownInterval(d time.Duration) TwoFactorOption {
	return func(f *TwoFactorForm) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithManualTicks disables the internal ticker. The owner drives the
// countdown by calling Tick.
func WithManualTicks() TwoFactorOption {
	return func(f *TwoFactorForm) {
		f.manualTicks = true
	}
}

// WithFocuser sets the focus target for focus intents
func WithFocuser(focuser Focuser) TwoFactorOption {
	return func(f *TwoFactorForm) {
		if focuser != nil {
			f.focuser = focuser
		}
	}
}

// WithTwoFactorStatus sets the source for server error and loading
func WithTwoFactorStatus(status AuthStatus) TwoFactorOption {
	return func(f *TwoFactorForm) {
		if status != nil {
			f.status = status
		}
	}
}

// WithTwoFactorErrorReset sets the hook invoked when a slot edit should
// clear the server error.
func WithTwoFactorErrorReset(reset func()) TwoFactorOption {
	return func(f *TwoFactorForm) {
		f.resetError = reset
	}
}

// WithCodeSubmit sets the handler invoked with a complete code
func WithCodeSubmit(handler func(code string)) TwoFactorOption {
	return func(f *TwoFactorForm) {
		f.onSubmit = handler
	}
}

// WithCodeRequester sets the callback run when the user asks for a new code
func WithCodeRequester(requester func(ctx context.Context)) TwoFactorOption {
	return func(f *TwoFactorForm) {
		f.requester = requester
	}
}

// WithTwoFactorChange sets a callback invoked after every countdown tick
func WithTwoFactorChange(onChange func()) TwoFactorOption {
	return func(f *TwoFactorForm) {
		f.onChange = onChange
	}
}

// WithTwoFactorLogger overrides the form logger
func WithTwoFactorLogger(logger Logger) TwoFactorOption {
	return func(f *TwoFactorForm) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// TwoFactorForm tracks the six code slots and the code countdown.
// Focus changes are emitted as intents to the configured Focuser.
type TwoFactorForm struct {
	mu          sync.Mutex
	code        [CodeLength]string
	countdown   Countdown
	expiration  time.Duration
	interval    time.Duration
	manualTicks bool
	stopTicker  chan struct{}
	tickerGen   uint64
	closed      bool

	focuser    Focuser
	status     AuthStatus
	resetError func()
	onSubmit   func(string)
	requester  func(context.Context)
	onChange   func()
	logger     Logger
}

// NewTwoFactorForm returns a form with empty slots and a running countdown
func NewTwoFactorForm(opts ...TwoFactorOption) *TwoFactorForm {
	f := &TwoFactorForm{
		expiration: DefaultCodeExpiration,
		interval:   CountdownStep,
		focuser:    noopFocuser{},
		status:     idleStatus{},
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	f.mu.Lock()
	f.countdown = NewCountdown(f.expiration)
	f.restartTicker()
	f.mu.Unlock()

	return f
}

// Input stores the last digit of value in slot index. Non digits are
// dropped, so a value without digits clears the slot.
func (f *TwoFactorForm) Input(index int, value string) {
	if index < 0 || index >= CodeLength {
		return
	}

	f.mu.Lock()
	if f.closed || f.countdown.Expired() {
		f.mu.Unlock()
		return
	}

	digits := onlyDigits(value)
	digit := ""
	if digits != "" {
		digit = digits[len(digits)-1:]
	}
	f.code[index] = digit
	f.mu.Unlock()

	f.clearServerError()

	if digit != "" && index < CodeLength-1 {
		f.focuser.Focus(index + 1)
	}
}

// KeyDown moves focus for navigation keys. It reports whether the key was
// handled, in which case the default key action should be suppressed.
func (f *TwoFactorForm) KeyDown(index int, key Key) bool {
	if index < 0 || index >= CodeLength {
		return false
	}

	f.mu.Lock()
	if f.closed || f.countdown.Expired() {
		f.mu.Unlock()
		return false
	}
	empty := f.code[index] == ""
	f.mu.Unlock()

	target := -1
	switch key {
	case KeyBackspace:
		if empty && index > 0 {
			target = index - 1
		}
	case KeyArrowLeft:
		if index > 0 {
			target = index - 1
		}
	case KeyArrowRight:
		if index < CodeLength-1 {
			target = index + 1
		}
	}

	if target < 0 {
		return false
	}

	f.focuser.Focus(target)
	return true
}

// Paste fills the slots from the digits found in text. Previous slot
// values are discarded. It never submits. It reports how many digits
// were used.
func (f *TwoFactorForm) Paste(text string) int {
	digits := onlyDigits(text)
	if len(digits) > CodeLength {
		digits = digits[:CodeLength]
	}
	if digits == "" {
		return 0
	}

	f.mu.Lock()
	if f.closed || f.countdown.Expired() {
		f.mu.Unlock()
		return 0
	}

	f.code = [CodeLength]string{}
	for i, r := range digits {
		f.code[i] = string(r)
	}
	f.mu.Unlock()

	f.clearServerError()
	f.focuser.Focus(min(len(digits), 1))

	return len(digits)
}

// Submit returns the complete code and invokes the submit handler. It
// fails when the code is incomplete, expired or a call is pending.
func (f *TwoFactorForm) Submit() (string, error) {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return "", ErrClosed
	case f.countdown.Expired():
		f.mu.Unlock()
		return "", ErrCodeExpired
	case f.status.IsLoading():
		f.mu.Unlock()
		return "", ErrLoading
	case !IsValidCode(f.code[:]):
		f.mu.Unlock()
		return "", ErrCodeIncomplete
	}

	code := strings.Join(f.code[:], "")
	handler := f.onSubmit
	f.mu.Unlock()

	if handler != nil {
		handler(code)
	}

	return code, nil
}

// RequestNewCode runs the code requester, then restarts the countdown,
// clears the slots and focuses the first slot.
func (f *TwoFactorForm) RequestNewCode(ctx context.Context) error {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return ErrClosed
	case f.requester == nil:
		f.mu.Unlock()
		return ErrNoCodeRequester
	case f.status.IsLoading():
		f.mu.Unlock()
		return ErrLoading
	}
	requester := f.requester
	f.mu.Unlock()

	requester(ctx)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.countdown.Reset(f.expiration)
	f.code = [CodeLength]string{}
	f.restartTicker()
	f.mu.Unlock()

	f.clearServerError()
	f.focuser.Focus(0)

	return nil
}

// Tick advances the countdown by one step. It reports whether the
// countdown is still running.
func (f *TwoFactorForm) Tick() bool {
	f.mu.Lock()
	running := f.tickLocked()
	f.mu.Unlock()

	f.notifyChange()
	return running
}

// Close stops the countdown. Later events are ignored.
func (f *TwoFactorForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.stopTickerLocked()
}

// Code returns a copy of the slots
func (f *TwoFactorForm) Code() [CodeLength]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

// TimeLeft returns the remaining time of the current code
func (f *TwoFactorForm) TimeLeft() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countdown.Remaining()
}

// Expired reports whether the current code expired
func (f *TwoFactorForm) Expired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countdown.Expired()
}

// CanSubmit reports whether the submit action is enabled
func (f *TwoFactorForm) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmitLocked()
}

// Snapshot returns the render model of the form
func (f *TwoFactorForm) Snapshot() TwoFactorView {
	f.mu.Lock()
	defer f.mu.Unlock()

	expired := f.countdown.Expired()
	valid := IsValidCode(f.code[:])
	canSubmit := f.canSubmitLocked()
	filled := false
	for _, slot := range f.code {
		if slot != "" {
			filled = true
			break
		}
	}

	return TwoFactorView{
		Code:            f.code,
		TimeLeft:        f.countdown.Remaining(),
		SecondsLeft:     FormatSeconds(f.countdown.Remaining()),
		Expired:         expired,
		Disabled:        expired,
		Invalid:         !valid && filled,
		CanSubmit:       canSubmit,
		ShowSubmit:      !expired && canSubmit,
		ShowRequestCode: expired && f.requester != nil,
		Loading:         f.status.IsLoading(),
		Error:           f.status.ErrorMessage(),
	}
}

func (f *TwoFactorForm) canSubmitLocked() bool {
	return !f.closed &&
		!f.countdown.Expired() &&
		!f.status.IsLoading() &&
		IsValidCode(f.code[:])
}

func (f *TwoFactorForm) tickLocked() bool {
	if f.closed {
		return false
	}
	running := f.countdown.Tick()
	if !running {
		f.stopTickerLocked()
	}
	return running
}

// restartTicker must be called with f.mu held. Any previous ticker is
// stopped before a new one starts.
func (f *TwoFactorForm) restartTicker() {
	f.stopTickerLocked()
	if f.manualTicks || f.closed || f.countdown.Expired() {
		return
	}

	f.tickerGen++
	gen := f.tickerGen
	stop := make(chan struct{})
	f.stopTicker = stop

	go f.runTicker(gen, stop)
}

func (f *TwoFactorForm) stopTickerLocked() {
	if f.stopTicker != nil {
		close(f.stopTicker)
		f.stopTicker = nil
	}
}

func (f *TwoFactorForm) runTicker(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f.mu.Lock()
			if gen != f.tickerGen || f.stopTicker == nil {
				f.mu.Unlock()
				return
			}
			running := f.tickLocked()
			f.mu.Unlock()

			f.notifyChange()
			if !running {
				return
			}
		}
	}
}

func (f *TwoFactorForm) notifyChange() {
	if f.onChange != nil {
		f.onChange()
	}
}

func (f *TwoFactorForm) clearServerError() {
	if f.resetError == nil || f.status.ErrorMessage() == "" {
		return
	}
	f.resetError()
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
