package loginpage

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToastKind is the visual category of a toast
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
	ToastWarning ToastKind = "warning"
)

// DefaultToastDuration is how long a toast stays visible
const DefaultToastDuration = 3 * time.Second

// Toast is a transient notification
type Toast struct {
	ID        string        `json:"id"`
	Kind      ToastKind     `json:"kind"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// NotifierOption customizes a Notifier
type NotifierOption func(*Notifier)

// WithToastDuration overrides the default toast duration
func WithToastDuration(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.duration = d
		}
	}
}

// WithNotifierClock injects a custom clock (useful for tests).
func WithNotifierClock(clock func() time.Time) NotifierOption {
	return func(n *Notifier) {
		if clock != nil {
			n.now = clock
		}
	}
}

// WithToastsChanged sets a callback invoked with the current toasts after
// every change.
func WithToastsChanged(fn func([]Toast)) NotifierOption {
	return func(n *Notifier) {
		n.onChange = fn
	}
}

// Notifier keeps the visible toasts and dismisses each one after its
// duration.
type Notifier struct {
	mu       sync.Mutex
	toasts   []Toast
	timers   map[string]*time.Timer
	duration time.Duration
	now      func() time.Time
	onChange func([]Toast)
	closed   bool
}

// NewNotifier returns an empty notifier
func NewNotifier(opts ...NotifierOption) *Notifier {
	n := &Notifier{
		timers:   map[string]*time.Timer{},
		duration: DefaultToastDuration,
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}

	return n
}

// Success shows a success toast
func (n *Notifier) Success(message string, duration ...time.Duration) string {
	return n.Show(ToastSuccess, message, duration...)
}

// Error shows an error toast
func (n *Notifier) Error(message string, duration ...time.Duration) string {
	return n.Show(ToastError, message, duration...)
}

// Show adds a toast and schedules its dismissal. It returns the toast id,
// or an empty string once the notifier is closed.
func (n *Notifier) Show(kind ToastKind, message string, duration ...time.Duration) string {
	d := n.duration
	if len(duration) > 0 && duration[0] > 0 {
		d = duration[0]
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ""
	}

	toast := Toast{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		Duration:  d,
		CreatedAt: n.now(),
	}
	n.toasts = append(n.toasts, toast)

	id := toast.ID
	n.timers[id] = time.AfterFunc(d, func() {
		n.Dismiss(id)
	})
	snapshot := n.snapshotLocked()
	n.mu.Unlock()

	n.notify(snapshot)
	return id
}

// Dismiss removes the toast with id. It reports whether it was visible.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	idx := -1
	for i, t := range n.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}

	if idx < 0 {
		n.mu.Unlock()
		return false
	}

	n.toasts = append(n.toasts[:idx], n.toasts[idx+1:]...)
	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
	}
	snapshot := n.snapshotLocked()
	n.mu.Unlock()

	n.notify(snapshot)
	return true
}

// Toasts returns the visible toasts, oldest first
func (n *Notifier) Toasts() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshotLocked()
}

// Close stops every pending dismissal and drops the toasts
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, timer := range n.timers {
		timer.Stop()
		delete(n.timers, id)
	}
	n.toasts = nil
	n.closed = true
}

func (n *Notifier) snapshotLocked() []Toast {
	out := make([]Toast, len(n.toasts))
	copy(out, n.toasts)
	return out
}

func (n *Notifier) notify(toasts []Toast) {
	if n.onChange != nil {
		n.onChange(toasts)
	}
}
