package loginpage

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess     ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure     ActivityEventType = "auth.login.failure"
	ActivityEventTwoFactorSuccess ActivityEventType = "auth.two_factor.success"
	ActivityEventTwoFactorFailure ActivityEventType = "auth.two_factor.failure"
	ActivityEventCodeRequested    ActivityEventType = "auth.two_factor.code_requested"
	ActivityEventStepChanged      ActivityEventType = "flow.step.changed"
)

// ActivityEvent captures audit-friendly information about a flow action.
type ActivityEvent struct {
	EventType  ActivityEventType
	FromStep   Step
	ToStep     Step
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
