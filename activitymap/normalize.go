// Package activitymap flattens flow activity events into a transport
// agnostic record for log pipelines and audit stores.
package activitymap

import (
	"strings"
	"time"

	loginpage "github.com/MamBoota/LoginPage"
)

const (
	// MetadataKeyEmail carries the submitted email on login events.
	MetadataKeyEmail = "email"
	// MetadataKeyFromStep stores the source step of a transition.
	MetadataKeyFromStep = "from_step"
	// MetadataKeyToStep stores the step active after the event.
	MetadataKeyToStep = "to_step"
)

const (
	defaultChannel = "login"
	defaultActorID = "anonymous"
)

// Normalized is a flat activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	actorFallback string
	actorResolver func(loginpage.ActivityEvent) string
	now           func() time.Time
}

// Normalize converts a flow ActivityEvent into a Normalized record.
func Normalize(event loginpage.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(options.actorResolver(event)),
		strings.TrimSpace(options.actorFallback),
	)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithDefaultChannel sets the channel of normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorResolver overrides actor extraction. The default reads the
// email metadata.
func WithActorResolver(resolver func(loginpage.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		if resolver != nil {
			opts.actorResolver = resolver
		}
	}
}

// WithActorFallback sets the actor id used when the resolver finds none.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock stamps events that carry no time.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		actorResolver: emailActor,
		now:           time.Now,
	}
}

func emailActor(event loginpage.ActivityEvent) string {
	email, _ := event.Metadata[MetadataKeyEmail].(string)
	return email
}

// normalizeMetadata copies the event metadata, replacing the typed
// from/to step values with their string form.
func normalizeMetadata(event loginpage.ActivityEvent) map[string]any {
	var metadata map[string]any
	for key, value := range event.Metadata {
		if key == "from" || key == "to" {
			continue
		}
		if metadata == nil {
			metadata = make(map[string]any, len(event.Metadata))
		}
		metadata[key] = value
	}

	set := func(key string, step loginpage.Step) {
		if step == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = string(step)
	}
	set(MetadataKeyFromStep, event.FromStep)
	set(MetadataKeyToStep, event.ToStep)

	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
