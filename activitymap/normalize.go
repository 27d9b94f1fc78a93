// Package activitymap converts auth activity events into a flat record that
// audit pipelines can ingest without knowing about auth types.
package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirableedge/go-auth"
)

const (
	// MetadataKeyActorType stores the actor type derived from auth.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyOutcome stores success or failure, taken from the event type suffix.
	MetadataKeyOutcome = "outcome"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(auth.ActivityEvent) string
}

// Normalize converts an auth.ActivityEvent into the flat record. The
// event's metadata map is copied, never modified.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(event.UserID),
		options.actorFallback,
	)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       verbOf(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(auth.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used when the event names no actor.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// Sink is an auth.ActivitySink writing normalized records as zerolog events
type Sink struct {
	logger zerolog.Logger
	opts   []Option
}

var _ auth.ActivitySink = (*Sink)(nil)

// NewSink returns a sink writing to logger at info level
func NewSink(logger zerolog.Logger, opts ...Option) *Sink {
	return &Sink{logger: logger, opts: opts}
}

func (s *Sink) Record(_ context.Context, event auth.ActivityEvent) error {
	record := Normalize(event, s.opts...)

	s.logger.Info().
		Str("actor_id", record.ActorID).
		Str("verb", record.Verb).
		Str("object_type", record.ObjectType).
		Str("object_id", record.ObjectID).
		Str("channel", record.Channel).
		Fields(record.Metadata).
		Time("occurred_at", record.OccurredAt).
		Msg("activity")

	return nil
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

// verbOf drops the outcome suffix, auth.login.failure becomes auth.login
func verbOf(eventType auth.ActivityEventType) string {
	verb := string(eventType)
	if i := strings.LastIndex(verb, "."); i > 0 {
		switch verb[i+1:] {
		case "success", "failure":
			return verb[:i]
		}
	}
	return verb
}

func outcomeOf(eventType auth.ActivityEventType) string {
	verb := string(eventType)
	if i := strings.LastIndex(verb, "."); i > 0 {
		switch outcome := verb[i+1:]; outcome {
		case "success", "failure":
			return outcome
		}
	}
	return ""
}

func resolveObjectID(event auth.ActivityEvent, resolver func(auth.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.UserID)
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}

	set(MetadataKeyActorType, strings.TrimSpace(event.Actor.Type))
	set(MetadataKeyOutcome, outcomeOf(event.EventType))

	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
