package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess    ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure    ActivityEventType = "auth.login.failure"
	ActivityEventRegisterSuccess ActivityEventType = "auth.register.success"
	ActivityEventRegisterFailure ActivityEventType = "auth.register.failure"
)

// ActorRef identifies who triggered an event
type ActorRef struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
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

// LoggerActivitySink writes events to a Logger at info level
type LoggerActivitySink struct {
	logger Logger
}

// NewLoggerActivitySink returns a sink backed by logger
func NewLoggerActivitySink(logger Logger) *LoggerActivitySink {
	return &LoggerActivitySink{logger: normalizeLogger(logger)}
}

func (s *LoggerActivitySink) Record(_ context.Context, event ActivityEvent) error {
	args := []any{
		"event", string(event.EventType),
		"actor_type", event.Actor.Type,
		"occurred_at", event.OccurredAt.UTC().Format(time.RFC3339),
	}
	if event.UserID != "" {
		args = append(args, "user_id", event.UserID)
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}
	s.logger.Info("activity", args...)
	return nil
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

func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("activity sink record error: %v", err)
	}
}
