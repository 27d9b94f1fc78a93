package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"go.opentelemetry.io/otel/attribute"
)

// RegisterUserMessage carries a new account request
type RegisterUserMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	University string `json:"university,omitempty"`
	Major      string `json:"major,omitempty"`
	UseHashid  bool   `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks the message shape, it does not touch the store
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
		validation.Field(&e.Password, validation.Required, validation.By(maxBytes(MaxPasswordBytes))),
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.University, validation.Length(0, 200)),
		validation.Field(&e.Major, validation.Length(0, 200)),
	)
}

// RegisterUserHandler creates credential records
type RegisterUserHandler struct {
	store        UserStore
	hasher       PasswordHasher
	logger       Logger
	activitySink ActivitySink
	useHashid    bool
	timeout      time.Duration
	now          func() time.Time
}

// NewRegisterUserHandler returns a handler writing to store
func NewRegisterUserHandler(store UserStore) *RegisterUserHandler {
	return &RegisterUserHandler{
		store:        store,
		hasher:       defaultHasher,
		logger:       defLogger,
		activitySink: noopActivitySink{},
		timeout:      10 * time.Second,
		now:          time.Now,
	}
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	h.logger = normalizeLogger(l)
	return h
}

func (h *RegisterUserHandler) WithHasher(hasher PasswordHasher) *RegisterUserHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

// WithDeterministicIDs derives record IDs from the email
func (h *RegisterUserHandler) WithDeterministicIDs(enabled bool) *RegisterUserHandler {
	h.useHashid = enabled
	return h
}

func (h *RegisterUserHandler) WithClock(now func() time.Time) *RegisterUserHandler {
	if now != nil {
		h.now = now
	}
	return h
}

// Execute validates the message, registers the user and returns its public
// projection
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*UserResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
	}

	if err := event.Validate(); err != nil {
		return nil, goerrors.FromOzzoValidation(err, "invalid registration payload")
	}

	email := NormalizeIdentity(event.Email)
	ctx, span := startSpan(ctx, "auth.register")

	res, err := h.execute(ctx, email, event)
	if err == nil {
		span.SetAttributes(attribute.String("auth.user_id", res.ID))
	}
	finishSpan(span, err)

	if err != nil {
		emitActivity(ctx, h.activitySink, h.logger, ActivityEvent{
			EventType: ActivityEventRegisterFailure,
			Actor:     ActorRef{Type: "anonymous"},
			Metadata: map[string]any{
				"identifier": email,
				"error":      err.Error(),
			},
		})
		return nil, err
	}

	emitActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType: ActivityEventRegisterSuccess,
		Actor:     ActorRef{ID: res.ID, Type: "user"},
		UserID:    res.ID,
		Metadata:  map[string]any{"identifier": email},
	})

	return res, nil
}

func (h *RegisterUserHandler) execute(ctx context.Context, email string, event RegisterUserMessage) (*UserResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	existing, err := h.store.FindByIdentity(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrIdentityAlreadyExists
	case err != nil && !IsNotFound(err):
		return nil, asInternal(err, "failed to look up user")
	}

	hash, err := h.hasher.Hash(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	now := h.now().UTC()
	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleStudent,
		IsActive:     true,
		IsVerified:   false,
		Profile: UserProfile{
			FirstName:  event.FirstName,
			LastName:   event.LastName,
			University: event.University,
			Major:      event.Major,
		},
		Skills:    UserSkills{},
		Goals:     UserGoals{},
		Progress:  NewUserProgress(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if h.useHashid || event.UseHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		} else {
			h.logger.Warn("failed to derive user id", "error", err)
		}
	}

	id, err := h.store.Insert(ctx, user)
	if err != nil {
		if IsIdentityAlreadyExists(err) {
			return nil, ErrIdentityAlreadyExists
		}
		return nil, asInternal(err, "could not create user")
	}
	user.ID = id

	return user.ToResponse(), nil
}

func maxBytes(limit int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if len(s) > limit {
			return validation.NewError("validation_too_long", ErrPasswordTooLong.Message)
		}
		return nil
	}
}
