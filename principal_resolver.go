package auth

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// PrincipalResolver recovers the calling user from a bearer token. It is
// the only source of identity for protected handlers.
type PrincipalResolver struct {
	store  UserStore
	tokens TokenService
	logger Logger
}

// NewPrincipalResolver returns a resolver over store and tokens
func NewPrincipalResolver(store UserStore, tokens TokenService) *PrincipalResolver {
	return &PrincipalResolver{
		store:  store,
		tokens: tokens,
		logger: defLogger,
	}
}

func (r *PrincipalResolver) WithLogger(l Logger) *PrincipalResolver {
	r.logger = normalizeLogger(l)
	return r
}

// Resolve validates bearer and loads the user named by its subject. Token
// problems and missing or disabled accounts all report ErrUnauthenticated,
// store failures are returned as internal errors.
func (r *PrincipalResolver) Resolve(ctx context.Context, bearer string) (user *User, err error) {
	ctx, span := startSpan(ctx, "auth.resolve_principal")
	defer func() { finishSpan(span, err) }()

	if bearer == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := r.tokens.Validate(bearer)
	if err != nil {
		r.logger.Debug("principal token rejected", "error", err)
		return nil, ErrUnauthenticated
	}

	subject := claims.Subject()
	if subject == "" {
		return nil, ErrUnauthenticated
	}

	user, err = r.store.FindByIdentity(ctx, subject)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUnauthenticated
		}
		r.logger.Error("principal lookup failed", "error", err)
		return nil, asInternal(err, "failed to load principal")
	}

	if !user.CanAuthenticate() {
		r.logger.Debug("principal account disabled", "user_id", user.ID.String())
		return nil, ErrUnauthenticated
	}

	span.SetAttributes(attribute.String("auth.user_id", user.ID.String()))
	return user, nil
}
