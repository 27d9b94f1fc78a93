package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/hirableedge/go-auth/middleware/jwtware"
)

// ErrorBody is the JSON error payload, wrapped as {"error": ErrorBody}
type ErrorBody struct {
	Message  string            `json:"message"`
	TextCode string            `json:"text_code,omitempty"`
	Category string            `json:"category"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// ErrorResponse is the envelope returned for every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewHTTPErrorHandler maps errors returned by route handlers to status codes
// and JSON bodies. Auth failures carry a Bearer challenge, internal failures
// never leak their cause. It is installed as the fiber app error handler.
func NewHTTPErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		richErr := toRichError(err)
		status := statusFor(richErr)

		body := ErrorBody{
			Message:  richErr.Message,
			TextCode: richErr.TextCode,
			Category: richErr.Category.String(),
		}

		if fields := richErr.ValidationMap(); len(fields) > 0 {
			body.Fields = fields
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error(
				"request failed",
				"error", err,
				"path", c.OriginalURL(),
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
			body.Message = "internal server error"
		case richErr.Category == errors.CategoryAuth:
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			logger.Debug("request unauthorized", "text_code", richErr.TextCode, "path", c.OriginalURL())
		}

		return c.Status(status).JSON(ErrorResponse{Error: body})
	}
}

func toRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return errors.New(fiberErr.Message, errors.HTTPStatusToCategory(fiberErr.Code)).
			WithCode(fiberErr.Code).
			WithTextCode(errors.HTTPStatusToTextCode(fiberErr.Code))
	}

	return errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred").
		WithCode(errors.CodeInternal)
}

func statusFor(richErr *errors.Error) int {
	if richErr.Category == errors.CategoryValidation {
		return fiber.StatusUnprocessableEntity
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryBadInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ProtectedRoute returns middleware that resolves the bearer token into the
// current user. Every rejection is reported as ErrUnauthenticated except
// store failures, which surface as internal errors.
func ProtectedRoute(resolver *PrincipalResolver, cfg Config) router.MiddlewareFunc {
	contextKey := cfg.GetContextKey()
	if contextKey == "" {
		contextKey = DefaultContextKey
	}

	return jwtware.New(jwtware.Config{
		ContextKey:  contextKey,
		TokenLookup: cfg.GetTokenLookup(),
		AuthScheme:  cfg.GetAuthScheme(),
		Resolver: func(ctx context.Context, token string) (any, error) {
			user, err := resolver.Resolve(ctx, token)
			if err != nil {
				return nil, err
			}
			return user, nil
		},
		ContextEnricher: func(ctx context.Context, principal any) context.Context {
			if user, ok := principal.(*User); ok {
				return WithContext(ctx, user)
			}
			return ctx
		},
		ErrorHandler: func(_ router.Context, err error) error {
			var richErr *errors.Error
			if errors.As(err, &richErr) && richErr.Category == errors.CategoryInternal {
				return richErr
			}
			return ErrUnauthenticated
		},
	})
}
