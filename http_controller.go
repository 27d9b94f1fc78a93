package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// SessionIssuer exchanges credentials for an access token
type SessionIssuer interface {
	Login(ctx context.Context, identity, password string) (*TokenResponse, error)
	LoginForm(ctx context.Context, username, password string) (*TokenResponse, error)
}

// AccountRegisterer creates credential records
type AccountRegisterer interface {
	Execute(ctx context.Context, msg RegisterUserMessage) (*UserResponse, error)
}

// RegisterAuthRoutes mounts the auth and current user endpoints on app
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Health, controller.Health).SetName("health.get")

	app.Post(controller.Routes.Register, controller.RegistrationCreate).SetName("register.post")
	app.Post(controller.Routes.Login, controller.LoginPost).SetName("sign-in.post")
	app.Post(controller.Routes.Token, controller.TokenPost).SetName("token.post")

	app.Get(controller.Routes.Me, controller.MeShow, controller.Protected).SetName("me.get")
	app.Put(controller.Routes.Me, controller.MeUpdate, controller.Protected).SetName("me.put")

	return controller
}

type AuthControllerRoutes struct {
	Register string
	Login    string
	Token    string
	Me       string
	Health   string
}

type AuthController struct {
	Debug         bool
	Logger        Logger
	Store         UserStore
	Auther        SessionIssuer
	Registerer    AccountRegisterer
	Protected     router.MiddlewareFunc
	Routes        *AuthControllerRoutes
	DefaultRegion string
	Now           func() time.Time
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithStore(store UserStore) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Store = store
		return c
	}
}

func WithAuther(auther SessionIssuer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithRegisterer(registerer AccountRegisterer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Registerer = registerer
		return c
	}
}

// WithProtectedRoute sets the middleware guarding the current user routes
func WithProtectedRoute(mw router.MiddlewareFunc) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Protected = mw
		return c
	}
}

func WithRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// WithDefaultRegion sets the region used to parse phone numbers without a
// country prefix.
func WithDefaultRegion(region string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if region != "" {
			c.DefaultRegion = strings.ToUpper(region)
		}
		return c
	}
}

func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger,
		Routes: &AuthControllerRoutes{
			Register: "/api/auth/register",
			Login:    "/api/auth/login",
			Token:    "/api/auth/token",
			Me:       "/api/users/me",
			Health:   "/health",
		},
		DefaultRegion: "US",
		Now:           time.Now,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Store == nil {
		panic("Missing UserStore in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing SessionIssuer in auth controller...")
	}

	if c.Registerer == nil {
		panic("Missing AccountRegisterer in auth controller...")
	}

	if c.Protected == nil {
		panic("Missing protected route middleware in auth controller...")
	}

	return c
}

func (a *AuthController) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{"status": "healthy"})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.EmailFormat,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("login parse payload", "error", err)
		return ErrUnableToParseData
	}

	if err := payload.Validate(); err != nil {
		return goerrors.FromOzzoValidation(err, "invalid login payload")
	}

	res, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, res)
}

// TokenRequest is the OAuth2 password grant form, username holds the email
type TokenRequest struct {
	GrantType string `form:"grant_type"`
	Username  string `form:"username"`
	Password  string `form:"password"`
	Scope     string `form:"scope"`
}

// Validate will run validation rules
func (r TokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.GrantType, validation.In("password")),
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) TokenPost(ctx router.Context) error {
	payload := new(TokenRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("token parse payload", "error", err)
		return ErrUnableToParseData
	}

	if err := payload.Validate(); err != nil {
		return goerrors.FromOzzoValidation(err, "invalid token request")
	}

	res, err := a.Auther.LoginForm(ctx.Context(), payload.Username, payload.Password)
	if err != nil {
		return err
	}

	ctx.SetHeader("Cache-Control", "no-store")
	return ctx.JSON(router.StatusOK, res)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegisterUserMessage)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("register user parse payload", "error", err)
		return ErrUnableToParseData
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Debug("register user validate payload", "error", err)
		return goerrors.FromOzzoValidation(err, "invalid registration payload")
	}

	if a.Debug {
		a.Logger.Debug("register user", "email", NormalizeIdentity(payload.Email))
	}

	res, err := a.Registerer.Execute(ctx.Context(), *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, res)
}

func (a *AuthController) MeShow(ctx router.Context) error {
	user, ok := CurrentUser(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	return ctx.JSON(router.StatusOK, user.ToResponse())
}

// UpdateProfileRequest is a partial update of the current user, absent
// sections are left untouched.
type UpdateProfileRequest struct {
	Profile *UserProfile `json:"profile,omitempty"`
	Skills  *UserSkills  `json:"skills,omitempty"`
	Goals   *UserGoals   `json:"goals,omitempty"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Profile),
		validation.Field(&r.Goals),
	)
}

// Validate checks profile fields
func (p UserProfile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Length(0, 200)),
		validation.Field(&p.LastName, validation.Length(0, 200)),
		validation.Field(&p.Bio, validation.Length(0, 2000)),
		validation.Field(&p.GraduationYear, validation.When(p.GraduationYear != 0, validation.Min(1950), validation.Max(2100))),
		validation.Field(&p.LinkedinURL, is.URL),
		validation.Field(&p.GithubURL, is.URL),
		validation.Field(&p.PortfolioURL, is.URL),
	)
}

// Validate checks goal fields
func (g UserGoals) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.CareerLevel, validation.In("entry", "mid", "senior", "lead", "executive")),
	)
}

func (a *AuthController) MeUpdate(ctx router.Context) error {
	user, ok := CurrentUser(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	payload := new(UpdateProfileRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("update profile parse payload", "error", err)
		return ErrUnableToParseData
	}

	if err := payload.Validate(); err != nil {
		return goerrors.FromOzzoValidation(err, "invalid profile payload")
	}

	if payload.Profile != nil && payload.Profile.Phone != "" {
		phone, err := NormalizePhone(payload.Profile.Phone, a.DefaultRegion)
		if err != nil {
			return err
		}
		payload.Profile.Phone = phone
	}

	patch := UserPatch{
		Profile: payload.Profile,
		Skills:  payload.Skills,
		Goals:   payload.Goals,
	}

	if a.Debug {
		a.Logger.Debug("update profile", "patch", print.MaybePrettyJSON(payload))
	}

	if !patch.IsEmpty() {
		if err := a.Store.UpdateFields(ctx.Context(), user.ID, patch); err != nil {
			if IsNotFound(err) {
				return ErrUnauthenticated
			}
			return asInternal(err, "failed to update profile")
		}
		patch.Apply(user, a.Now().UTC())
	}

	return ctx.JSON(router.StatusOK, user.ToResponse())
}

// NormalizePhone parses phone in region and formats it as E.164
func NormalizePhone(phone, region string) (string, error) {
	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithTextCode("INVALID_PHONE_NUMBER").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"field": "profile.phone"})
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
