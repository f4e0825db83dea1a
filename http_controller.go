package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// User-facing response texts.
const (
	MsgSignupSuccess = "Signup successful! OTP sent to your campus email."
	MsgVerifySuccess = "Account verified successfully! You can now log in."
)

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.Signup, controller.SignupPost).
		SetName("signup.post")

	app.
		Post(controller.Routes.VerifyOTP, controller.VerifyOTPPost).
		SetName("verify-otp.post")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("login.post")
}

type AuthControllerRoutes struct {
	Signup    string
	VerifyOTP string
	Login     string
}

type AuthController struct {
	Debug         bool
	Logger        Logger
	Repo          RepositoryManager
	Auther        Authenticator
	Notifier      Notifier
	Groups        *GroupSynchronizer
	Activity      ActivitySink
	Domain        string
	PhoneRegion   string
	OTPWindow     time.Duration
	NotifyTimeout time.Duration
	RoleHint      UserRole
	Routes        *AuthControllerRoutes
	ErrorHandler  router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Signup:    "/signup",
			VerifyOTP: "/verify-otp",
			Login:     "/login",
		},
	}
	c.ErrorHandler = c.respondError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerNotifier(notifier Notifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Notifier = notifier
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerDomain(domain string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Domain = domain
		return c
	}
}

// WithControllerConfig applies a Config's knobs in one step. Later
// options still override individual fields.
func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if cfg == nil {
			return c
		}
		c.Domain = cfg.GetInstitutionalDomain()
		c.PhoneRegion = cfg.GetPhoneRegion()
		c.OTPWindow = cfg.GetOTPWindow()
		c.NotifyTimeout = cfg.GetCommandTimeout()
		return c
	}
}

// WithControllerRoleHint pins the login route to one role, so a
// deployment serving a single audience rejects accounts that belong
// to another one.
func WithControllerRoleHint(role UserRole) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.RoleHint = role
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

func WithControllerGroupSynchronizer(groups *GroupSynchronizer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Groups = groups
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// SignupPayload is the signup request body
type SignupPayload struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone" json:"phone"`
	Role     string `form:"role" json:"role"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Username, validation.Length(1, 150)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Role, validation.In("", string(RoleGeneralPublic), string(RoleStudent), string(RoleStaff), string(RoleAdmin))),
	)
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignupPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": "Failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("signup validate payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGNUP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==========================")
	}

	var res *RegisterUserResponse

	req := RegisterUserMessage{
		Username: payload.Username,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Role:     payload.Role,
		Password: payload.Password,
		OnResponse: func(r *RegisterUserResponse) {
			res = r
		},
	}

	registerUser := RegisterUserHandler{
		Repo:          a.Repo,
		Notifier:      a.Notifier,
		Groups:        a.Groups,
		Activity:      a.Activity,
		Logger:        a.Logger,
		Domain:        a.Domain,
		PhoneRegion:   a.PhoneRegion,
		NotifyTimeout: a.NotifyTimeout,
	}

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("signup error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	body := router.ViewContext{
		"message": MsgSignupSuccess,
	}
	if res != nil && res.User != nil {
		body["user"] = res.User.Summary()
	}

	return ctx.JSON(fiber.StatusCreated, body)
}

// VerifyOTPPayload is the verification request body
type VerifyOTPPayload struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"otp" json:"otp"`
}

// Validate will validate the payload
func (r VerifyOTPPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(OTPCodeLength, OTPCodeLength), is.Digit),
	)
}

func (a *AuthController) VerifyOTPPost(ctx router.Context) error {
	payload := new(VerifyOTPPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("verify otp parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": "Failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("verify otp validate payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	req := VerifyOTPMessage{
		Email: payload.Email,
		Code:  payload.Code,
	}

	verifyOTP := VerifyOTPHandler{
		Repo:     a.Repo,
		Activity: a.Activity,
		Logger:   a.Logger,
		Window:   a.OTPWindow,
	}

	if err := verifyOTP.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("verify otp error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"message": MsgVerifySuccess,
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Role     string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Role, validation.In("", string(RoleGeneralPublic), string(RoleStudent), string(RoleStaff), string(RoleAdmin))),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"error": "Failed to parse request body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("login validate payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload.Email))
		fmt.Println("=========================")
	}

	// the request's role takes precedence over the deployment-level hint
	roleHint := a.RoleHint
	if payload.Role != "" {
		roleHint = UserRole(payload.Role)
	}

	result, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password, roleHint)
	if err != nil {
		a.Logger.Error("login error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

// respondError maps application errors to JSON responses. The status
// comes from the error's category so handlers never hardcode HTTP
// codes next to business rules.
func (a *AuthController) respondError(ctx router.Context, err error) error {
	status := HTTPStatusFromError(err)

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		body := router.ViewContext{
			"error": richErr.Message,
		}
		if richErr.TextCode != "" {
			body["text_code"] = richErr.TextCode
		}
		return ctx.JSON(status, body)
	}

	return ctx.JSON(status, router.ViewContext{
		"error": "An unexpected server error occurred",
	})
}

// HTTPStatusFromError resolves the response status for an application
// error.
func HTTPStatusFromError(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return fiber.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		switch richErr.TextCode {
		case TextCodeNotVerified, TextCodeRoleMismatch:
			return fiber.StatusForbidden
		case TextCodeInvalidToken:
			return fiber.StatusUnauthorized
		default:
			return fiber.StatusBadRequest
		}
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	case goerrors.CategoryNotFound:
		return fiber.StatusBadRequest
	case goerrors.CategoryOperation:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verr, ok := err.(validation.Errors); ok {
		for field, ferr := range verr {
			out[field] = ferr.Error()
		}
		return out
	}

	out["_"] = err.Error()
	return out
}
