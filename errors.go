package auth

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so transports and clients
// can branch without string matching.
const (
	TextCodeInvalidDomain   = "INVALID_EMAIL_DOMAIN"
	TextCodeDuplicateField  = "DUPLICATE_FIELD"
	TextCodeInvalidRole     = "INVALID_ROLE"
	TextCodeInvalidOTP      = "INVALID_OTP_OR_EMAIL"
	TextCodeOTPExpired      = "OTP_EXPIRED"
	TextCodeNoAccount       = "NO_ACCOUNT"
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeNotVerified     = "ACCOUNT_NOT_VERIFIED"
	TextCodeRoleMismatch    = "ROLE_MISMATCH"
	TextCodeTooManyAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeUnavailable     = "UPSTREAM_UNAVAILABLE"
	TextCodeInvalidToken    = "INVALID_TOKEN"
)

// ErrInvalidEmailDomain is returned when a registration email is not
// on the configured institutional domain.
var ErrInvalidEmailDomain = goerrors.New("invalid email domain", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidDomain).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRole is returned when a role outside the fixed
// enumeration is supplied.
var ErrInvalidRole = goerrors.New("unknown or invalid role", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidOTPOrEmail covers unknown account, wrong code and
// already-used code during verification. The message is intentionally
// identical for all three so account existence never leaks.
var ErrInvalidOTPOrEmail = goerrors.New("invalid otp or email", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidOTP).
	WithCode(goerrors.CodeBadRequest)

// ErrOTPExpired is returned when the code matches but its validity
// window elapsed, so clients can prompt for a resend instead of a retry.
var ErrOTPExpired = goerrors.New("otp code expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeOTPExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrNoAccount is returned by login when no account exists for the email.
var ErrNoAccount = goerrors.New("no account found for this email", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoAccount).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned by login on a password mismatch.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeBadRequest)

// ErrNotVerified blocks login until the account passed OTP verification.
var ErrNotVerified = goerrors.New("account pending otp verification", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotVerified).
	WithCode(goerrors.CodeForbidden)

// ErrRoleMismatch is returned when a login role hint differs from the
// stored role. A UX guard, not a security boundary: the stored role is
// authoritative either way.
var ErrRoleMismatch = goerrors.New("account is not registered under this role", goerrors.CategoryAuth).
	WithTextCode(TextCodeRoleMismatch).
	WithCode(goerrors.CodeForbidden)

// ErrTooManyLoginAttempts throttles repeated failed logins.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrUnavailable signals a transient store or notifier failure that is
// safe to retry.
var ErrUnavailable = goerrors.New("service temporarily unavailable", goerrors.CategoryOperation).
	WithTextCode(TextCodeUnavailable)

// ErrInvalidToken is returned when a bearer token cannot be resolved.
var ErrInvalidToken = goerrors.New("invalid or unknown token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString guards hashing of empty passwords.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput)

// DuplicateFieldError builds the field-scoped validation error for a
// username or email that already exists.
func DuplicateFieldError(field string) error {
	return goerrors.New("an account with this "+field+" already exists", goerrors.CategoryConflict).
		WithTextCode(TextCodeDuplicateField).
		WithCode(goerrors.CodeConflict).
		WithMetadata(map[string]any{"field": field})
}

// WrapStoreError maps deadline and cancellation failures from the
// durable store onto the transient unavailable kind, and everything
// else onto an internal error.
func WrapStoreError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
			WithTextCode(TextCodeUnavailable)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

// IsUnavailable reports whether the error is the transient,
// retry-safe kind.
func IsUnavailable(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == TextCodeUnavailable
	}
	return false
}
