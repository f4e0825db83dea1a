package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string, roleHint ...UserRole) (*LoginResult, error)
	IdentityFromToken(ctx context.Context, key string) (Identity, error)
}

// Config holds auth options
type Config interface {
	GetInstitutionalDomain() string
	GetOTPWindow() time.Duration
	GetPhoneRegion() string
	GetCommandTimeout() time.Duration
}

// LoginResult is what a successful login returns: the bearer token
// plus the public account summary.
type LoginResult struct {
	Token    string    `json:"token"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     UserRole  `json:"role"`
	Email    string    `json:"email"`
}

// SimpleConfig is a plain-struct Config implementation.
type SimpleConfig struct {
	InstitutionalDomain string
	OTPWindow           time.Duration
	PhoneRegion         string
	CommandTimeout      time.Duration
}

func (c SimpleConfig) GetInstitutionalDomain() string {
	if c.InstitutionalDomain == "" {
		return DefaultInstitutionalDomain
	}
	return c.InstitutionalDomain
}

func (c SimpleConfig) GetOTPWindow() time.Duration {
	if c.OTPWindow <= 0 {
		return DefaultOTPWindow
	}
	return c.OTPWindow
}

func (c SimpleConfig) GetPhoneRegion() string {
	if c.PhoneRegion == "" {
		return DefaultPhoneRegion
	}
	return c.PhoneRegion
}

func (c SimpleConfig) GetCommandTimeout() time.Duration {
	if c.CommandTimeout <= 0 {
		return defaultCommandTimeout
	}
	return c.CommandTimeout
}

var _ Config = SimpleConfig{}

// defaultCommandTimeout bounds every command's store interaction.
const defaultCommandTimeout = time.Second * 10

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
