package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// DefaultOTPWindow is how long a challenge stays usable after it is
// created. Expired-but-matching codes fail with ErrOTPExpired so the
// client can prompt for a resend.
const DefaultOTPWindow = 10 * time.Minute

// OTPCodeLength is the number of digits in a challenge code.
const OTPCodeLength = 6

const otpCodeSpace = 1000000

// RandomSource is the injected randomness capability behind OTP
// generation. Tests supply deterministic sequences; production uses
// the crypto-backed default.
type RandomSource interface {
	// Intn returns a uniform random int in [0, n).
	Intn(n int) int
}

// RandomSourceFunc adapts a function to the RandomSource interface.
type RandomSourceFunc func(n int) int

// Intn implements RandomSource.
func (f RandomSourceFunc) Intn(n int) int { return f(n) }

type cryptoSource struct{}

func (cryptoSource) Intn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the platform source is broken;
		// there is no usable fallback for a credential.
		panic(fmt.Sprintf("auth: random source failure: %v", err))
	}
	return int(v.Int64())
}

// DefaultRandomSource is the crypto/rand backed source.
var DefaultRandomSource RandomSource = cryptoSource{}

// GenerateOTPCode returns a zero-padded 6 digit code between "000000"
// and "999999". Collisions with prior unused codes are acceptable
// and not specially handled.
func GenerateOTPCode(src RandomSource) string {
	if src == nil {
		src = DefaultRandomSource
	}
	return fmt.Sprintf("%0*d", OTPCodeLength, src.Intn(otpCodeSpace))
}

// ExpiresAt returns the instant the challenge stops being usable.
func (c *OTPChallenge) ExpiresAt(window time.Duration) time.Time {
	if window <= 0 {
		window = DefaultOTPWindow
	}
	return c.CreatedAt.Add(window)
}

// Expired reports whether the challenge is outside its validity window.
func (c *OTPChallenge) Expired(now time.Time, window time.Duration) bool {
	return now.After(c.ExpiresAt(window))
}

// Consumable reports whether the challenge could still satisfy a
// verification: unused and inside the window.
func (c *OTPChallenge) Consumable(now time.Time, window time.Duration) bool {
	return c != nil && !c.Used && !c.Expired(now, window)
}
