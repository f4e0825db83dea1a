package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"
	goerrors "github.com/goliatone/go-errors"
)

// OTPMailSubject is the subject line used for verification emails.
var OTPMailSubject = "AgriVision Email Verification"

// Notifier delivers a verification code to an account's campus
// address.
type Notifier interface {
	Send(ctx context.Context, address, code string) error
}

// SMTPNotifier sends OTP codes over SMTP. When the host is left empty
// the notifier is a logged no-op, so a dev environment without a mail
// relay still completes signups.
type SMTPNotifier struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	SSL                bool
	InsecureSkipVerify bool
	Timeout            time.Duration
	Logger             Logger
}

func NewSMTPNotifier(host string, port int, from, user, pass string) *SMTPNotifier {
	return &SMTPNotifier{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		Timeout: 10 * time.Second,
	}
}

func (s *SMTPNotifier) Send(ctx context.Context, address, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = defLogger{}
	}

	if s.Host == "" {
		logger.Warn("smtp host not configured, skipping otp delivery to %s", address)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before otp delivery")
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", address)
	m.SetHeader("Subject", OTPMailSubject)
	m.SetBody("text/plain", fmt.Sprintf("Your OTP is: %s", code))

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.SSL = s.SSL
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify,
	}
	if s.Timeout > 0 {
		d.Timeout = s.Timeout
	}

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during otp delivery")
	case err := <-done:
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "smtp send failed")
		}
	}

	logger.Debug("otp email sent to %s", address)
	return nil
}

// LogNotifier writes codes to the logger at debug level instead of
// delivering them. Meant for local development and tests only.
type LogNotifier struct {
	Logger Logger
}

func (l LogNotifier) Send(_ context.Context, address, code string) error {
	logger := l.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Debug("otp for %s: %s", address, code)
	return nil
}

var (
	_ Notifier = (*SMTPNotifier)(nil)
	_ Notifier = LogNotifier{}
)
