package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(r *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User *User `json:"user"`
}

// RegisterUserHandler creates a pending account and issues its first
// verification challenge in one transaction. The OTP email is sent
// after commit so a slow or failing mailer never rolls back the
// account; the user can always request another code.
type RegisterUserHandler struct {
	Repo          RepositoryManager
	Notifier      Notifier
	Groups        *GroupSynchronizer
	Activity      ActivitySink
	Logger        Logger
	Domain        string
	PhoneRegion   string
	Source        RandomSource
	NotifyTimeout time.Duration
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	logger := h.Logger
	if logger == nil {
		logger = defLogger{}
	}

	domain := h.Domain
	if domain == "" {
		domain = DefaultInstitutionalDomain
	}

	source := h.Source
	if source == nil {
		source = DefaultRandomSource
	}

	email := NormalizeEmail(event.Email)
	if !isEmail(email) || !HasInstitutionalDomain(email, domain) {
		return ErrInvalidEmailDomain
	}

	role, ok := ParseRole(event.Role)
	if !ok {
		return ErrInvalidRole
	}

	phone, err := NormalizePhone(event.Phone, h.PhoneRegion)
	if err != nil {
		return err
	}

	username := getUsername(event.Username, email)

	// These reads only exist to report which field collided. The
	// unique constraints remain the source of truth under races.
	if _, err := h.Repo.Users().GetByEmail(ctx, email); err == nil {
		return DuplicateFieldError("email")
	} else if !repository.IsRecordNotFound(err) && !goerrors.IsNotFound(err) {
		return WrapStoreError(err, "failed to check email availability")
	}

	if _, err := h.Repo.Users().GetByUsername(ctx, username); err == nil {
		return DuplicateFieldError("username")
	} else if !repository.IsRecordNotFound(err) && !goerrors.IsNotFound(err) {
		return WrapStoreError(err, "failed to check username availability")
	}

	user := &User{}
	code := ""

	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	err = h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = email
		user.Phone = phone
		user.Username = username
		user.Role = role
		user.Active = false
		user.Verified = false
		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.Repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		code = GenerateOTPCode(source)
		if _, err = h.Repo.OTPChallenges().IssueTx(ctx, tx, user.ID, code); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if h.Groups != nil {
		if err := h.Groups.Sync(ctx, user); err != nil {
			logger.Warn("group sync failed for %s: %v", user.ID, err)
		}
	}

	recordActivity(ctx, h.Activity, logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:    user.ID.String(),
		ToStatus:  StatusPending,
	})

	h.dispatchOTP(user.Email, code, logger)

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{User: user})
	}

	return nil
}

// dispatchOTP delivers the code out of band. Delivery failures are
// logged and swallowed, the signup itself already committed.
func (h *RegisterUserHandler) dispatchOTP(address, code string, logger Logger) {
	if h.Notifier == nil {
		logger.Warn("no notifier configured, otp for %s not delivered", address)
		return
	}

	timeout := h.NotifyTimeout
	if timeout == 0 {
		timeout = defaultCommandTimeout
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := h.Notifier.Send(ctx, address, code); err != nil {
			logger.Warn("otp delivery to %s failed: %v", address, err)
		}
	}()
}
