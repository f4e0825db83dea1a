package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyOTPMessage struct {
	Email      string `json:"email"`
	Code       string `json:"otp"`
	OnResponse func(r *VerifyOTPResponse)
}

func (e VerifyOTPMessage) Type() string { return "user.verify_otp" }

type VerifyOTPResponse struct {
	User *User `json:"user"`
}

// VerifyOTPHandler redeems a verification code and activates the
// account. Redemption and activation share one transaction: a code is
// never burned on an account that failed to activate, and an account
// is never activated on a code that lost the redemption race.
type VerifyOTPHandler struct {
	Repo     RepositoryManager
	States   AccountStateMachine
	Activity ActivitySink
	Logger   Logger
	Window   time.Duration
	Clock    func() time.Time
}

func (h *VerifyOTPHandler) Execute(ctx context.Context, event VerifyOTPMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during otp verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyOTPHandler) execute(ctx context.Context, event VerifyOTPMessage) error {
	logger := h.Logger
	if logger == nil {
		logger = defLogger{}
	}

	window := h.Window
	if window == 0 {
		window = DefaultOTPWindow
	}

	clock := h.Clock
	if clock == nil {
		clock = time.Now
	}

	email := NormalizeEmail(event.Email)

	user, err := h.Repo.Users().GetByEmail(ctx, email)
	if err != nil {
		// an unknown address reads the same as a wrong code, so the
		// endpoint cannot be used to probe which emails exist
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrInvalidOTPOrEmail
		}
		return WrapStoreError(err, "failed to load account for verification")
	}

	actor := ActorRef{ID: user.ID.String(), Type: "user"}

	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	err = h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.Repo.OTPChallenges().ConsumeIfValidTx(ctx, tx, user.ID, event.Code, clock(), window); err != nil {
			return err
		}

		user, err = h.states().TransitionTx(ctx, tx, actor, user, StatusActive,
			WithTransitionReason("otp verified"))
		return err
	})

	if err != nil {
		recordActivity(ctx, h.Activity, logger, ActivityEvent{
			EventType: ActivityEventVerificationFailed,
			Actor:     actor,
			UserID:    user.ID.String(),
			Metadata:  map[string]any{"email": email},
		})

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "otp verification transaction failed")
	}

	recordActivity(ctx, h.Activity, logger, ActivityEvent{
		EventType:  ActivityEventUserVerified,
		Actor:      actor,
		UserID:     user.ID.String(),
		FromStatus: StatusPending,
		ToStatus:   StatusActive,
	})

	if event.OnResponse != nil {
		event.OnResponse(&VerifyOTPResponse{User: user})
	}

	return nil
}

func (h *VerifyOTPHandler) states() AccountStateMachine {
	if h.States != nil {
		return h.States
	}
	return NewAccountStateMachine(h.Repo.Users(),
		WithStateMachineActivitySink(h.Activity),
		WithStateMachineLogger(h.Logger))
}
