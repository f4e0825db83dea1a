package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

type Auther struct {
	repo         RepositoryManager
	issuer       TokenIssuer
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager) *Auther {
	return &Auther{
		repo:         repo,
		issuer:       NewTokenIssuer(repo.AccessTokens()),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenIssuer replaces the default store backed issuer.
func (s *Auther) WithTokenIssuer(issuer TokenIssuer) *Auther {
	s.issuer = issuer
	return s
}

// Login verifies credentials and returns the account's durable bearer
// token. The checks run strictly in order: account existence, login
// cooldown, password, verification status, then the optional role
// hint. An unverified account or a role mismatch is only reported
// after the password matched, so those responses leak nothing to a
// caller who does not hold the credentials.
func (s *Auther) Login(ctx context.Context, email, password string, roleHint ...UserRole) (*LoginResult, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"email": email,
				"error": ErrNoAccount.Error(),
			})
			return nil, ErrNoAccount
		}
		return nil, WrapStoreError(err, "failed to retrieve user during verification")
	}

	actor := ActorRef{ID: user.ID.String(), Type: "user"}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, actor, user.ID.String(), map[string]any{
			"email": email,
			"error": ErrTooManyLoginAttempts.Error(),
		})
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := s.repo.Users().TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}

		s.emitAuthEvent(ctx, ActivityEventLoginFailure, actor, user.ID.String(), map[string]any{
			"email": email,
			"error": ErrMismatchedHashAndPassword.Error(),
		})
		return nil, ErrMismatchedHashAndPassword
	}

	if err := s.repo.Users().TrackSuccessfulLogin(ctx, user); err != nil {
		s.logger.Error("failed to track successful login: %v", err)
	}

	if !user.Active || !user.Verified {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, actor, user.ID.String(), map[string]any{
			"email": email,
			"error": ErrNotVerified.Error(),
		})
		return nil, ErrNotVerified
	}

	if len(roleHint) > 0 && roleHint[0] != "" && user.Role != roleHint[0] {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, actor, user.ID.String(), map[string]any{
			"email":    email,
			"expected": roleHint[0],
			"error":    ErrRoleMismatch.Error(),
		})
		return nil, ErrRoleMismatch
	}

	token, err := s.issuer.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenIssued, actor, user.ID.String(), map[string]any{
		"email": email,
	})
	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, actor, user.ID.String(), map[string]any{
		"email": email,
	})

	return &LoginResult{
		Token:    token.Key,
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
		Email:    user.Email,
	}, nil
}

// IdentityFromToken resolves a bearer token key back to the account
// that owns it. Unknown keys and keys pointing at missing or inactive
// accounts all surface as ErrInvalidToken.
func (s *Auther) IdentityFromToken(ctx context.Context, key string) (Identity, error) {
	if key == "" {
		return nil, ErrInvalidToken
	}

	token, err := s.repo.AccessTokens().GetByKey(ctx, key)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, WrapStoreError(err, "failed to resolve token")
	}

	user, err := s.repo.Users().GetByID(ctx, token.UserID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, WrapStoreError(err, "failed to resolve token owner")
	}

	if !user.Active {
		return nil, ErrInvalidToken
	}

	return authIdentity{
		id:       user.ID.String(),
		email:    user.Email,
		username: user.Username,
		role:     string(user.Role),
	}, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	})
}

type authIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Username() string {
	return a.username
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

var (
	_ Identity      = authIdentity{}
	_ Authenticator = (*Auther)(nil)
)
