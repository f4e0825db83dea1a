package auth

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OTPChallenges stores one verification challenge per account. Issuing
// a new challenge replaces the previous one, so only the latest code is
// ever redeemable.
type OTPChallenges interface {
	Issue(ctx context.Context, userID uuid.UUID, code string) (*OTPChallenge, error)
	IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code string) (*OTPChallenge, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*OTPChallenge, error)
	GetByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*OTPChallenge, error)
	ConsumeIfValid(ctx context.Context, userID uuid.UUID, code string, now time.Time, window time.Duration) error
	ConsumeIfValidTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code string, now time.Time, window time.Duration) error
}

type otpChallenges struct {
	db *bun.DB
}

var _ OTPChallenges = (*otpChallenges)(nil)

func NewOTPChallengesRepository(db *bun.DB) OTPChallenges {
	return &otpChallenges{db: db}
}

func (o *otpChallenges) Issue(ctx context.Context, userID uuid.UUID, code string) (*OTPChallenge, error) {
	return o.IssueTx(ctx, o.db, userID, code)
}

func (o *otpChallenges) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code string) (*OTPChallenge, error) {
	record := &OTPChallenge{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      code,
		Used:      false,
		CreatedAt: time.Now(),
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("otp_code = EXCLUDED.otp_code").
		Set("created_at = EXCLUDED.created_at").
		Set("is_used = ?", false).
		Exec(ctx)
	if err != nil {
		return nil, WrapStoreError(err, "issue otp challenge")
	}

	return record, nil
}

func (o *otpChallenges) GetByUser(ctx context.Context, userID uuid.UUID) (*OTPChallenge, error) {
	return o.GetByUserTx(ctx, o.db, userID)
}

func (o *otpChallenges) GetByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*OTPChallenge, error) {
	record := &OTPChallenge{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (o *otpChallenges) ConsumeIfValid(ctx context.Context, userID uuid.UUID, code string, now time.Time, window time.Duration) error {
	return o.ConsumeIfValidTx(ctx, o.db, userID, code, now, window)
}

// ConsumeIfValidTx marks the challenge used in a single conditional
// update, so two racing verification attempts can never both redeem the
// same code. When nothing matches we re-read to decide between an
// expired code and a plain mismatch.
func (o *otpChallenges) ConsumeIfValidTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code string, now time.Time, window time.Duration) error {
	cutoff := now.Add(-window)

	res, err := tx.NewUpdate().
		Model((*OTPChallenge)(nil)).
		Set("is_used = ?", true).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.otp_code = ?", code).
		Where("?TableAlias.is_used = ?", false).
		Where("?TableAlias.created_at > ?", cutoff).
		Exec(ctx)
	if err != nil {
		return WrapStoreError(err, "consume otp challenge")
	}

	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	stale, err := tx.NewSelect().
		Model((*OTPChallenge)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.otp_code = ?", code).
		Where("?TableAlias.is_used = ?", false).
		Exists(ctx)
	if err != nil {
		return WrapStoreError(err, "consume otp challenge")
	}

	if stale {
		return ErrOTPExpired
	}

	return ErrInvalidOTPOrEmail
}
