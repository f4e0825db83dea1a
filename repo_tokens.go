package auth

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccessTokens holds the one durable bearer token per account.
type AccessTokens interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*AccessToken, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*AccessToken, error)
	GetByKey(ctx context.Context, key string) (*AccessToken, error)
	GetByKeyTx(ctx context.Context, tx bun.IDB, key string) (*AccessToken, error)
}

type accessTokens struct {
	db *bun.DB
}

var _ AccessTokens = (*accessTokens)(nil)

func NewAccessTokensRepository(db *bun.DB) AccessTokens {
	return &accessTokens{db: db}
}

func (t *accessTokens) GetOrCreate(ctx context.Context, userID uuid.UUID) (*AccessToken, error) {
	return t.GetOrCreateTx(ctx, t.db, userID)
}

// GetOrCreateTx inserts a fresh key only when the account has none.
// Concurrent first logins race on the user_id constraint and every
// caller converges on whichever row won, so the token is stable for
// the lifetime of the account.
func (t *accessTokens) GetOrCreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*AccessToken, error) {
	key, err := GenerateTokenKey()
	if err != nil {
		return nil, err
	}

	candidate := &AccessToken{
		ID:     uuid.New(),
		UserID: userID,
		Key:    key,
	}

	_, err = tx.NewInsert().
		Model(candidate).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, WrapStoreError(err, "issue access token")
	}

	record := &AccessToken{}
	err = tx.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, WrapStoreError(err, "load access token")
	}

	return record, nil
}

func (t *accessTokens) GetByKey(ctx context.Context, key string) (*AccessToken, error) {
	return t.GetByKeyTx(ctx, t.db, key)
}

func (t *accessTokens) GetByKeyTx(ctx context.Context, tx bun.IDB, key string) (*AccessToken, error) {
	record := &AccessToken{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.token_key = ?", key).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token_key": "[redacted]",
				})
		}
		return nil, err
	}

	return record, nil
}
