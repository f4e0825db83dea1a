package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// tokenKeyBytes yields 40 hex character keys.
const tokenKeyBytes = 20

// GenerateTokenKey produces an opaque bearer token key.
func GenerateTokenKey() (string, error) {
	buf := make([]byte, tokenKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate token key")
	}
	return hex.EncodeToString(buf), nil
}

// TokenIssuer hands out the single bearer token of an account,
// creating it on first use. Implementations must be idempotent under
// concurrent calls for the same account.
type TokenIssuer interface {
	GetOrCreate(ctx context.Context, accountID uuid.UUID) (*AccessToken, error)
}

type storeTokenIssuer struct {
	tokens AccessTokens
}

// NewTokenIssuer returns a TokenIssuer backed by the token store; the
// insert-if-absent atomicity lives in the store itself.
func NewTokenIssuer(tokens AccessTokens) TokenIssuer {
	return &storeTokenIssuer{tokens: tokens}
}

func (s *storeTokenIssuer) GetOrCreate(ctx context.Context, accountID uuid.UUID) (*AccessToken, error) {
	if accountID == uuid.Nil {
		return nil, goerrors.New("account id is required", goerrors.CategoryBadInput)
	}
	return s.tokens.GetOrCreate(ctx, accountID)
}
