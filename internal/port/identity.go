package port

import (
	"context"
	"time"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	// Issue signs a session token for the user
	Issue(user domain.User, sessionID string) (token string, expiresAt time.Time, err error)

	// Parse validates a token and returns its claims
	Parse(token string) (*domain.SessionClaims, error)
}

type FederatedVerifier interface {
	// Verify checks an ID token issued by the external provider
	Verify(ctx context.Context, idToken string) (*domain.FederatedProfile, error)
}
