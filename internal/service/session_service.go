package service

import (
	"context"
	"fmt"
	"time"

	"github.com/qcom/intake/internal/kv"
	"github.com/sirupsen/logrus"
)

// SessionService tracks revoked admin tokens until they would have expired
// anyway.
type SessionService struct {
	store  kv.Store
	logger *logrus.Logger
	nowF   func() time.Time
}

func NewSessionService(store kv.Store, logger *logrus.Logger) *SessionService {
	return &SessionService{
		store:  store,
		logger: logger,
		nowF:   time.Now,
	}
}

func revokedKey(jti string) string {
	return fmt.Sprintf("revoked_token:%s", jti)
}

func (s *SessionService) Revoke(ctx context.Context, claims *Claims) error {
	ttl := time.Second
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(s.nowF()); remaining > ttl {
			ttl = remaining
		}
	}

	if err := s.store.Set(ctx, revokedKey(claims.ID), claims.AdminID, ttl); err != nil {
		s.logger.WithError(err).Error("Failed to revoke admin token")
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *SessionService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok, err := s.store.Get(ctx, revokedKey(jti))
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return ok, nil
}
