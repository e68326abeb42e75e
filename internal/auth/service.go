package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service manages rotating refresh sessions. Each login or refresh mints a
// fresh session key in Redis; refreshing revokes the old one, so a stolen
// refresh token dies the moment the legitimate client rotates.
type Service struct {
	jwt         *JWTManager
	redisClient *redis.Client
}

func NewService(jwt *JWTManager, redisClient *redis.Client) *Service {
	return &Service{
		jwt:         jwt,
		redisClient: redisClient,
	}
}

func refreshKey(ownerID uuid.UUID, tokenID string) string {
	return fmt.Sprintf("refresh:%s:%s", ownerID, tokenID)
}

func (s *Service) GenerateTokens(ctx context.Context, ownerID uuid.UUID, email string) (*TokenPair, error) {
	pair, tokenID, err := s.jwt.GenerateTokenPair(ownerID, email)
	if err != nil {
		return nil, err
	}

	key := refreshKey(ownerID, tokenID)
	if err := s.redisClient.Set(ctx, key, "1", s.jwt.RefreshExpiry()).Err(); err != nil {
		return nil, fmt.Errorf("storing refresh session: %w", err)
	}
	return pair, nil
}

func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	key := refreshKey(claims.OwnerID, claims.TokenID)
	exists, err := s.redisClient.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("checking refresh session: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("refresh session revoked: %w", ErrTokenInvalid)
	}

	// Rotate: the presented session is spent either way.
	s.redisClient.Del(ctx, key)

	pair, newTokenID, err := s.jwt.GenerateTokenPair(claims.OwnerID, claims.Email)
	if err != nil {
		return nil, err
	}
	newKey := refreshKey(claims.OwnerID, newTokenID)
	if err := s.redisClient.Set(ctx, newKey, "1", s.jwt.RefreshExpiry()).Err(); err != nil {
		return nil, fmt.Errorf("storing refresh session: %w", err)
	}
	return pair, nil
}

// Logout revokes every refresh session the owner holds, across devices.
func (s *Service) Logout(ctx context.Context, ownerID uuid.UUID) error {
	pattern := refreshKey(ownerID, "*")
	iter := s.redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		s.redisClient.Del(ctx, iter.Val())
	}
	return iter.Err()
}

func (s *Service) ValidateAccessToken(token string) (*AccessClaims, error) {
	return s.jwt.ValidateAccessToken(token)
}
