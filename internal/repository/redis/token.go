package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raktseva/raktseva-api/internal/repository"
)

type tokenRepository struct {
	client *redis.Client
}

// NewClient connects to redis from a URL such as redis://localhost:6379/0.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewTokenRepository(client *redis.Client) repository.TokenRepository {
	return &tokenRepository{client: client}
}

func otpKey(email string) string {
	return "otp:" + email
}

func revokedKey(tokenID string) string {
	return "revoked:" + tokenID
}

func (r *tokenRepository) StoreOTP(ctx context.Context, email, code string, expiry time.Duration) error {
	if err := r.client.Set(ctx, otpKey(email), code, expiry).Err(); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

func (r *tokenRepository) GetOTP(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, otpKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to get OTP: %w", err)
	}
	return code, nil
}

func (r *tokenRepository) DeleteOTP(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to delete OTP: %w", err)
	}
	return nil
}

func (r *tokenRepository) RevokeToken(ctx context.Context, tokenID string, until time.Duration) error {
	if until <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKey(tokenID), "1", until).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *tokenRepository) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
