package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/raktseva/raktseva-api/internal/email"
	"github.com/raktseva/raktseva-api/internal/model"
	"github.com/raktseva/raktseva-api/internal/repository"
	"github.com/raktseva/raktseva-api/pkg/auth"
	apperrors "github.com/raktseva/raktseva-api/pkg/errors"
	"github.com/raktseva/raktseva-api/pkg/security"
)

const otpExpiry = 10 * time.Minute

type Service struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	jwtSvc   auth.JWTService
	emailSvc email.Service
	hasher   security.PasswordHasher
}

func NewService(users repository.UserRepository, tokens repository.TokenRepository,
	jwtSvc auth.JWTService, emailSvc email.Service, hasher security.PasswordHasher) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		jwtSvc:   jwtSvc,
		emailSvc: emailSvc,
		hasher:   hasher,
	}
}

// Register creates an unverified account and emails a one-time code.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if err == security.ErrPasswordTooShort {
			return nil, apperrors.BadRequest("password is too short", err)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicate {
			return nil, apperrors.Conflict("email already registered", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.sendOTP(ctx, user.Email); err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("failed to send verification OTP")
	}

	return user, nil
}

// ResendOTP issues a fresh code for an unverified account.
func (s *Service) ResendOTP(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("user", err)
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user.IsVerified {
		return apperrors.InvalidState("account already verified")
	}
	return s.sendOTP(ctx, user.Email)
}

func (s *Service) sendOTP(ctx context.Context, emailAddr string) error {
	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	if err := s.tokens.StoreOTP(ctx, emailAddr, code, otpExpiry); err != nil {
		return err
	}
	return s.emailSvc.SendOTP(ctx, emailAddr, code)
}

// VerifyOTP marks the account verified on a matching, unexpired code.
func (s *Service) VerifyOTP(ctx context.Context, req *model.VerifyOTPRequest) error {
	stored, err := s.tokens.GetOTP(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperrors.BadRequest("invalid or expired OTP", err)
		}
		return fmt.Errorf("failed to get OTP: %w", err)
	}
	if stored != req.Code {
		return apperrors.BadRequest("invalid or expired OTP", nil)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NotFound("user", err)
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	user.IsVerified = true
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	if err := s.tokens.DeleteOTP(ctx, req.Email); err != nil {
		log.Warn().Err(err).Str("email", req.Email).Msg("failed to clear used OTP")
	}
	return nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	if !user.IsVerified {
		return nil, apperrors.Forbidden("account not verified")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account disabled")
	}

	return s.generateTokens(user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("user not found"))
	}

	return s.generateTokens(user)
}

// Logout blacklists the access token until its natural expiry.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtSvc.ValidateToken(accessToken)
	if err != nil {
		return apperrors.Unauthorized(err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if err := s.tokens.RevokeToken(ctx, claims.ID, remaining); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id has been blacklisted.
func (s *Service) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.tokens.IsTokenRevoked(ctx, tokenID)
}

// ValidateToken verifies an access token's signature and expiry.
func (s *Service) ValidateToken(token string) (*auth.Claims, error) {
	return s.jwtSvc.ValidateToken(token)
}

func (s *Service) generateTokens(user *model.User) (*model.TokenResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
