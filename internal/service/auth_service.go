package service

import (
	"context"

	"go.uber.org/zap"

	"transparencia/internal/dto"
	"transparencia/internal/models"
	"transparencia/pkg/auth"
)

type AdministratorStore interface {
	Exists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.Administrator, error)
}

type AuthService struct {
	admins     AdministratorStore
	jwtManager *auth.JWTManager
	logger     *zap.Logger
}

func NewAuthService(admins AdministratorStore, jwtManager *auth.JWTManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		admins:     admins,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !auth.CheckPasswordHash(req.Password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(admin.Email)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// The allow-list may have changed since the token was issued.
	ok, err := s.admins.Exists(ctx, claims.Email)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(claims.Email)
}

// IsAdministrator is the single authorization lookup: allow-list membership.
func (s *AuthService) IsAdministrator(ctx context.Context, email string) (bool, error) {
	return s.admins.Exists(ctx, email)
}

func (s *AuthService) issueTokens(email string) (*dto.AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateToken(email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(email)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtManager.GetTokenDuration().Seconds()),
		Email:        email,
	}, nil
}
