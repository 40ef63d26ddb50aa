package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/models/dto"
	"github.com/akyuz/termflow/internal/app/repositories"
	"github.com/akyuz/termflow/internal/pkg/auth"
)

// Auth error types
var (
	ErrInvalidCredentials = errors.New("invalid client credentials")
	ErrClientDisabled     = errors.New("client is disabled")
)

// AuthService exchanges client credentials for access tokens
type AuthService struct {
	clientRepo *repositories.ClientRepository
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	clientRepo *repositories.ClientRepository,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		clientRepo: clientRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// IssueToken validates the client's secret and returns a signed JWT
func (s *AuthService) IssueToken(ctx context.Context, req *dto.TokenRequest) (*dto.TokenResponse, error) {
	client, err := s.clientRepo.GetByClientID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, repositories.ErrClientNotFound) {
			// Same error as a bad secret so client IDs cannot be probed
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !client.Enabled {
		s.logger.Warn().Str("clientId", client.ID).Msg("Disabled client attempted token exchange")
		return nil, ErrClientDisabled
	}

	if !auth.CheckSecret(client.SecretHash, req.ClientSecret) {
		s.logger.Warn().Str("clientId", client.ID).Msg("Client secret mismatch")
		return nil, ErrInvalidCredentials
	}

	token, expiresIn, err := s.jwtService.GenerateToken(client)
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresIn),
		Scope:       client.Scope,
	}, nil
}
