package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/models/dto"
	"github.com/akyuz/termflow/internal/app/services"
	"github.com/akyuz/termflow/internal/middleware"
)

// AuthController handles client token exchange
type AuthController struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// Token exchanges client credentials for an access token
// @Summary Issue an access token
// @Description Exchanges a client ID and secret for a signed JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "Client credentials"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Token issued successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid client credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/token [post]
func (c *AuthController) Token(ctx *gin.Context) {
	var req dto.TokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	tokenResponse, err := c.authService.IssueToken(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("clientId", req.ClientID).Msg("Token exchange failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("clientId", req.ClientID).Msg("Token issued")
	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      tokenResponse,
		Timestamp: time.Now(),
	})
}
