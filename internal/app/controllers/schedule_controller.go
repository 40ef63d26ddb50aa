package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/models/dto"
	"github.com/akyuz/termflow/internal/app/services"
)

// ScheduleController handles standalone schedule validation
type ScheduleController struct {
	scheduleService *services.ScheduleService
	logger          zerolog.Logger
}

// NewScheduleController creates a new ScheduleController
func NewScheduleController(scheduleService *services.ScheduleService, logger zerolog.Logger) *ScheduleController {
	return &ScheduleController{
		scheduleService: scheduleService,
		logger:          logger,
	}
}

// Validate detects time conflicts in a posted schedule
// @Summary Validate a schedule
// @Description Reports every pair of overlapping sections held by the same student
// @Tags schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ValidateScheduleRequest true "Sections and student enrollments to check"
// @Success 200 {object} dto.APIResponse{data=dto.ValidateScheduleResponse} "Validation completed"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format or unknown section reference"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /schedule/validate [post]
func (c *ScheduleController) Validate(ctx *gin.Context) {
	var req dto.ValidateScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	result, err := c.scheduleService.Validate(&req)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid schedule")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      result,
		Timestamp: time.Now(),
	})
}
