package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/models/dto"
	"github.com/akyuz/termflow/internal/app/services"
	"github.com/akyuz/termflow/internal/middleware"
)

// RunController handles term run endpoints
type RunController struct {
	progressionService *services.ProgressionService
	logger             zerolog.Logger
}

// NewRunController creates a new RunController
func NewRunController(progressionService *services.ProgressionService, logger zerolog.Logger) *RunController {
	return &RunController{
		progressionService: progressionService,
		logger:             logger,
	}
}

// StartRun triggers a full term run
// @Summary Start a term run
// @Description Assembles the term snapshot, runs the progression engine and persists every result set
// @Tags runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param term path int true "Term identifier, e.g. 20251"
// @Param request body dto.StartRunRequest false "Run options"
// @Success 201 {object} dto.APIResponse{data=dto.RunResponse} "Run completed"
// @Failure 400 {object} dto.ErrorResponse "Invalid term or incomplete snapshot"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 409 {object} dto.ErrorResponse "A run for this term is already in progress"
// @Failure 422 {object} dto.ErrorResponse "Catalog contains a prerequisite cycle"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /terms/{term}/runs [post]
func (c *RunController) StartRun(ctx *gin.Context) {
	term, err := strconv.Atoi(ctx.Param("term"))
	if err != nil || term <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid term")
		errorDetail = errorDetail.WithDetails("Term must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	var req dto.StartRunRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			errorDetail := dto.HandleValidationError(err)
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}
	}

	c.logger.Info().Int("term", term).Bool("force", req.Force).Msg("Term run requested")
	run, err := c.progressionService.StartRun(ctx.Request.Context(), term, req.Force)
	if err != nil {
		c.logger.Warn().Err(err).Int("term", term).Msg("Term run failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	status := http.StatusCreated
	if run.Cached {
		status = http.StatusOK
	}
	ctx.JSON(status, dto.APIResponse{
		Data:      run,
		Timestamp: time.Now(),
	})
}

// GetRun retrieves run status and statistics
// @Summary Get a run
// @Description Retrieves the status and summary statistics of one run
// @Tags runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param runId path string true "Run ID"
// @Success 200 {object} dto.APIResponse{data=dto.RunResponse} "Run retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 404 {object} dto.ErrorResponse "Run not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /runs/{runId} [get]
func (c *RunController) GetRun(ctx *gin.Context) {
	run, err := c.progressionService.GetRun(ctx.Request.Context(), ctx.Param("runId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      run,
		Timestamp: time.Now(),
	})
}

// GetEligibility retrieves a run's eligibility results
// @Summary Get eligibility results
// @Description Retrieves per-course eligibility for a run, optionally filtered to one student
// @Tags runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param runId path string true "Run ID"
// @Param studentId query int false "Filter to one student"
// @Success 200 {object} dto.APIResponse{data=dto.EligibilityListResponse} "Eligibility retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 404 {object} dto.ErrorResponse "Run not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /runs/{runId}/eligibility [get]
func (c *RunController) GetEligibility(ctx *gin.Context) {
	var studentID *int64
	if raw := ctx.Query("studentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid student ID")
			errorDetail = errorDetail.WithDetails("Student ID must be a valid number")
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}
		studentID = &id
	}

	results, err := c.progressionService.GetEligibility(ctx.Request.Context(), ctx.Param("runId"), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      results,
		Timestamp: time.Now(),
	})
}

// GetPriorities retrieves a run's retake priorities
// @Summary Get retake priorities
// @Description Retrieves the ranked retake priorities produced by a run
// @Tags runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param runId path string true "Run ID"
// @Success 200 {object} dto.APIResponse{data=dto.PriorityListResponse} "Priorities retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 404 {object} dto.ErrorResponse "Run not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /runs/{runId}/priorities [get]
func (c *RunController) GetPriorities(ctx *gin.Context) {
	priorities, err := c.progressionService.GetPriorities(ctx.Request.Context(), ctx.Param("runId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      priorities,
		Timestamp: time.Now(),
	})
}

// GetAssignments retrieves a run's cohort assignments
// @Summary Get cohort assignments
// @Description Retrieves the section assignments produced by a run
// @Tags runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param runId path string true "Run ID"
// @Success 200 {object} dto.APIResponse{data=dto.AssignmentListResponse} "Assignments retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 404 {object} dto.ErrorResponse "Run not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /runs/{runId}/assignments [get]
func (c *RunController) GetAssignments(ctx *gin.Context) {
	assignments, err := c.progressionService.GetAssignments(ctx.Request.Context(), ctx.Param("runId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      assignments,
		Timestamp: time.Now(),
	})
}

// GetUnassigned retrieves a run's unseated demand
// @Summary Get unassigned students
// @Description Retrieves every student the optimizer could not seat, with reasons, plus per-student evaluation failures
// @Tags runs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param runId path string true "Run ID"
// @Success 200 {object} dto.APIResponse{data=dto.UnassignedListResponse} "Unassigned entries retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 404 {object} dto.ErrorResponse "Run not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /runs/{runId}/unassigned [get]
func (c *RunController) GetUnassigned(ctx *gin.Context) {
	unassigned, err := c.progressionService.GetUnassigned(ctx.Request.Context(), ctx.Param("runId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      unassigned,
		Timestamp: time.Now(),
	})
}
