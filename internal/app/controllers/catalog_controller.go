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
	"github.com/akyuz/termflow/internal/pkg/helpers"
)

// CatalogController handles catalog introspection endpoints
type CatalogController struct {
	catalogService *services.CatalogService
	logger         zerolog.Logger
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService *services.CatalogService, logger zerolog.Logger) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
		logger:         logger,
	}
}

// ListCourses lists the catalog with blocking counts
// @Summary List catalog courses
// @Description Retrieves every course with its prerequisite links and the number of courses it transitively blocks
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number, 1-based"
// @Param size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.PagedResponse} "Courses retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /courses [get]
func (c *CatalogController) ListCourses(ctx *gin.Context) {
	courses, err := c.catalogService.ListCourses(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	start, end := helpers.CalculateSliceIndices(page, size, len(courses))

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: dto.PagedResponse{
			Items:      courses[start:end],
			Pagination: helpers.NewPaginationInfo(int64(len(courses)), page, size),
		},
		Timestamp: time.Now(),
	})
}

// GetBlocking lists every course transitively gated by one course
// @Summary Get courses blocked by a course
// @Description Retrieves the IDs of every course unreachable until the given course is passed
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=dto.BlockedCoursesResponse} "Blocked courses retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid course ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 422 {object} dto.ErrorResponse "Catalog contains a prerequisite cycle"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /courses/{id}/blocking [get]
func (c *CatalogController) GetBlocking(ctx *gin.Context) {
	idStr := ctx.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid course ID")
		errorDetail = errorDetail.WithDetails("Course ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	blocked, err := c.catalogService.GetBlocking(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      blocked,
		Timestamp: time.Now(),
	})
}

// ValidateCatalog cycle-checks a catalog
// @Summary Validate a course catalog
// @Description Cycle-checks the posted catalog, or the stored one when the body is empty
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ValidateCatalogRequest false "Catalog to validate; omit to validate the stored catalog"
// @Success 200 {object} dto.APIResponse{data=dto.ValidateCatalogResponse} "Validation completed"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /catalog/validate [post]
func (c *CatalogController) ValidateCatalog(ctx *gin.Context) {
	var result *dto.ValidateCatalogResponse

	if ctx.Request.ContentLength > 0 {
		var req dto.ValidateCatalogRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			errorDetail := dto.HandleValidationError(err)
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}
		result = c.catalogService.ValidateInline(req.Courses)
	} else {
		stored, err := c.catalogService.ValidateStored(ctx.Request.Context())
		if err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
		result = stored
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      result,
		Timestamp: time.Now(),
	})
}
