package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/app/models/dto"
	"github.com/akyuz/termflow/internal/app/repositories"
	"github.com/akyuz/termflow/internal/engine"
	"github.com/akyuz/termflow/internal/engine/prereq"
	"github.com/akyuz/termflow/internal/pkg/apperrors"
)

// CatalogService serves catalog introspection backed by the prerequisite graph
type CatalogService struct {
	courseRepo *repositories.CourseRepository
	logger     zerolog.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(courseRepo *repositories.CourseRepository, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		courseRepo: courseRepo,
		logger:     logger,
	}
}

// ListCourses returns the catalog with transitive blocking counts attached.
// A broken catalog (cycle, dangling prerequisite) still lists courses, just
// without reachability data.
func (s *CatalogService) ListCourses(ctx context.Context) ([]*dto.CourseResponse, error) {
	courses, err := s.courseRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	graph, err := prereq.Build(courses)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Catalog graph unavailable, omitting blocking counts")
		graph = nil
	}

	responses := make([]*dto.CourseResponse, 0, len(courses))
	for _, course := range courses {
		count := 0
		if graph != nil {
			count = graph.BlockingCount(course.ID)
		}
		responses = append(responses, dto.ToCourseResponse(course, count))
	}
	return responses, nil
}

// GetBlocking returns every course transitively gated by the given course
func (s *CatalogService) GetBlocking(ctx context.Context, courseID int64) (*dto.BlockedCoursesResponse, error) {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, repositories.ErrCourseNotFound) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, err
	}

	courses, err := s.courseRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	graph, err := prereq.Build(courses)
	if err != nil {
		if engine.IsCycleError(err) {
			return nil, apperrors.NewDataIntegrityError(err.Error())
		}
		return nil, err
	}

	blocked := graph.Blocked(courseID)
	if blocked == nil {
		blocked = []int64{}
	}
	return &dto.BlockedCoursesResponse{
		CourseID: courseID,
		Blocked:  blocked,
	}, nil
}

// ValidateInline cycle-checks a catalog posted by an authoring tool,
// without touching the stored catalog
func (s *CatalogService) ValidateInline(courses []models.Course) *dto.ValidateCatalogResponse {
	catalog := make([]*models.Course, len(courses))
	for i := range courses {
		catalog[i] = &courses[i]
	}

	if err := engine.ValidateCatalog(catalog); err != nil {
		return &dto.ValidateCatalogResponse{
			Valid:   false,
			Message: err.Error(),
		}
	}
	return &dto.ValidateCatalogResponse{Valid: true}
}

// ValidateStored cycle-checks the persisted catalog
func (s *CatalogService) ValidateStored(ctx context.Context) (*dto.ValidateCatalogResponse, error) {
	courses, err := s.courseRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := engine.ValidateCatalog(courses); err != nil {
		return &dto.ValidateCatalogResponse{
			Valid:   false,
			Message: err.Error(),
		}, nil
	}
	return &dto.ValidateCatalogResponse{Valid: true}, nil
}
