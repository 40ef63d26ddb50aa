package seed

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appModels "github.com/akyuz/termflow/internal/app/models"
	appRepos "github.com/akyuz/termflow/internal/app/repositories"
	"github.com/akyuz/termflow/internal/config"
	"github.com/akyuz/termflow/internal/pkg/auth"
)

// CreateDefaultData provisions a default API client and, on an empty
// database, a small demo catalog so a fresh deployment can run a term
// immediately.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	var finalErr error

	if err := seedDefaultClient(ctx, dbPool, lgr); err != nil {
		finalErr = errors.Join(finalErr, err)
	}
	if err := seedDemoCatalog(ctx, dbPool, lgr); err != nil {
		finalErr = errors.Join(finalErr, err)
	}
	return finalErr
}

func seedDefaultClient(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	clientRepo := appRepos.NewClientRepository(dbPool)

	const clientID = "termflow-admin"
	if _, err := clientRepo.GetByClientID(ctx, clientID); err == nil {
		return nil
	} else if !errors.Is(err, appRepos.ErrClientNotFound) {
		return err
	}

	secret := config.GetEnv("SEED_ADMIN_SECRET", "")
	if secret == "" {
		lgr.Info().Msg("SEED_ADMIN_SECRET not set, skipping default client")
		return nil
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		return err
	}

	client := &appModels.APIClient{
		ID:         clientID,
		Name:       "Default admin client",
		SecretHash: hash,
		Scope:      "progression:read progression:runs",
		Enabled:    true,
		CreatedAt:  time.Now(),
	}
	if err := clientRepo.Create(ctx, client); err != nil {
		lgr.Error().Err(err).Msg("Error creating default API client")
		return err
	}
	lgr.Info().Str("clientId", clientID).Msg("Default API client created")
	return nil
}

// seedDemoCatalog loads a miniature program: an intro sequence where the
// data structures course gates most of the upper catalog.
func seedDemoCatalog(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	courseRepo := appRepos.NewCourseRepository(dbPool)

	existing, err := courseRepo.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	lgr.Info().Msg("Empty catalog, seeding demo courses...")

	type demoCourse struct {
		code         string
		name         string
		credits      int
		level        int
		earliestTerm int
		prereqs      []string
	}

	demo := []demoCourse{
		{"CS-101", "Introduction to Programming", 6, 100, 1, nil},
		{"MATH-101", "Calculus I", 6, 100, 1, nil},
		{"CS-102", "Object-Oriented Programming", 6, 100, 2, []string{"CS-101"}},
		{"CS-201", "Data Structures", 8, 200, 3, []string{"CS-102"}},
		{"CS-202", "Computer Organization", 6, 200, 3, []string{"CS-101"}},
		{"CS-301", "Algorithms", 8, 300, 4, []string{"CS-201"}},
		{"CS-302", "Database Systems", 6, 300, 4, []string{"CS-201"}},
		{"CS-303", "Operating Systems", 8, 300, 5, []string{"CS-201", "CS-202"}},
	}

	ids := make(map[string]int64, len(demo))
	var finalErr error
	for _, d := range demo {
		course := &appModels.Course{
			Code:         d.code,
			Name:         d.name,
			DepartmentID: 1,
			Credits:      d.credits,
			Level:        d.level,
			EarliestTerm: d.earliestTerm,
		}
		for _, p := range d.prereqs {
			course.PrerequisiteIDs = append(course.PrerequisiteIDs, ids[p])
		}

		id, err := courseRepo.Create(ctx, course)
		if err != nil {
			lgr.Error().Err(err).Str("code", d.code).Msg("Error seeding demo course")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		ids[d.code] = id
	}

	if finalErr == nil {
		lgr.Info().Int("courses", len(demo)).Msg("Demo catalog seeded")
	}
	return finalErr
}
