package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/akyuz/termflow/internal/app/controllers"
	appMigrations "github.com/akyuz/termflow/internal/app/migrations"
	appRepos "github.com/akyuz/termflow/internal/app/repositories"
	appRoutes "github.com/akyuz/termflow/internal/app/routes"
	appServices "github.com/akyuz/termflow/internal/app/services"
	"github.com/akyuz/termflow/internal/config"
	"github.com/akyuz/termflow/internal/db"
	"github.com/akyuz/termflow/internal/engine"
	"github.com/akyuz/termflow/internal/engine/cohort"
	"github.com/akyuz/termflow/internal/engine/progress"
	"github.com/akyuz/termflow/internal/engine/ranking"
	appMiddleware "github.com/akyuz/termflow/internal/middleware"
	pkgAuth "github.com/akyuz/termflow/internal/pkg/auth"
	"github.com/akyuz/termflow/internal/pkg/cache"
	"github.com/akyuz/termflow/internal/pkg/helpers"
	"github.com/akyuz/termflow/internal/pkg/logger"
	"github.com/akyuz/termflow/internal/pkg/websocket"
	"github.com/akyuz/termflow/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService        *appServices.AuthService
	CatalogService     *appServices.CatalogService
	ScheduleService    *appServices.ScheduleService
	ProgressionService *appServices.ProgressionService
	AuthController     *appControllers.AuthController
	RunController      *appControllers.RunController
	CatalogController  *appControllers.CatalogController
	ScheduleController *appControllers.ScheduleController
	AuthMiddleware     *appMiddleware.AuthMiddleware
	Repos              *appRepos.Repositories
	JWTService         *pkgAuth.JWTService
	ResultCache        *cache.ResultCache // nil when Redis is disabled
	Hub                *websocket.Hub
	Logger             zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	// Seed a default API client and demo catalog after migrations
	if err := seed.CreateDefaultData(context.Background(), dbPool, lgr); err != nil {
		// Log the error but don't fail the startup
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resultCache, err := cache.NewResultCache(ctx, cache.Config{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      helpers.ParseDuration(cfg.Redis.ResultTTL, 30*time.Minute),
		})
		if err != nil {
			// The cache is an optimization; run without it rather than fail
			lgr.Warn().Err(err).Msg("Redis unavailable, result caching disabled")
		} else {
			deps.ResultCache = resultCache
			lgr.Info().Str("addr", cfg.GetRedisAddr()).Msg("Result cache connected")
		}
	}

	deps.Hub = websocket.NewHub(lgr)
	go deps.Hub.Run()

	engineCfg := engine.Config{
		Rules: progress.Rules{
			PassingGrade:      cfg.Engine.PassingGrade,
			MaxCoursesPerTerm: cfg.Engine.MaxCoursesPerTerm,
			TotalTermCap:      cfg.Engine.TotalTermCap,
		},
		Weights: ranking.Weights{
			Blocking:      cfg.Engine.WeightBlocking,
			Attempts:      cfg.Engine.WeightAttempts,
			Recency:       cfg.Engine.WeightRecency,
			MaxAttemptCap: cfg.Engine.MaxAttemptCap,
		},
		Cohort: cohort.Config{
			MaxCoursesPerTerm:    cfg.Engine.MaxCoursesPerTerm,
			MinViableSectionSize: cfg.Engine.MinViableSectionSize,
			SoftTimeBudget:       cfg.SoftTimeBudget(),
		},
		EvalWorkers: cfg.Engine.EvalWorkers,
	}

	deps.AuthService = appServices.NewAuthService(deps.Repos.ClientRepository, deps.JWTService, lgr)
	deps.CatalogService = appServices.NewCatalogService(deps.Repos.CourseRepository, lgr)
	deps.ScheduleService = appServices.NewScheduleService(lgr)
	deps.ProgressionService = appServices.NewProgressionService(
		deps.Repos,
		engineCfg,
		deps.ResultCache,
		deps.Hub,
		lgr,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.RunController = appControllers.NewRunController(deps.ProgressionService, lgr)
	deps.CatalogController = appControllers.NewCatalogController(deps.CatalogService, lgr)
	deps.ScheduleController = appControllers.NewScheduleController(deps.ScheduleService, lgr)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(lgr), gin.Recovery())

	appRoutes.SetupSwagger(router)

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.RunController,
		deps.CatalogController,
		deps.ScheduleController,
		deps.AuthMiddleware,
		deps.Hub,
		lgr,
	)

	// Health endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
