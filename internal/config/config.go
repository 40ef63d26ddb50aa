package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
		Host     string `yaml:"host" env:"REDIS_HOST"`
		Port     string `yaml:"port" env:"REDIS_PORT"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		// ResultTTL bounds how long cached run results are served for an
		// unchanged snapshot fingerprint
		ResultTTL string `yaml:"result_ttl" env:"REDIS_RESULT_TTL"`
	} `yaml:"redis"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	// Engine holds the progression rules and optimizer tunables supplied
	// to every term run
	Engine struct {
		PassingGrade         float64 `yaml:"passing_grade" env:"ENGINE_PASSING_GRADE"`
		MaxCoursesPerTerm    int     `yaml:"max_courses_per_term" env:"ENGINE_MAX_COURSES_PER_TERM"`
		TotalTermCap         int     `yaml:"total_term_cap" env:"ENGINE_TOTAL_TERM_CAP"`
		WeightBlocking       float64 `yaml:"weight_blocking" env:"ENGINE_WEIGHT_BLOCKING"`
		WeightAttempts       float64 `yaml:"weight_attempts" env:"ENGINE_WEIGHT_ATTEMPTS"`
		WeightRecency        float64 `yaml:"weight_recency" env:"ENGINE_WEIGHT_RECENCY"`
		MaxAttemptCap        int     `yaml:"max_attempt_cap" env:"ENGINE_MAX_ATTEMPT_CAP"`
		MinViableSectionSize int     `yaml:"min_viable_section_size" env:"ENGINE_MIN_VIABLE_SECTION_SIZE"`
		EvalWorkers          int     `yaml:"eval_workers" env:"ENGINE_EVAL_WORKERS"`
		SoftTimeBudget       string  `yaml:"soft_time_budget" env:"ENGINE_SOFT_TIME_BUDGET"`
	} `yaml:"engine"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// Config file is optional; defaults plus env cover containerized runs
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "termflow"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Redis.Enabled = false
	config.Redis.Host = "localhost"
	config.Redis.Port = "6379"
	config.Redis.ResultTTL = "30m"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.Issuer = "termflow.engine"

	// A conventional 14-term program with six courses per term
	config.Engine.PassingGrade = 50
	config.Engine.MaxCoursesPerTerm = 6
	config.Engine.TotalTermCap = 14
	config.Engine.WeightBlocking = 10
	config.Engine.WeightAttempts = 3
	config.Engine.WeightRecency = 2
	config.Engine.MaxAttemptCap = 4
	config.Engine.MinViableSectionSize = 8
	config.Engine.EvalWorkers = 8
	config.Engine.SoftTimeBudget = "0s"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if config.Engine.PassingGrade < 0 || config.Engine.PassingGrade > 100 {
		return fmt.Errorf("engine passing grade must be within [0, 100]")
	}

	if config.Engine.MaxCoursesPerTerm <= 0 {
		return fmt.Errorf("engine max courses per term must be positive")
	}

	if config.Engine.TotalTermCap <= 0 {
		return fmt.Errorf("engine total term cap must be positive")
	}

	if _, err := time.ParseDuration(config.Engine.SoftTimeBudget); err != nil {
		return fmt.Errorf("invalid engine soft time budget format: %w", err)
	}

	if config.Redis.Enabled {
		if _, err := time.ParseDuration(config.Redis.ResultTTL); err != nil {
			return fmt.Errorf("invalid redis result TTL format: %w", err)
		}
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetRedisAddr returns the host:port address of the Redis server
func (c *Config) GetRedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// SoftTimeBudget returns the parsed optimizer time budget
func (c *Config) SoftTimeBudget() time.Duration {
	d, err := time.ParseDuration(c.Engine.SoftTimeBudget)
	if err != nil {
		return 0
	}
	return d
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets an environment variable as an integer or returns a default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// GetEnvAsBool gets an environment variable as a boolean or returns a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	valueLower := strings.ToLower(valueStr)
	if valueLower == "true" || valueLower == "1" || valueLower == "yes" {
		return true
	}
	if valueLower == "false" || valueLower == "0" || valueLower == "no" {
		return false
	}

	return defaultValue
}
