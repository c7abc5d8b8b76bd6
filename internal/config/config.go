package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	StoreBackend              string
	Database                  DatabaseConfig
	Mongo                     MongoConfig
	Redis                     RedisConfig
	Mailer                    MailerConfig
	Clinic                    ClinicConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	Username        string
	Password        string
	Name            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MongoConfig is only used when StoreBackend is "mongo".
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig enables cross-instance fan-out of realtime events when URL is set.
type RedisConfig struct {
	URL     string
	Channel string
}

// MailerConfig holds email service configuration
type MailerConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// ClinicConfig describes where the clinic operates.
type ClinicConfig struct {
	TimeZone string
	Location *time.Location
}

const (
	StoreBackendSQL   = "sql"
	StoreBackendMongo = "mongo"
)

// LoadConfig loads configuration from a .env file (if any) and environment variables
func LoadConfig() (*Config, error) {
	// A missing .env is fine; the environment may already carry everything.
	_ = godotenv.Load()

	dbConfig := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "mysql"),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "telehealth"),
		DSN:      getEnv("DB_DSN", ""),
	}

	var err error
	if dbConfig.MaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if dbConfig.MaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	lifetimeMinutes, err := getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30)
	if err != nil {
		return nil, err
	}
	dbConfig.ConnMaxLifetime = time.Duration(lifetimeMinutes) * time.Minute

	if dbConfig.DSN == "" {
		dsn, err := buildDSN(dbConfig)
		if err != nil {
			return nil, err
		}
		dbConfig.DSN = dsn
	}

	jwtExpMinutes, err := getEnvInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	jwtRefreshExpHours, err := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	backend := getEnv("STORE_BACKEND", StoreBackendSQL)
	if backend != StoreBackendSQL && backend != StoreBackendMongo {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be %q or %q", backend, StoreBackendSQL, StoreBackendMongo)
	}

	clinic := ClinicConfig{TimeZone: getEnv("CLINIC_TIMEZONE", "UTC")}
	clinic.Location, err = time.LoadLocation(clinic.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", clinic.TimeZone, err)
	}

	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:5173"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		StoreBackend:              backend,
		Database:                  dbConfig,
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "telehealth"),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			Channel: getEnv("REDIS_EVENTS_CHANNEL", "telehealth:events"),
		},
		Mailer: MailerConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("MAIL_FROM", "no-reply@telehealth.local"),
			FromName:       getEnv("MAIL_FROM_NAME", "Telehealth Clinic"),
		},
		Clinic: clinic,
	}, nil
}

// IsProduction reports whether cookies and logs should use production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func buildDSN(db DatabaseConfig) (string, error) {
	switch db.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			db.Username, db.Password, db.Host, db.Port, db.Name), nil
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			db.Host, db.Username, db.Password, db.Name, db.Port), nil
	case "sqlite":
		return db.Name + ".db", nil
	default:
		return "", fmt.Errorf("invalid DB_DRIVER %q: must be mysql, postgres or sqlite", db.Driver)
	}
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}
