package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	GRPCPort    string
	HTTPPort    string
	FaceMeshURL string
	CORSOrigins string

	MaxSessions      int
	RateLimitPerMin  int
	MaxMessageSizeMB int
	LogLevel         string
	Environment      string

	TrackerOptionsFile string
	APITokenHash       string

	RetentionDays     int
	RetentionSchedule string

	DBDriver   string
	SQLitePath string
	DBName     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

func (p *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.DBHost, p.DBPort, p.DBUser, p.DBPassword, p.DBName, p.DBSSLMode)
}

// DSNForLog безопасный вывод DSN без пароля для логирования
func (p *Config) DSNForLog() string {
	if p.DBDriver == DriverSQLite {
		return "sqlite:" + p.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=*** dbname=%s sslmode=%s",
		p.DBHost, p.DBPort, p.DBUser, p.DBName, p.DBSSLMode)
}

// Database returns the database/sql driver name and the data source for it.
func (p *Config) Database() (driver, dsn string) {
	if p.DBDriver == DriverPostgres {
		return "pgx", p.DSN()
	}
	return DriverSQLite, p.SQLitePath
}

func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

// AuthEnabled reports whether API requests must carry a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.APITokenHash != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("HTTP_PORT", "8081")
	v.SetDefault("FACE_MESH_URL", "")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("MAX_SESSIONS", 64)
	v.SetDefault("RATE_PER_MIN", 1000)
	v.SetDefault("MAX_MESSAGE_SIZE_MB", 50)
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("TRACKER_OPTIONS_FILE", "")
	v.SetDefault("API_TOKEN_HASH", "")
	v.SetDefault("RETENTION_DAYS", 30)
	v.SetDefault("RETENTION_SCHEDULE", "@daily")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("SQLITE_PATH", "speaker_track.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "speaker_track")
	v.SetDefault("DB_SSLMODE", "disable")
}

func LoadConfig() *Config {
	// Загрузка .env файла (если существует)
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using system environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		GRPCPort:           v.GetString("GRPC_PORT"),
		HTTPPort:           v.GetString("HTTP_PORT"),
		FaceMeshURL:        v.GetString("FACE_MESH_URL"),
		CORSOrigins:        v.GetString("CORS_ORIGINS"),
		MaxSessions:        v.GetInt("MAX_SESSIONS"),
		RateLimitPerMin:    v.GetInt("RATE_PER_MIN"),
		MaxMessageSizeMB:   v.GetInt("MAX_MESSAGE_SIZE_MB"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		Environment:        v.GetString("ENVIRONMENT"),
		TrackerOptionsFile: v.GetString("TRACKER_OPTIONS_FILE"),
		APITokenHash:       v.GetString("API_TOKEN_HASH"),
		RetentionDays:      v.GetInt("RETENTION_DAYS"),
		RetentionSchedule:  v.GetString("RETENTION_SCHEDULE"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		SQLitePath:         v.GetString("SQLITE_PATH"),
		DBHost:             v.GetString("DB_HOST"),
		DBPort:             v.GetString("DB_PORT"),
		DBUser:             v.GetString("DB_USER"),
		DBPassword:         v.GetString("DB_PASSWORD"),
		DBName:             v.GetString("DB_NAME"),
		DBSSLMode:          v.GetString("DB_SSLMODE"),
	}

	// Проверка обязательных полей
	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DBPassword == "" {
			log.Warn("DB_PASSWORD is not set!")
		}
	case DriverSQLite:
	default:
		log.Warnf("Unknown DB_DRIVER %q, using sqlite", cfg.DBDriver)
		cfg.DBDriver = DriverSQLite
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 64
	}

	return cfg
}

// SetupLogging applies LOG_LEVEL and picks the formatter: text in dev, JSON
// everywhere else.
func SetupLogging(cfg *Config) {
	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsDev() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
