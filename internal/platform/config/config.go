package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	AppEnv      string
	APIPort     string
	FrontendURL string

	AccessTokenSecret  []byte
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret []byte
	RefreshTokenExpiry time.Duration

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSslMode      string
	DBConnStr      string
	DBMaxOpenConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ExecutionQueueName      string
	ExecutionLockKey        string
	ExecutionLockTTLSeconds int
	ExecutionJobTTL         time.Duration
	ExecutionJobTimeout     time.Duration

	Judge0APIURL          string
	Judge0APIKey          string
	Judge0PollInterval    time.Duration
	Judge0PollTimeout     time.Duration
	Judge0MaxPollAttempts int
	Judge0HTTPTimeout     time.Duration

	LogLevel  string
	LogFormat string
}

// IsDevelopment reports whether cookies may be sent over plain HTTP and
// internal error messages may reach clients.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", EnvDevelopment),
		APIPort:     getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		AccessTokenSecret:  []byte(getEnv("ACCESS_TOKEN_SECRET", "defaultsecret")),
		AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
		RefreshTokenSecret: []byte(getEnv("REFRESH_TOKEN_SECRET", "defaultrefreshsecret")),
		RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "user"),
		DBPassword:     getEnv("DB_PASSWORD", "password"),
		DBName:         getEnv("DB_NAME", "codearena"),
		DBSslMode:      getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		ExecutionQueueName:      getEnv("EXECUTION_QUEUE_NAME", "execution_jobs_queue"),
		ExecutionLockKey:        getEnv("EXECUTION_LOCK_KEY", "execution_job_lock"),
		ExecutionLockTTLSeconds: getEnvAsInt("EXECUTION_LOCK_TTL_SECONDS", 300),
		ExecutionJobTTL:         getEnvAsDuration("EXECUTION_JOB_TTL", 24*time.Hour),
		ExecutionJobTimeout:     getEnvAsDuration("EXECUTION_JOB_TIMEOUT", 2*time.Minute),

		Judge0APIURL:          strings.TrimRight(getEnv("JUDGE0_API_URL", "http://localhost:2358"), "/"),
		Judge0APIKey:          getEnv("JUDGE0_API_KEY", ""),
		Judge0PollInterval:    getEnvAsDuration("JUDGE0_POLL_INTERVAL", 2*time.Second),
		Judge0PollTimeout:     getEnvAsDuration("JUDGE0_POLL_TIMEOUT", 90*time.Second),
		Judge0MaxPollAttempts: getEnvAsInt("JUDGE0_MAX_POLL_ATTEMPTS", 45),
		Judge0HTTPTimeout:     getEnvAsDuration("JUDGE0_HTTP_TIMEOUT", 15*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("15m", "90s") and whole days ("7d").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	if days, ok := strings.CutSuffix(valueStr, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return fallback
}
