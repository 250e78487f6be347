// Package config exposes the runtime configuration of the dicoevent backend.
// Values come from the process environment, optionally seeded from a .env file.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

// CacheBackend selects the key/value store behind the read-through cache.
type CacheBackend string

const (
	CacheRedis  CacheBackend = "redis"
	CacheMemory CacheBackend = "memory"
)

// LoadEnv reads a .env file into the process environment. A missing file is
// not an error; variables may come from the container or CI instead.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("DICOEVENT_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("DICOEVENT_DEBUG") == "true"
}

func GetLogFolder() string {
	return getEnv("DICOEVENT_LOG_FOLDER", "logs")
}

func GetListen() string {
	return os.Getenv("DICOEVENT_LISTEN")
}

func GetPort() int {
	return getEnvInt("DICOEVENT_PORT", 8000)
}

// GetPublicURL is the scheme+host prefix used when rendering hypermedia links.
// Empty means links are emitted as absolute paths.
func GetPublicURL() string {
	return strings.TrimRight(os.Getenv("DICOEVENT_PUBLIC_URL"), "/")
}

func GetCacheBackend() CacheBackend {
	return CacheBackend(getEnv("DICOEVENT_CACHE_BACKEND", string(CacheRedis)))
}

// GetRedisAddr returns the external Redis address. Empty starts an embedded server.
func GetRedisAddr() string {
	return os.Getenv("DICOEVENT_REDIS_ADDR")
}

func GetRedisPassword() string {
	return os.Getenv("DICOEVENT_REDIS_PASSWORD")
}

func GetRedisDB() int {
	return getEnvInt("DICOEVENT_REDIS_DB", 0)
}

func GetCacheTTL() time.Duration {
	return getEnvDuration("DICOEVENT_CACHE_TTL", time.Hour)
}

func GetCacheTimeout() time.Duration {
	return getEnvDuration("DICOEVENT_CACHE_TIMEOUT", 500*time.Millisecond)
}

func GetDBTimeout() time.Duration {
	return getEnvDuration("DICOEVENT_DB_TIMEOUT", 5*time.Second)
}

func GetJWTSecret() string {
	return os.Getenv("DICOEVENT_JWT_SECRET")
}

func GetAccessTokenTTL() time.Duration {
	return getEnvDuration("DICOEVENT_ACCESS_TOKEN_TTL", 60*time.Minute)
}

func GetRefreshTokenTTL() time.Duration {
	return getEnvDuration("DICOEVENT_REFRESH_TOKEN_TTL", 24*time.Hour)
}

// GetLoginRateLimit is the number of token requests a client may issue per minute.
func GetLoginRateLimit() int {
	return getEnvInt("DICOEVENT_LOGIN_RATE_LIMIT", 20)
}

func GetMinioEndpoint() string {
	return os.Getenv("MINIO_ENDPOINT_URL")
}

func GetMinioAccessKey() string {
	return os.Getenv("MINIO_ACCESS_KEY")
}

func GetMinioSecretKey() string {
	return os.Getenv("MINIO_SECRET_KEY")
}

func GetMinioBucket() string {
	return getEnv("MINIO_BUCKET_NAME", "event-posters")
}

func GetMinioSecure() bool {
	return os.Getenv("MINIO_SECURE") == "true"
}

func GetStorageTimeout() time.Duration {
	return getEnvDuration("DICOEVENT_STORAGE_TIMEOUT", 15*time.Second)
}

func GetPresignExpiry() time.Duration {
	return getEnvDuration("DICOEVENT_PRESIGN_EXPIRY", time.Hour)
}

// GetNatsURL returns the task broker address. Empty runs notification tasks in-process.
func GetNatsURL() string {
	return os.Getenv("DICOEVENT_NATS_URL")
}

func GetNatsSubject() string {
	return getEnv("DICOEVENT_NATS_SUBJECT", "dicoevent.tasks.email")
}

func GetBrokerTimeout() time.Duration {
	return getEnvDuration("DICOEVENT_BROKER_TIMEOUT", 3*time.Second)
}

func GetMailWorkers() int {
	return getEnvInt("DICOEVENT_MAIL_WORKERS", 4)
}

func GetSendGridAPIKey() string {
	return os.Getenv("SENDGRID_API_KEY")
}

func GetMailSender() string {
	return getEnv("DICOEVENT_MAIL_SENDER", "no-reply@devcoach-dicoding.com")
}

func GetMailSenderName() string {
	return getEnv("DICOEVENT_MAIL_SENDER_NAME", "DevCoach Organizer Team")
}

func GetMailLang() string {
	return getEnv("DICOEVENT_MAIL_LANG", "id-ID")
}

func GetMailTimeout() time.Duration {
	return getEnvDuration("DICOEVENT_MAIL_TIMEOUT", 10*time.Second)
}

// GetPlaceholderEmailDomain is appended to usernames when a registrant has no email.
func GetPlaceholderEmailDomain() string {
	return getEnv("DICOEVENT_PLACEHOLDER_EMAIL_DOMAIN", "dicoding.com")
}

func GetReminderCron() string {
	return getEnv("DICOEVENT_REMINDER_CRON", "@hourly")
}

func GetReminderLookahead() time.Duration {
	return getEnvDuration("DICOEVENT_REMINDER_LOOKAHEAD", 2*time.Hour)
}

func GetTimeLocation() *time.Location {
	loc, err := time.LoadLocation(getEnv("DICOEVENT_TIME_LOCATION", "Local"))
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
