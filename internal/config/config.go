package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	Port      int
	AppURL    string
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Mail      MailConfig
	Twilio    TwilioConfig
	Bus       BusConfig
	Storage   StorageConfig
	AuditCron string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret        string
	TokenTTL         time.Duration
	PasswordResetTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
}

type MailConfig struct {
	Provider     string
	From         string
	ReplyTo      string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	PlunkAPIKey  string
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	CountryCode string
}

type BusConfig struct {
	Backend            string
	RabbitMQURL        string
	PubSubProjectID    string
	PubSubCredentials  string
	SubscriptionSuffix string
}

type StorageConfig struct {
	Backend        string
	Dir            string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	Bucket         string
	GCSProjectID   string
	GCSCredentials string
}

// Load reads configuration from the environment. In dev mode a local .env
// file is loaded first.
func Load() Config {
	env := getEnv("ENV", "dev")
	if env == "dev" {
		_ = godotenv.Load()
	}

	hostname, _ := os.Hostname()

	return Config{
		Env:    env,
		Port:   getEnvInt("PORT", 8080),
		AppURL: strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "servicehub"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "servicehub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
			TokenTTL:         getEnvDuration("JWT_TTL", 72*time.Hour),
			PasswordResetTTL: getEnvDuration("PASSWORD_RESET_TTL", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Mail: MailConfig{
			Provider:     getEnv("MAIL_PROVIDER", "smtp"),
			From:         getEnv("MAIL_FROM", os.Getenv("SMTP_FROM")),
			ReplyTo:      os.Getenv("MAIL_REPLY_TO"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnv("SMTP_PORT", "465"),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			PlunkAPIKey:  os.Getenv("PLUNK_API_KEY"),
		},
		Twilio: TwilioConfig{
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:  os.Getenv("TWILIO_FROM_NUMBER"),
			CountryCode: getEnv("SMS_COUNTRY_CODE", "+216"),
		},
		Bus: BusConfig{
			Backend:            getEnv("BUS_BACKEND", "local"),
			RabbitMQURL:        os.Getenv("RABBITMQ_URL"),
			PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			PubSubCredentials:  os.Getenv("PUBSUB_CREDENTIALS_FILE"),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-"+hostname),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "local"),
			Dir:            getEnv("STORAGE_DIR", "./uploads"),
			MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
			MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
			MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
			Bucket:         getEnv("STORAGE_BUCKET", "servicehub-images"),
			GCSProjectID:   os.Getenv("GCS_PROJECT_ID"),
			GCSCredentials: os.Getenv("GCS_CREDENTIALS_FILE"),
		},
		AuditCron: getEnv("AUDIT_CRON", "0 3 * * *"),
	}
}

// PostgresURL renders the database settings as a postgres:// URL usable by
// both pgxpool and golang-migrate.
func (c Config) PostgresURL() string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Path:   c.Database.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.Database.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err == nil && value > 0 {
			return value
		}
	}
	return defaultValue
}
