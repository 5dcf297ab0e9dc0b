package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StoreDynamoDB = "dynamodb"

	UploadLocal = "local"
	UploadS3    = "s3"
)

type Config struct {
	Env       string
	LogLevel  string
	Server    ServerConfig
	Store     StoreConfig
	Mongo     MongoConfig
	DynamoDB  DynamoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	OTP       OTPConfig
	Upload    UploadConfig
	Mail      MailConfig
	Notify    NotifyConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type StoreConfig struct {
	Driver        string
	SweepInterval time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

// RedisConfig enables the shared key-value store when Endpoint is set.
// Without it the rate limiter and session revocations live in process memory.
type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey  string
	Expiry     time.Duration
	CookieName string
}

type OTPConfig struct {
	Length         int
	Expiry         time.Duration
	MaxAttempts    int
	RequestLimit   int
	RequestWindow  time.Duration
	HashCost       int
	ReturnToClient bool
}

type UploadConfig struct {
	Driver       string
	Dir          string
	PublicPath   string
	MaxSize      int64
	AllowedTypes []string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3PublicURL  string
}

type MailConfig struct {
	BrevoAPIKey string
	FromEmail   string
	FromName    string
}

type NotifyConfig struct {
	ChatWebhookURL  string
	SheetWebhookURL string
	Timeout         time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig bounds public requests per client IP. X-Forwarded-For is
// only honoured when the peer is listed in TrustedProxies.
type RateLimitConfig struct {
	PerMinute      int
	Burst          int
	TrustedProxies []string
}

type AdminConfig struct {
	SeedFile   string
	BcryptCost int
}

// Load reads an optional .env file and the process environment. Env vars
// override the file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:      strings.ToLower(v.GetString("APP_ENV")),
		LogLevel: v.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(v.GetString("STORE_DRIVER")),
			SweepInterval: v.GetDuration("STORE_SWEEP_INTERVAL"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  v.GetString("DYNAMODB_ENDPOINT"),
			Region:    v.GetString("DYNAMODB_REGION"),
			TableName: v.GetString("DYNAMODB_TABLE_NAME"),
		},
		Redis: RedisConfig{
			Endpoint: v.GetString("REDIS_ENDPOINT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			SecretKey:  v.GetString("JWT_SECRET_KEY"),
			Expiry:     v.GetDuration("JWT_EXPIRY"),
			CookieName: v.GetString("JWT_COOKIE_NAME"),
		},
		OTP: OTPConfig{
			Length:         v.GetInt("OTP_LENGTH"),
			Expiry:         v.GetDuration("OTP_EXPIRY"),
			MaxAttempts:    v.GetInt("OTP_MAX_ATTEMPTS"),
			RequestLimit:   v.GetInt("OTP_REQUEST_LIMIT"),
			RequestWindow:  v.GetDuration("OTP_REQUEST_WINDOW"),
			HashCost:       v.GetInt("OTP_HASH_COST"),
			ReturnToClient: v.GetBool("OTP_RETURN_TO_CLIENT"),
		},
		Upload: UploadConfig{
			Driver:       strings.ToLower(v.GetString("UPLOAD_DRIVER")),
			Dir:          v.GetString("UPLOAD_DIR"),
			PublicPath:   v.GetString("UPLOAD_PUBLIC_PATH"),
			MaxSize:      v.GetInt64("UPLOAD_MAX_SIZE"),
			AllowedTypes: splitList(v.GetString("UPLOAD_ALLOWED_TYPES")),
			S3Bucket:     v.GetString("UPLOAD_S3_BUCKET"),
			S3Region:     v.GetString("UPLOAD_S3_REGION"),
			S3Endpoint:   v.GetString("UPLOAD_S3_ENDPOINT"),
			S3PublicURL:  v.GetString("UPLOAD_S3_PUBLIC_URL"),
		},
		Mail: MailConfig{
			BrevoAPIKey: v.GetString("BREVO_API_KEY"),
			FromEmail:   v.GetString("MAIL_FROM_EMAIL"),
			FromName:    v.GetString("MAIL_FROM_NAME"),
		},
		Notify: NotifyConfig{
			ChatWebhookURL:  v.GetString("CHAT_WEBHOOK_URL"),
			SheetWebhookURL: v.GetString("SHEET_WEBHOOK_URL"),
			Timeout:         v.GetDuration("NOTIFY_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		RateLimit: RateLimitConfig{
			PerMinute:      v.GetInt("RATE_LIMIT_PER_MINUTE"),
			Burst:          v.GetInt("RATE_LIMIT_BURST"),
			TrustedProxies: splitList(v.GetString("RATE_LIMIT_TRUSTED_PROXIES")),
		},
		Admin: AdminConfig{
			SeedFile:   v.GetString("ADMIN_SEED_FILE"),
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("STORE_SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "intake")
	v.SetDefault("DYNAMODB_ENDPOINT", "")
	v.SetDefault("DYNAMODB_REGION", "us-east-1")
	v.SetDefault("DYNAMODB_TABLE_NAME", "IntakeTable")

	v.SetDefault("REDIS_ENDPOINT", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_EXPIRY", 24*time.Hour)
	v.SetDefault("JWT_COOKIE_NAME", "admin-token")

	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_EXPIRY", 10*time.Minute)
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_REQUEST_LIMIT", 5)
	v.SetDefault("OTP_REQUEST_WINDOW", time.Hour)
	v.SetDefault("OTP_HASH_COST", 10)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)

	v.SetDefault("UPLOAD_DRIVER", UploadLocal)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_PUBLIC_PATH", "/uploads")
	v.SetDefault("UPLOAD_MAX_SIZE", 10<<20)
	v.SetDefault("UPLOAD_ALLOWED_TYPES", strings.Join(DefaultAllowedTypes, ","))
	v.SetDefault("UPLOAD_S3_REGION", "us-east-1")

	v.SetDefault("MAIL_FROM_NAME", "Project Intake")
	v.SetDefault("NOTIFY_TIMEOUT", 10*time.Second)
	v.SetDefault("KAFKA_TOPIC", "intake.submissions")

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_TRUSTED_PROXIES", "")

	v.SetDefault("BCRYPT_COST", 12)
}

// DefaultAllowedTypes is the upload MIME allow-list used when
// UPLOAD_ALLOWED_TYPES is unset.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
}

func (c *Config) validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("JWT_SECRET_KEY environment variable is required")
	}
	if len(c.JWT.SecretKey) < 32 {
		return errors.New("JWT_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	switch c.Store.Driver {
	case StoreMemory, StoreMongo, StoreDynamoDB:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of %s, %s, %s", StoreMemory, StoreMongo, StoreDynamoDB)
	}

	switch c.Upload.Driver {
	case UploadLocal:
	case UploadS3:
		if c.Upload.S3Bucket == "" {
			return errors.New("UPLOAD_S3_BUCKET is required when UPLOAD_DRIVER=s3")
		}
	default:
		return fmt.Errorf("UPLOAD_DRIVER must be one of %s, %s", UploadLocal, UploadS3)
	}

	if c.OTP.ReturnToClient && c.IsProduction() {
		return errors.New("OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.OTP.Length < 4 || c.OTP.Length > 8 {
		return errors.New("OTP_LENGTH must be between 4 and 8")
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP_MAX_ATTEMPTS must be positive")
	}
	if c.Admin.BcryptCost < 4 || c.Admin.BcryptCost > 31 {
		return errors.New("BCRYPT_COST must be between 4 and 31")
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"JWT_EXPIRY", c.JWT.Expiry},
		{"OTP_EXPIRY", c.OTP.Expiry},
		{"OTP_REQUEST_WINDOW", c.OTP.RequestWindow},
		{"STORE_SWEEP_INTERVAL", c.Store.SweepInterval},
		{"NOTIFY_TIMEOUT", c.Notify.Timeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be a positive duration", d.name)
		}
	}
	if c.OTP.RequestLimit < 0 {
		return errors.New("OTP_REQUEST_LIMIT must not be negative")
	}
	if c.RateLimit.PerMinute < 1 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.RateLimit.Burst < 1 {
		return errors.New("RATE_LIMIT_BURST must be positive")
	}
	if c.Upload.MaxSize < 1 {
		return errors.New("UPLOAD_MAX_SIZE must be positive")
	}
	for _, p := range c.RateLimit.TrustedProxies {
		if !validProxy(p) {
			return fmt.Errorf("RATE_LIMIT_TRUSTED_PROXIES entry %q is not an IP or CIDR", p)
		}
	}

	for _, o := range c.Server.AllowedOrigins {
		if o == "*" && c.IsProduction() {
			return errors.New("CORS_ALLOWED_ORIGINS must list explicit origins when APP_ENV=production")
		}
	}
	return nil
}

func validProxy(entry string) bool {
	if net.ParseIP(entry) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(entry)
	return err == nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
