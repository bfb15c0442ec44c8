package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Redis     RedisConfig
	S3        S3Config
	Trust     TrustConfig
	Audit     AuditConfig
	Scheduler SchedulerConfig
	Payment   PaymentConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// 연결 풀. 판매자 락을 잡은 트랜잭션마다 연결 하나를 점유한다
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RedisConfig 분산 락용 Redis 설정 (Enabled=false 이면 프로세스 내 락 사용)
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	DocumentPrefix  string // 인증서 문서 저장 prefix
}

// TrustConfig 판매자 신뢰도 엔진 설정
type TrustConfig struct {
	MaxDocumentBytes          int64
	AllowedDocumentExtensions []string
	RecomputeConcurrency      int
	LockTimeout               time.Duration
}

// AuditConfig 감사 로그 설정
type AuditConfig struct {
	PIIKey string // hex 인코딩된 32바이트 키
}

// PaymentConfig 결제 대행사 콜백 설정
type PaymentConfig struct {
	WebhookSecret string // X-Webhook-Secret 헤더 값
}

type SchedulerConfig struct {
	SubscriptionExpirySpec string // cron 표현식
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "bizmarket"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),
			MaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "50"), 50),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"), 30*time.Minute),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			LockTTL:  parseDuration(getEnv("REDIS_LOCK_TTL", "30s"), 30*time.Second),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			DocumentPrefix:  getEnv("AWS_S3_DOCUMENT_PREFIX", "certifications"),
		},
		Trust: TrustConfig{
			MaxDocumentBytes:          int64(parseInt(getEnv("TRUST_MAX_DOCUMENT_BYTES", "10485760"), 10<<20)),
			AllowedDocumentExtensions: parseSlice(getEnv("TRUST_ALLOWED_DOCUMENT_EXTENSIONS", ".pdf,.jpg,.jpeg,.png")),
			RecomputeConcurrency:      parseInt(getEnv("TRUST_RECOMPUTE_CONCURRENCY", "8"), 8),
			LockTimeout:               parseDuration(getEnv("TRUST_LOCK_TIMEOUT", "10s"), 10*time.Second),
		},
		Audit: AuditConfig{
			PIIKey: getEnv("AUDIT_PII_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			SubscriptionExpirySpec: getEnv("SUBSCRIPTION_EXPIRY_CRON", "0 * * * *"),
		},
		Payment: PaymentConfig{
			WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		},
	}

	if config.JWT.Secret == "" {
		if config.Server.Environment != "development" {
			return nil, fmt.Errorf("JWT_SECRET is required in %s", config.Server.Environment)
		}
		config.JWT.Secret = "dev-only-secret"
	}

	if config.Payment.WebhookSecret == "" && config.Server.Environment != "development" {
		return nil, fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required in %s", config.Server.Environment)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
