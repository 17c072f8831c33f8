package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	JWTExpiry          time.Duration
	RefreshTokenExpiry time.Duration

	SNSRegion string
	// Platform application ARNs for SNS mobile push. Push is disabled when both are empty.
	SNSPlatformAppARNAndroid string
	SNSPlatformAppARNIOS     string

	Push PushConfig
	WS   WSConfig

	AllowedOrigins []string // CORS allowed origins

	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Notifications  string
	DeviceBindings string
	Counters       string
}

// PushConfig bounds the background push fan-out.
type PushConfig struct {
	Workers     int
	QueueSize   int
	FanoutLimit int
	SendTimeout time.Duration // per device
	JobTimeout  time.Duration // per SendToUser job
}

// WSConfig tunes the realtime gateway.
type WSConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	PongWait     time.Duration
	RateLimit    float64
	RateBurst    int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Notifications:  getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			DeviceBindings: getEnv("DYNAMO_TABLE_DEVICE_BINDINGS", "device_bindings"),
			Counters:       getEnv("DYNAMO_TABLE_COUNTERS", "counters"),
		},
		JWTPrivateKeyPath:        getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:         getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:                getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		RefreshTokenExpiry:       getEnvDuration("REFRESH_TOKEN_EXPIRY", 30*24*time.Hour),
		SNSRegion:                getEnv("SNS_REGION", "us-east-1"),
		SNSPlatformAppARNAndroid: getEnv("SNS_PLATFORM_APP_ARN_ANDROID", ""),
		SNSPlatformAppARNIOS:     getEnv("SNS_PLATFORM_APP_ARN_IOS", ""),
		Push: PushConfig{
			Workers:     getEnvInt("PUSH_WORKERS", 4),
			QueueSize:   getEnvInt("PUSH_QUEUE_SIZE", 1024),
			FanoutLimit: getEnvInt("PUSH_FANOUT_LIMIT", 8),
			SendTimeout: getEnvDuration("PUSH_SEND_TIMEOUT", 5*time.Second),
			JobTimeout:  getEnvDuration("PUSH_JOB_TIMEOUT", 15*time.Second),
		},
		WS: WSConfig{
			SendBuffer:   getEnvInt("WS_SEND_BUFFER", 32),
			PingInterval: getEnvDuration("WS_PING_INTERVAL", 25*time.Second),
			PongWait:     getEnvDuration("WS_PONG_WAIT", 60*time.Second),
			RateLimit:    getEnvFloat("WS_RATE_LIMIT", 2),
			RateBurst:    getEnvInt("WS_RATE_BURST", 10),
		},
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

// PushEnabled reports whether at least one SNS platform application is configured.
func (c *Config) PushEnabled() bool {
	return c.SNSPlatformAppARNAndroid != "" || c.SNSPlatformAppARNIOS != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15s", "168h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
