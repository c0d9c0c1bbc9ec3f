package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	AppID         string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AuthJWTSecret string
	AuthTokenTTL  time.Duration

	UseMemoryQueue bool
	ChatQueueURL   string
	WorkerCount    int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	BedrockModelID    string
	BedrockKBID       string
	BedrockKBModelARN string

	ReportsArchiveBucket string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	CareTeamNumber   string
	CareTeamEmails   string

	ZoomAccountID    string
	ZoomClientID     string
	ZoomClientSecret string
	ZoomBaseURL      string

	EmailProvider     string
	SESFromEmail      string
	SESFromName       string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins string

	MessageDismissAfter    time.Duration
	RescheduleDismissAfter time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AppID:         getEnv("APP_ID", "careconnect-ai-app"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthTokenTTL:  getEnvAsDuration("AUTH_TOKEN_TTL", 24*time.Hour),

		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		ChatQueueURL:   getEnv("CHAT_QUEUE_URL", ""),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID:    getEnv("BEDROCK_MODEL_ID", "us.anthropic.claude-3-5-haiku-20241022-v1:0"),
		BedrockKBID:       getEnv("BEDROCK_KB_ID", ""),
		BedrockKBModelARN: getEnv("BEDROCK_KB_MODEL_ARN", ""),

		ReportsArchiveBucket: getEnv("REPORTS_ARCHIVE_BUCKET", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		CareTeamNumber:   getEnv("CARE_TEAM_NUMBER", ""),
		CareTeamEmails:   getEnv("CARE_TEAM_EMAILS", ""),

		ZoomAccountID:    getEnv("ZOOM_ACCOUNT_ID", ""),
		ZoomClientID:     getEnv("ZOOM_CLIENT_ID", ""),
		ZoomClientSecret: getEnv("ZOOM_CLIENT_SECRET", ""),
		ZoomBaseURL:      getEnv("ZOOM_BASE_URL", ""),

		EmailProvider:     getEnv("EMAIL_PROVIDER", "auto"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "CareConnect"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "CareConnect"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),

		MessageDismissAfter:    getEnvAsDuration("MESSAGE_DISMISS_AFTER", 3*time.Second),
		RescheduleDismissAfter: getEnvAsDuration("RESCHEDULE_DISMISS_AFTER", 5*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
