// Package bootstrap assembles runtime collaborators from configuration so
// every binary shares the same wiring.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/careconnect-ai/platform/internal/appointments"
	appconfig "github.com/careconnect-ai/platform/internal/config"
	"github.com/careconnect-ai/platform/internal/notify"
	"github.com/careconnect-ai/platform/internal/reports"
	"github.com/careconnect-ai/platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildAppointmentStore selects the Postgres-backed store when a database is
// configured, otherwise the in-process store.
func BuildAppointmentStore(pool *pgxpool.Pool, redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) appointments.Store {
	if pool != nil {
		return appointments.NewPostgresStore(pool, redisClient, cfg.AppID, logger)
	}
	logger.Warn("no database configured; appointments are held in memory")
	return appointments.NewMemoryStore()
}

// BuildReportRepository selects the Postgres repository when a database is
// configured, otherwise the in-process one.
func BuildReportRepository(pool *pgxpool.Pool, logger *logging.Logger) reports.Repository {
	if pool != nil {
		return reports.NewPostgresRepository(pool)
	}
	logger.Warn("no database configured; reports are held in memory")
	return reports.NewMemoryRepository()
}

// BuildEmailSender picks the email provider. "sendgrid" and "ses" force a
// provider; "auto" prefers SendGrid when its key is present, then SES, then
// the logging stub.
func BuildEmailSender(cfg *appconfig.Config, sesClient *sesv2.Client, logger *logging.Logger) notify.EmailSender {
	provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))

	sendgridReady := cfg.SendGridAPIKey != "" && cfg.SendGridFromEmail != ""
	sesReady := sesClient != nil && cfg.SESFromEmail != ""

	switch provider {
	case "sendgrid":
		if sendgridReady {
			return notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.SendGridFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
		}
	case "ses":
		if sesReady {
			return notify.NewSESSender(sesClient, notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SESFromName,
			}, logger)
		}
	default:
		if sendgridReady {
			return notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.SendGridFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
		}
		if sesReady {
			return notify.NewSESSender(sesClient, notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SESFromName,
			}, logger)
		}
	}

	logger.Warn("email notifications disabled; using stub sender")
	return notify.NewStubEmailSender(logger)
}

// SplitList parses a comma-separated config value into trimmed entries.
func SplitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
