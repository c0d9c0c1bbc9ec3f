package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careconnect-ai/platform/internal/appointments"
	appconfig "github.com/careconnect-ai/platform/internal/config"
	"github.com/careconnect-ai/platform/internal/notify"
	"github.com/careconnect-ai/platform/internal/reports"
	"github.com/careconnect-ai/platform/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: ""}
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, nil, false))
}

func TestBuildRedisClientVerified(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, nil, true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
}

func TestBuildRedisClientVerifyFailure(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, nil, true))
}

func TestBuildAppointmentStoreFallsBackToMemory(t *testing.T) {
	cfg := &appconfig.Config{AppID: "careconnect-ai-app"}
	store := BuildAppointmentStore(nil, nil, cfg, logging.Default())
	_, ok := store.(*appointments.MemoryStore)
	assert.True(t, ok)
}

func TestBuildReportRepositoryFallsBackToMemory(t *testing.T) {
	repo := BuildReportRepository(nil, logging.Default())
	_, ok := repo.(*reports.MemoryRepository)
	assert.True(t, ok)
}

func TestBuildEmailSenderPrefersSendGrid(t *testing.T) {
	cfg := &appconfig.Config{
		EmailProvider:     "auto",
		SendGridAPIKey:    "SG.test",
		SendGridFromEmail: "noreply@careconnect.example",
	}
	sender := BuildEmailSender(cfg, nil, logging.Default())
	_, ok := sender.(*notify.SendGridSender)
	assert.True(t, ok)
}

func TestBuildEmailSenderStubWhenUnconfigured(t *testing.T) {
	sender := BuildEmailSender(&appconfig.Config{EmailProvider: "auto"}, nil, logging.Default())
	_, ok := sender.(*notify.StubEmailSender)
	assert.True(t, ok)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a@x.example", "b@x.example"}, SplitList(" a@x.example, b@x.example ,"))
	assert.Nil(t, SplitList(""))
}
