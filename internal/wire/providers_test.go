package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochats/internal/common"
	"gochats/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:       config.ServerConfig{Environment: "test"},
		RateLimit:    config.RateLimitConfig{WindowMs: 1000, Max: 2},
		Notification: config.NotificationConfig{ServiceName: "CHATS"},
		Logging:      config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func TestProvideRateLimiter(t *testing.T) {
	limiter := ProvideRateLimiter(testConfig())

	assert.True(t, limiter.Allow("k").Allowed)
	assert.True(t, limiter.Allow("k").Allowed)
	res := limiter.Allow("k")
	assert.False(t, res.Allowed)
	assert.LessOrEqual(t, res.ResetIn, time.Second)
}

func TestProvideNotifier_Disabled(t *testing.T) {
	n, cleanup := ProvideNotifier(testConfig(), common.DiscardLogger())
	defer cleanup()
	assert.IsType(t, common.NopNotifier{}, n)
}

func TestProvideLogger(t *testing.T) {
	require.NotNil(t, ProvideLogger(testConfig()))
	require.NotNil(t, ProvideErrorResponder(testConfig(), common.DiscardLogger()))
}

func TestInitializeApplication_StoreUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for server selection")
	}
	cfg := testConfig()
	cfg.MongoDB.URI = "mongodb://127.0.0.1:1/chats?serverSelectionTimeoutMS=200&connectTimeoutMS=200"
	cfg.MongoDB.Database = "chats"

	app, cleanup, err := InitializeApplication(cfg)
	assert.Error(t, err)
	assert.Nil(t, app)
	assert.Nil(t, cleanup)
}
