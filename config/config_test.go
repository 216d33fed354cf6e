package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := FromViper(v)

	assert.Equal(t, "127.0.0.1:5000", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Queue.Driver)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)
	assert.Equal(t, 1, cfg.Queue.Workers)
	assert.Equal(t, 5*time.Second, cfg.Queue.Block)
	assert.Equal(t, "https://api.telegram.org/bot%s/%s", cfg.Bot.APIEndpoint)
}

func TestInitViper_ReadsEnvAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bot:\n  admin_chat_id: 42\n  webhook_url: https://example.org/\nstore:\n  driver: Redis\n"), 0o600))
	t.Setenv("TASKBOT_BOT_TOKEN", "123:abc")
	t.Setenv("TASKBOT_QUEUE_MAX_RETRIES", "5")

	v := viper.New()
	require.NoError(t, InitViper(v, path))
	cfg := FromViper(v)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, int64(42), cfg.Bot.AdminChatID)
	assert.Equal(t, "https://example.org", cfg.Bot.WebhookURL)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Queue.MaxRetries)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.RequireWebhookURL())
}

func TestFromViper_CORSOriginsFromEnv(t *testing.T) {
	t.Setenv("TASKBOT_SERVER_CORS_ORIGINS", "https://a.example.com,https://b.example.com, https://c.example.com")
	v := viper.New()
	require.NoError(t, InitViper(v, ""))

	cfg := FromViper(v)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}, cfg.Server.CORSOrigins)
}

func TestFromViper_CORSOriginsFromList(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("server.cors_origins", []string{"https://a.example.com", " https://b.example.com "})

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, FromViper(v).Server.CORSOrigins)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("store.driver", "sqlite")
	v.Set("queue.workers", 0)
	cfg := FromViper(v)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot.token is required")
	assert.Contains(t, err.Error(), "bot.admin_chat_id is required")
	assert.Contains(t, err.Error(), `unknown store.driver "sqlite"`)
	assert.Contains(t, err.Error(), "queue.workers must be at least 1")
}

func TestRequireWebhookURL(t *testing.T) {
	assert.Error(t, Config{}.RequireWebhookURL())
	assert.Error(t, Config{Bot: BotConfig{WebhookURL: "http://plain.example"}}.RequireWebhookURL())
	assert.NoError(t, Config{Bot: BotConfig{WebhookURL: "https://ok.example"}}.RequireWebhookURL())
}
