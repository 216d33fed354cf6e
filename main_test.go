package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mrinalgaur2005/taskbot/config"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/mrinalgaur2005/taskbot/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisConfig(t *testing.T) config.Config {
	t.Helper()
	mr := miniredis.RunT(t)
	return config.Config{
		Store: config.StoreConfig{Driver: "redis"},
		Queue: config.QueueConfig{
			Driver:   "redis",
			Stream:   "taskbot:updates",
			Group:    "taskbot",
			Consumer: "c1",
			Block:    50 * time.Millisecond,
		},
		Redis: config.RedisConfig{Addr: mr.Addr()},
	}
}

func TestOpenStoreAndQueue_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		Store: config.StoreConfig{Driver: "memory"},
		Queue: config.QueueConfig{Driver: "memory", Size: 2},
	}

	st, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer st.Close()
	q, err := openQueue(ctx, cfg)
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.Enqueue(ctx, model.Update{ID: "1"}))
	require.NoError(t, q.Enqueue(ctx, model.Update{ID: "2"}))
	assert.ErrorIs(t, q.Enqueue(ctx, model.Update{ID: "3"}), queue.ErrFull)
}

func TestOpenStoreAndQueue_Redis(t *testing.T) {
	ctx := context.Background()
	cfg := redisConfig(t)

	st, err := openStore(ctx, cfg)
	require.NoError(t, err)
	q, err := openQueue(ctx, cfg)
	require.NoError(t, err)

	_, err = st.AddTask(ctx, 7, "ship it")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, model.Update{ID: "u1", Kind: model.KindWebhook}))

	// Closing the queue must leave the store usable.
	require.NoError(t, q.Close())
	tasks, err := st.Tasks(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"ship it"}, tasks)
	require.NoError(t, st.Close())
}

func TestOpenStore_UnreachableRedis(t *testing.T) {
	cfg := config.Config{
		Store: config.StoreConfig{Driver: "redis"},
		Redis: config.RedisConfig{Addr: "127.0.0.1:1"},
	}
	_, err := openStore(context.Background(), cfg)
	assert.ErrorContains(t, err, "connect to redis")
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.Config{Store: config.StoreConfig{Driver: "sqlite"}})
	assert.Error(t, err)
}

func fakeBotAPI(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	calls := &sync.Map{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		calls.Store(method, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Task","username":"task_bot"}}`))
		case "setWebhook", "deleteWebhook":
			_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
		case "getWebhookInfo":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"url":"https://bot.example.com/telegram","pending_update_count":4,"last_error_message":"timeout"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("TASKBOT_BOT_TOKEN", "123:abc")
	t.Setenv("TASKBOT_BOT_ADMIN_CHAT_ID", "1000")
	t.Setenv("TASKBOT_BOT_WEBHOOK_URL", "https://bot.example.com/")
	t.Setenv("TASKBOT_BOT_WEBHOOK_SECRET", "s3cret")
	t.Setenv("TASKBOT_BOT_API_ENDPOINT", srv.URL+"/bot%s/%s")
	return srv, calls
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestWebhookSetCommand(t *testing.T) {
	_, calls := fakeBotAPI(t)

	out, err := runCLI(t, "webhook", "set")
	require.NoError(t, err)
	assert.Contains(t, out, "webhook set to https://bot.example.com/telegram")

	raw, ok := calls.Load("setWebhook")
	require.True(t, ok)
	form := raw.(url.Values)
	assert.Equal(t, "https://bot.example.com/telegram", form.Get("url"))
	assert.Equal(t, "s3cret", form.Get("secret_token"))
}

func TestWebhookDeleteCommand(t *testing.T) {
	_, calls := fakeBotAPI(t)

	out, err := runCLI(t, "webhook", "delete", "--drop-pending")
	require.NoError(t, err)
	assert.Contains(t, out, "webhook deleted")

	raw, ok := calls.Load("deleteWebhook")
	require.True(t, ok)
	assert.Equal(t, "true", raw.(url.Values).Get("drop_pending_updates"))
}

func TestWebhookInfoCommand(t *testing.T) {
	fakeBotAPI(t)

	out, err := runCLI(t, "webhook", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "url: https://bot.example.com/telegram")
	assert.Contains(t, out, "pending updates: 4")
	assert.Contains(t, out, "last error: timeout")
}

func TestWebhookSetCommand_RequiresHTTPS(t *testing.T) {
	fakeBotAPI(t)
	t.Setenv("TASKBOT_BOT_WEBHOOK_URL", "http://bot.example.com")

	_, err := runCLI(t, "webhook", "set")
	assert.ErrorContains(t, err, "must be https")
}

func TestCommandsValidateConfig(t *testing.T) {
	t.Setenv("TASKBOT_BOT_TOKEN", "")
	t.Setenv("TASKBOT_BOT_ADMIN_CHAT_ID", "")

	_, err := runCLI(t, "webhook", "info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot.token is required")
	assert.Contains(t, err.Error(), "bot.admin_chat_id is required")
}
