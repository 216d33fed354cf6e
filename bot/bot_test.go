package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/mrinalgaur2005/taskbot/producer"
	"github.com/mrinalgaur2005/taskbot/queue"
	"github.com/mrinalgaur2005/taskbot/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 1000

var (
	admin = tgbotapi.User{ID: adminID, FirstName: "Ada", UserName: "ada_admin"}
	bob   = tgbotapi.User{ID: 777, FirstName: "Bob", UserName: "bob_smith"}
)

type harness struct {
	bot   *Bot
	api   *fakeAPI
	store store.Store
	queue queue.Queue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := newFakeAPI()
	st := store.NewMemoryStore()
	q := queue.NewMemoryQueue(10)
	b := New(api, st, producer.New(q), Config{AdminChatID: adminID, PublicURL: "https://bot.example"})
	return &harness{bot: b, api: api, store: st, queue: q}
}

func (h *harness) say(t *testing.T, from tgbotapi.User, text string) {
	t.Helper()
	require.NoError(t, h.bot.Handle(context.Background(), textUpdate(from, text)))
}

func textUpdate(from tgbotapi.User, text string) model.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &from,
		Chat:      &tgbotapi.Chat{ID: from.ID, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		n := strings.IndexByte(text, ' ')
		if n < 0 {
			n = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return model.Update{
		ID:       "test",
		Kind:     model.KindTelegram,
		Telegram: &tgbotapi.Update{UpdateID: 1, Message: msg},
	}
}

func (h *harness) tasks(t *testing.T, userID int64) []string {
	t.Helper()
	tasks, err := h.store.Tasks(context.Background(), userID)
	require.NoError(t, err)
	return tasks
}

func (h *harness) session(t *testing.T, userID int64) model.Session {
	t.Helper()
	sess, err := h.store.Session(context.Background(), userID)
	require.NoError(t, err)
	return sess
}

func TestStart_AdvertisesEndpoints(t *testing.T) {
	h := newHarness(t)
	h.say(t, bob, "/start")

	reply := h.api.lastTo(bob.ID)
	assert.Contains(t, reply, "<code>https://bot.example/healthcheck</code>")
	assert.Contains(t, reply, "<code>https://bot.example/submittask</code>")
	assert.Contains(t, reply, "/assigntask")
	assert.Equal(t, tgbotapi.ModeHTML, h.api.sent[0].ParseMode)
}

func TestAssign_ByNumericID(t *testing.T) {
	h := newHarness(t)
	h.api.members[555] = tgbotapi.User{ID: 555, FirstName: "Eve"}

	h.say(t, admin, "/assigntask")
	assert.Contains(t, h.api.lastTo(adminID), "user ID or @username")
	assert.True(t, h.session(t, adminID).WaitingForUserID)

	h.say(t, admin, " 555 ")
	assert.Contains(t, h.api.lastTo(adminID), "Now send me the task for")
	assert.Equal(t, model.Session{AssigningTaskTo: 555}, h.session(t, adminID))

	h.say(t, admin, "  Write the report ")
	assert.Equal(t, []string{"Write the report"}, h.tasks(t, 555))
	assert.True(t, h.session(t, adminID).Idle())

	assert.Contains(t, h.api.lastTo(555), "You have a new task")
	assert.Contains(t, h.api.lastTo(555), "<code>Write the report</code>")
	assert.Contains(t, h.api.lastTo(adminID), `Task assigned to <a href="tg://user?id=555">Eve</a>`)
	assert.Contains(t, h.api.lastTo(adminID), "1 open task.")
}

func TestAssign_ArgumentSkipsPrompt(t *testing.T) {
	h := newHarness(t)
	h.say(t, bob, "/start")

	h.say(t, admin, "/assigntask @Bob_Smith")
	assert.Contains(t, h.api.lastTo(adminID), `<a href="tg://user?id=777">Bob</a>`)
	assert.Equal(t, model.Session{AssigningTaskTo: bob.ID}, h.session(t, adminID))
}

func TestAssign_UsernameFallsBackToGetChat(t *testing.T) {
	h := newHarness(t)
	h.api.chats["@carol_x"] = tgbotapi.Chat{ID: 888, Type: "private", UserName: "carol_x", FirstName: "Carol"}

	h.say(t, admin, "/assigntask")
	h.say(t, admin, "carol_x")
	assert.Equal(t, model.Session{AssigningTaskTo: 888}, h.session(t, adminID))
}

func TestAssign_RejectsChannelHandles(t *testing.T) {
	h := newHarness(t)
	h.api.chats["@news_channel"] = tgbotapi.Chat{ID: -1001234, Type: "channel", UserName: "news_channel", Title: "News"}

	h.say(t, admin, "/assigntask @news_channel")
	assert.Contains(t, h.api.lastTo(adminID), "could not find that user")
	assert.Equal(t, model.Session{WaitingForUserID: true}, h.session(t, adminID))

	h.say(t, admin, "do it")
	assert.Empty(t, h.tasks(t, -1001234))
}

func TestAssign_HandlesShorterThanFiveCharsAreRejected(t *testing.T) {
	h := newHarness(t)
	h.api.chats["@abcd"] = tgbotapi.Chat{ID: 999, Type: "private", UserName: "abcd"}

	h.say(t, admin, "/assigntask @abcd")
	assert.Contains(t, h.api.lastTo(adminID), "could not find that user")
	assert.True(t, h.session(t, adminID).WaitingForUserID)
}

func TestAssign_UnknownUserKeepsWaiting(t *testing.T) {
	h := newHarness(t)
	h.say(t, admin, "/assigntask")
	h.say(t, admin, "@ghost_user")

	assert.Contains(t, h.api.lastTo(adminID), "could not find that user")
	assert.True(t, h.session(t, adminID).WaitingForUserID)

	h.say(t, admin, "not a handle!")
	assert.Contains(t, h.api.lastTo(adminID), "could not find that user")
}

func TestAssign_OnlyAdmin(t *testing.T) {
	h := newHarness(t)
	h.say(t, bob, "/assigntask")

	assert.Equal(t, "Only the administrator can assign tasks.", h.api.lastTo(bob.ID))
	assert.True(t, h.session(t, bob.ID).Idle())
}

func TestAssign_NotificationFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.api.failSend[555] = &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}

	h.say(t, admin, "/assigntask 555")
	h.say(t, admin, "Ship it")

	assert.Equal(t, []string{"Ship it"}, h.tasks(t, 555))
	assert.Contains(t, h.api.lastTo(adminID), "could not notify them")
}

func TestAssign_EmptyTaskIsRejected(t *testing.T) {
	h := newHarness(t)
	h.say(t, admin, "/assigntask 555")
	h.say(t, admin, "   ")

	assert.Contains(t, h.api.lastTo(adminID), "cannot be empty")
	assert.Empty(t, h.tasks(t, 555))
	assert.Equal(t, model.Session{AssigningTaskTo: 555}, h.session(t, adminID))
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	for _, task := range []string{"buy milk", "call mom", "fix <bug>"} {
		_, err := h.store.AddTask(ctx, bob.ID, task)
		require.NoError(t, err)
	}

	h.say(t, bob, "/complete call mom")
	assert.Equal(t, []string{"buy milk", "fix <bug>"}, h.tasks(t, bob.ID))
	assert.Contains(t, h.api.lastTo(bob.ID), "Task completed: <code>call mom</code>")
	assert.Contains(t, h.api.lastTo(bob.ID), "2 open tasks left")
	assert.Contains(t, h.api.lastTo(adminID), "completed the task <code>call mom</code>")

	h.say(t, bob, "/done 2")
	assert.Equal(t, []string{"buy milk"}, h.tasks(t, bob.ID))
	assert.Contains(t, h.api.lastTo(bob.ID), "<code>fix &lt;bug&gt;</code>")

	h.say(t, bob, "/complete Buy Milk")
	assert.Contains(t, h.api.lastTo(bob.ID), "Task not found: <code>Buy Milk</code>")
	assert.Equal(t, []string{"buy milk"}, h.tasks(t, bob.ID))

	h.say(t, bob, "/complete")
	assert.Contains(t, h.api.lastTo(bob.ID), "Usage: /complete")
	assert.Contains(t, h.api.lastTo(bob.ID), "1. <code>buy milk</code>")

	h.say(t, bob, "/complete buy milk")
	h.say(t, bob, "/complete buy milk")
	assert.Equal(t, "You have no open tasks.", h.api.lastTo(bob.ID))
}

func TestMyTasks(t *testing.T) {
	h := newHarness(t)
	h.say(t, bob, "/mytasks")
	assert.Equal(t, "You have no open tasks.", h.api.lastTo(bob.ID))

	_, err := h.store.AddTask(context.Background(), bob.ID, "a")
	require.NoError(t, err)
	h.say(t, bob, "/tasks")
	assert.Equal(t, "Your open tasks:\n\n1. <code>a</code>", h.api.lastTo(bob.ID))
}

func TestCustomUpdate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.say(t, bob, "/customupdate")
	assert.Equal(t, "Please send your user ID and task separated by a comma.", h.api.lastTo(bob.ID))

	h.say(t, bob, "no comma here")
	assert.Equal(t, "Invalid input format. Please provide user ID and task separated by a comma.", h.api.lastTo(bob.ID))
	assert.True(t, h.session(t, bob.ID).AwaitingCustomUpdate)

	h.say(t, bob, "321, fix bug")
	assert.Equal(t, "Custom update has been added successfully.", h.api.lastTo(bob.ID))
	assert.True(t, h.session(t, bob.ID).Idle())

	d, err := h.queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.KindWebhook, d.Update.Kind)
	assert.Equal(t, &model.WebhookUpdate{UserID: 321, Task: "fix bug"}, d.Update.Webhook)
}

func TestWebhookUpdate_NotifiesAdminWithWholeList(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.api.members[42] = tgbotapi.User{ID: 42, FirstName: "Dana"}

	wu := func(task string) model.Update {
		return model.Update{ID: "w", Kind: model.KindWebhook, Webhook: &model.WebhookUpdate{UserID: 42, Task: task}}
	}
	require.NoError(t, h.bot.Handle(ctx, wu("first")))
	require.NoError(t, h.bot.Handle(ctx, wu("<b>second</b>")))

	want := `The user <a href="tg://user?id=42">Dana</a> has sent a new task. ` +
		"So far they have sent the following tasks: \n\n" +
		"• <code>first</code>\n• <code>&lt;b&gt;second&lt;/b&gt;</code>"
	assert.Equal(t, want, h.api.lastTo(adminID))
	assert.Contains(t, h.api.lastTo(42), "You have a new task")
	assert.Equal(t, []string{"first", "<b>second</b>"}, h.tasks(t, 42))
}

func TestWebhookUpdate_UnknownMemberFallsBackToID(t *testing.T) {
	h := newHarness(t)
	h.api.failSend[43] = errors.New("network down")

	err := h.bot.Handle(context.Background(), model.Update{
		Kind:    model.KindWebhook,
		Webhook: &model.WebhookUpdate{UserID: 43, Task: "x"},
	})
	require.NoError(t, err)
	assert.Contains(t, h.api.lastTo(adminID), `<a href="tg://user?id=43">43</a>`)
}

func TestCancelAndFallbacks(t *testing.T) {
	h := newHarness(t)

	h.say(t, bob, "/cancel")
	assert.Equal(t, "Nothing to cancel.", h.api.lastTo(bob.ID))

	h.say(t, bob, "/customupdate")
	h.say(t, bob, "/cancel")
	assert.Equal(t, "Cancelled.", h.api.lastTo(bob.ID))
	assert.True(t, h.session(t, bob.ID).Idle())

	h.say(t, bob, "hello there")
	assert.Contains(t, h.api.lastTo(bob.ID), "did not expect a message")

	h.say(t, bob, "/frobnicate")
	assert.Contains(t, h.api.lastTo(bob.ID), "Unknown command")
}

func TestHandle_IgnoresNonMessageUpdates(t *testing.T) {
	h := newHarness(t)
	err := h.bot.Handle(context.Background(), model.Update{
		Kind:     model.KindTelegram,
		Telegram: &tgbotapi.Update{UpdateID: 9, CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb"}},
	})
	require.NoError(t, err)
	assert.Empty(t, h.api.sent)
}

func TestHandle_RejectsMalformedEnvelopes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	assert.Error(t, h.bot.Handle(ctx, model.Update{Kind: model.KindTelegram}))
	assert.Error(t, h.bot.Handle(ctx, model.Update{Kind: model.KindWebhook}))
	assert.Error(t, h.bot.Handle(ctx, model.Update{Kind: "carrier-pigeon"}))
}

type failingStore struct {
	store.Store
}

func (failingStore) Session(ctx context.Context, userID int64) (model.Session, error) {
	return model.Session{}, errors.New("redis: connection refused")
}

func (failingStore) AddTask(ctx context.Context, userID int64, task string) ([]string, error) {
	return nil, errors.New("redis: connection refused")
}

func TestHandle_ReturnsStoreErrors(t *testing.T) {
	api := newFakeAPI()
	st := failingStore{Store: store.NewMemoryStore()}
	b := New(api, st, producer.New(queue.NewMemoryQueue(1)), Config{AdminChatID: adminID})

	assert.Error(t, b.Handle(context.Background(), textUpdate(bob, "hello")))
	assert.Error(t, b.Handle(context.Background(), model.Update{
		Kind:    model.KindWebhook,
		Webhook: &model.WebhookUpdate{UserID: 1, Task: "x"},
	}))
	assert.Empty(t, api.sent)
}
