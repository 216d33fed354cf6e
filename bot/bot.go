package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/mrinalgaur2005/taskbot/producer"
	"github.com/mrinalgaur2005/taskbot/store"
	"github.com/sirupsen/logrus"
)

type Config struct {
	AdminChatID int64
	// PublicURL is the externally reachable base URL advertised by /start.
	PublicURL string
}

type Bot struct {
	api      API
	store    store.Store
	producer *producer.Producer
	cfg      Config
}

func New(api API, st store.Store, p *producer.Producer, cfg Config) *Bot {
	return &Bot{api: api, store: st, producer: p, cfg: cfg}
}

// Handle processes one queued update. Only store failures are returned;
// Telegram delivery problems are logged and swallowed.
func (b *Bot) Handle(ctx context.Context, u model.Update) error {
	switch u.Kind {
	case model.KindTelegram:
		if u.Telegram == nil {
			return fmt.Errorf("update %s: missing telegram payload", u.ID)
		}
		return b.handleTelegram(ctx, *u.Telegram)
	case model.KindWebhook:
		if u.Webhook == nil {
			return fmt.Errorf("update %s: missing webhook payload", u.ID)
		}
		return b.handleWebhookUpdate(ctx, *u.Webhook)
	default:
		return fmt.Errorf("update %s: unknown kind %q", u.ID, u.Kind)
	}
}

func (b *Bot) handleTelegram(ctx context.Context, update tgbotapi.Update) error {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		logging.Logger.WithField("telegram_update_id", update.UpdateID).Debug("ignoring non-message update")
		return nil
	}

	sender := model.User{
		ID:        m.From.ID,
		Username:  m.From.UserName,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
	}
	if err := b.store.RememberUser(ctx, sender); err != nil {
		logging.Logger.WithFields(logrus.Fields{
			"event_id": "DIRECTORY_UPDATE_FAILED",
			"user_id":  sender.ID,
		}).Warnf("could not record sender: %v", err)
	}

	in := incoming{msg: m, sender: sender, chatID: m.Chat.ID, admin: sender.ID == b.cfg.AdminChatID}
	if m.IsCommand() {
		return b.dispatchCommand(ctx, in)
	}
	return b.dispatchText(ctx, in)
}

type incoming struct {
	msg    *tgbotapi.Message
	sender model.User
	chatID int64
	admin  bool
}

func (b *Bot) dispatchCommand(ctx context.Context, in incoming) error {
	logging.Logger.WithFields(logrus.Fields{
		"event_id": "COMMAND_RECEIVED",
		"user_id":  in.sender.ID,
		"command":  in.msg.Command(),
	}).Debug("command received")

	switch in.msg.Command() {
	case "start", "help":
		b.sendHTML(in.chatID, startText(b.cfg.PublicURL))
		return nil
	case "assigntask":
		return b.startAssign(ctx, in)
	case "complete", "done":
		return b.completeTask(ctx, in)
	case "mytasks", "tasks":
		return b.listTasks(ctx, in)
	case "customupdate":
		return b.startCustomUpdate(ctx, in)
	case "cancel":
		return b.cancel(ctx, in)
	default:
		b.sendHTML(in.chatID, "Unknown command. Send /help for the list of commands.")
		return nil
	}
}

func (b *Bot) dispatchText(ctx context.Context, in incoming) error {
	sess, err := b.store.Session(ctx, in.sender.ID)
	if err != nil {
		return err
	}
	switch {
	case in.admin && sess.WaitingForUserID:
		return b.receiveAssignee(ctx, in, in.msg.Text)
	case in.admin && sess.AssigningTaskTo != 0:
		return b.receiveTaskText(ctx, in, sess.AssigningTaskTo)
	case sess.AwaitingCustomUpdate:
		return b.receiveCustomUpdate(ctx, in)
	default:
		b.sendHTML(in.chatID, "I did not expect a message right now. Send /help for the list of commands.")
		return nil
	}
}

// sendHTML delivers an HTML message. Failures are logged and reported to the caller.
func (b *Bot) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		logging.Logger.WithFields(logrus.Fields{
			"event_id": "SEND_FAILED",
			"chat_id":  chatID,
		}).Warnf("could not send message: %v", err)
		return err
	}
	return nil
}
