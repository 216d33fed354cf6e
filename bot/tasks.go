package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/mrinalgaur2005/taskbot/producer"
	"github.com/sirupsen/logrus"
)

func (b *Bot) listTasks(ctx context.Context, in incoming) error {
	tasks, err := b.store.Tasks(ctx, in.sender.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		b.sendHTML(in.chatID, "You have no open tasks.")
		return nil
	}
	b.sendHTML(in.chatID, "Your open tasks:\n\n"+numberedList(tasks))
	return nil
}

// completeTask matches the argument against the sender's tasks by exact text,
// then by 1-based position.
func (b *Bot) completeTask(ctx context.Context, in incoming) error {
	arg := strings.TrimSpace(in.msg.CommandArguments())
	tasks, err := b.store.Tasks(ctx, in.sender.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		b.sendHTML(in.chatID, "You have no open tasks.")
		return nil
	}
	if arg == "" {
		b.sendHTML(in.chatID, "Usage: /complete &lt;task&gt;\n\nYour open tasks:\n\n"+numberedList(tasks))
		return nil
	}

	task, ok := matchTask(tasks, arg)
	if ok {
		ok, err = b.store.RemoveTask(ctx, in.sender.ID, task)
		if err != nil {
			return err
		}
	}
	if !ok {
		b.sendHTML(in.chatID, "Task not found: "+codeHTML(arg)+"\n\nYour open tasks:\n\n"+numberedList(tasks))
		return nil
	}

	logging.Logger.WithFields(logrus.Fields{
		"event_id": "TASK_COMPLETED",
		"user_id":  in.sender.ID,
	}).Info("task completed")

	remaining := len(tasks) - 1
	b.sendHTML(in.chatID, "Task completed: "+codeHTML(task)+"\nYou have "+plural(remaining, "open task")+" left.")
	if !in.admin {
		b.sendHTML(b.cfg.AdminChatID, mentionHTML(in.sender)+" completed the task "+codeHTML(task)+".")
	}
	return nil
}

func matchTask(tasks []string, arg string) (string, bool) {
	for _, t := range tasks {
		if t == arg {
			return t, true
		}
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(tasks) {
		return tasks[n-1], true
	}
	return "", false
}

func (b *Bot) startCustomUpdate(ctx context.Context, in incoming) error {
	if err := b.store.SaveSession(ctx, in.sender.ID, model.Session{AwaitingCustomUpdate: true}); err != nil {
		return err
	}
	b.sendHTML(in.chatID, "Please send your user ID and task separated by a comma.")
	return nil
}

func (b *Bot) receiveCustomUpdate(ctx context.Context, in incoming) error {
	wu, err := producer.ParseSubmission(in.msg.Text)
	if err != nil {
		b.sendHTML(in.chatID, "Invalid input format. Please provide user ID and task separated by a comma.")
		return nil
	}
	if _, err := b.producer.SubmitTask(ctx, wu); err != nil {
		logging.Logger.WithFields(logrus.Fields{
			"event_id": "CUSTOM_UPDATE_ENQUEUE_FAILED",
			"user_id":  in.sender.ID,
		}).Errorf("could not queue custom update: %v", err)
		b.sendHTML(in.chatID, "Could not queue your update right now. Please try again later.")
		return nil
	}
	if err := b.store.ClearSession(ctx, in.sender.ID); err != nil {
		logging.Logger.WithField("user_id", in.sender.ID).Errorf("could not clear session: %v", err)
	}
	b.sendHTML(in.chatID, "Custom update has been added successfully.")
	return nil
}

// handleWebhookUpdate stores a submitted task and reports the user's whole
// list to the administrator.
func (b *Bot) handleWebhookUpdate(ctx context.Context, wu model.WebhookUpdate) error {
	tasks, err := b.store.AddTask(ctx, wu.UserID, wu.Task)
	if err != nil {
		return err
	}
	logging.Logger.WithFields(logrus.Fields{
		"event_id": "WEBHOOK_TASK_STORED",
		"user_id":  wu.UserID,
		"open":     len(tasks),
	}).Info("submitted task stored")

	user := b.lookupMember(wu.UserID)
	text := "The user " + mentionHTML(user) + " has sent a new task. " +
		"So far they have sent the following tasks: \n\n" + bulletList(tasks)
	b.sendHTML(b.cfg.AdminChatID, text)

	if wu.UserID != b.cfg.AdminChatID {
		b.sendHTML(wu.UserID, "You have a new task:\n\n• "+codeHTML(wu.Task)+"\n\nSend /complete followed by the task text when you are done.")
	}
	return nil
}
