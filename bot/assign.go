package bot

import (
	"context"
	"strings"

	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/sirupsen/logrus"
)

func (b *Bot) startAssign(ctx context.Context, in incoming) error {
	if !in.admin {
		b.sendHTML(in.chatID, "Only the administrator can assign tasks.")
		return nil
	}
	if err := b.store.SaveSession(ctx, in.sender.ID, model.Session{WaitingForUserID: true}); err != nil {
		return err
	}
	if arg := strings.TrimSpace(in.msg.CommandArguments()); arg != "" {
		return b.receiveAssignee(ctx, in, arg)
	}
	b.sendHTML(in.chatID, "Please send the user ID or @username of the person you want to assign a task to.")
	return nil
}

func (b *Bot) receiveAssignee(ctx context.Context, in incoming, text string) error {
	target, err := b.resolveUser(ctx, text)
	if err != nil {
		logging.Logger.WithFields(logrus.Fields{
			"event_id": "USER_RESOLVE_FAILED",
			"input":    strings.TrimSpace(text),
		}).Warnf("could not resolve assignee: %v", err)
		b.sendHTML(in.chatID, "I could not find that user. Send a numeric user ID, or the @username of someone who has talked to me. Send /cancel to stop.")
		return nil
	}
	if err := b.store.SaveSession(ctx, in.sender.ID, model.Session{AssigningTaskTo: target.ID}); err != nil {
		return err
	}
	b.sendHTML(in.chatID, "Now send me the task for "+mentionHTML(target)+".")
	return nil
}

func (b *Bot) receiveTaskText(ctx context.Context, in incoming, targetID int64) error {
	task := strings.TrimSpace(in.msg.Text)
	if task == "" {
		b.sendHTML(in.chatID, "The task cannot be empty. Please send the task text.")
		return nil
	}

	tasks, err := b.store.AddTask(ctx, targetID, task)
	if err != nil {
		return err
	}
	if err := b.store.ClearSession(ctx, in.sender.ID); err != nil {
		logging.Logger.WithFields(logrus.Fields{
			"event_id": "SESSION_CLEAR_FAILED",
			"user_id":  in.sender.ID,
		}).Errorf("could not clear session after assignment: %v", err)
	}
	logging.Logger.WithFields(logrus.Fields{
		"event_id": "TASK_ASSIGNED",
		"user_id":  targetID,
		"open":     len(tasks),
	}).Info("task assigned")

	target := b.lookupMember(targetID)
	notice := "You have a new task:\n\n• " + codeHTML(task) + "\n\nSend /complete followed by the task text (or its number from /mytasks) when you are done."
	if err := b.sendHTML(targetID, notice); err != nil {
		b.sendHTML(in.chatID, "The task was saved for "+mentionHTML(target)+", but I could not notify them. They may need to send me /start first.")
		return nil
	}
	b.sendHTML(in.chatID, "Task assigned to "+mentionHTML(target)+". They now have "+plural(len(tasks), "open task")+".")
	return nil
}

func (b *Bot) cancel(ctx context.Context, in incoming) error {
	sess, err := b.store.Session(ctx, in.sender.ID)
	if err != nil {
		return err
	}
	if sess.Idle() {
		b.sendHTML(in.chatID, "Nothing to cancel.")
		return nil
	}
	if err := b.store.ClearSession(ctx, in.sender.ID); err != nil {
		return err
	}
	b.sendHTML(in.chatID, "Cancelled.")
	return nil
}
