package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/mrinalgaur2005/taskbot/store"
)

var usernamePattern = regexp.MustCompile(`^@?[A-Za-z][A-Za-z0-9_]{4,31}$`)

// resolveUser turns a numeric id or a @handle into a user. Handles are looked
// up in the sender directory first and then through getChat.
func (b *Bot) resolveUser(ctx context.Context, text string) (model.User, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.User{}, errors.New("empty input")
	}
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		if id == 0 {
			return model.User{}, errors.New("user id 0 is not valid")
		}
		return model.User{ID: id}, nil
	}
	if !usernamePattern.MatchString(text) {
		return model.User{}, fmt.Errorf("%q is neither a user id nor a username", text)
	}

	u, err := b.store.LookupUsername(ctx, text)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, err
	}

	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: "@" + store.NormalizeUsername(text)},
	})
	if err != nil {
		return model.User{}, fmt.Errorf("getChat %s: %w", text, err)
	}
	if chat.Type != "private" {
		return model.User{}, fmt.Errorf("%s is a %s, not a user", text, chat.Type)
	}
	return model.User{ID: chat.ID, Username: chat.UserName, FirstName: chat.FirstName, LastName: chat.LastName}, nil
}

// lookupMember fetches display data for a mention. It falls back to a bare id.
func (b *Bot) lookupMember(userID int64) model.User {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: userID, UserID: userID},
	})
	if err != nil || member.User == nil {
		logging.Logger.WithField("user_id", userID).Debugf("getChatMember failed, using bare id: %v", err)
		return model.User{ID: userID}
	}
	return model.User{
		ID:        member.User.ID,
		Username:  member.User.UserName,
		FirstName: member.User.FirstName,
		LastName:  member.User.LastName,
	}
}
