package bot

import (
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sentMessage struct {
	ChatID    int64
	Text      string
	ParseMode string
}

type fakeAPI struct {
	mtx      sync.Mutex
	sent     []sentMessage
	failSend map[int64]error
	chats    map[string]tgbotapi.Chat
	members  map[int64]tgbotapi.User
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		failSend: map[int64]error{},
		chats:    map[string]tgbotapi.Chat{},
		members:  map[int64]tgbotapi.User{},
	}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if err := f.failSend[msg.ChatID]; err != nil {
		return tgbotapi.Message{}, err
	}
	f.sent = append(f.sent, sentMessage{ChatID: msg.ChatID, Text: msg.Text, ParseMode: msg.ParseMode})
	return tgbotapi.Message{MessageID: len(f.sent), Text: msg.Text}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	chat, ok := f.chats[config.SuperGroupUsername]
	if !ok {
		return tgbotapi.Chat{}, &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}
	}
	return chat, nil
}

func (f *fakeAPI) GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	u, ok := f.members[config.UserID]
	if !ok {
		return tgbotapi.ChatMember{}, &tgbotapi.Error{Code: 400, Message: "Bad Request: user not found"}
	}
	return tgbotapi.ChatMember{User: &u, Status: "member"}, nil
}

func (f *fakeAPI) messagesTo(chatID int64) []string {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastTo(chatID int64) string {
	msgs := f.messagesTo(chatID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}
