package bot

import (
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// API is the subset of *tgbotapi.BotAPI the handlers use.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// NewClient connects to the Bot API. endpoint is a format string taking the
// token and the method name, like tgbotapi.APIEndpoint.
func NewClient(token, endpoint string, debug bool) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if err := tgbotapi.SetLogger(logging.Logger); err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return api, nil
}

type breakerAPI struct {
	API
	cb *gobreaker.CircuitBreaker
}

// WithBreaker guards outbound calls with a circuit breaker. Bot API errors
// (bad chat id, user blocked the bot, ...) do not count as failures; transport
// errors and 5xx responses do.
func WithBreaker(api API, name string) API {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *tgbotapi.Error
			return errors.As(err, &apiErr) && apiErr.Code > 0 && apiErr.Code < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.WithFields(logrus.Fields{
				"event_id": "CIRCUIT_BREAKER_STATE_CHANGE",
				"breaker":  name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("telegram circuit breaker changed state")
		},
	})
	return &breakerAPI{API: api, cb: cb}
}

func (b *breakerAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		msg, err := b.API.Send(c)
		return msg, err
	})
	msg, _ := res.(tgbotapi.Message)
	return msg, err
}

func (b *breakerAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := b.API.Request(c)
		return resp, err
	})
	resp, _ := res.(*tgbotapi.APIResponse)
	return resp, err
}
