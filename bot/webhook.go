package bot

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookPath is where the HTTP server accepts Telegram updates.
const WebhookPath = "/telegram"

// AllUpdateTypes asks Telegram for every update type.
var AllUpdateTypes = []string{
	"message", "edited_message", "channel_post", "edited_channel_post",
	"inline_query", "chosen_inline_result", "callback_query",
	"shipping_query", "pre_checkout_query", "poll", "poll_answer",
	"my_chat_member", "chat_member", "chat_join_request",
}

type WebhookAPI interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

// SetWebhook registers publicURL+WebhookPath. secret, when set, is echoed by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func SetWebhook(api WebhookAPI, publicURL, secret string) error {
	params := tgbotapi.Params{"url": publicURL + WebhookPath}
	params.AddNonEmpty("secret_token", secret)
	if err := params.AddInterface("allowed_updates", AllUpdateTypes); err != nil {
		return err
	}
	resp, err := api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("setWebhook: %s", resp.Description)
	}
	return nil
}

func DeleteWebhook(api WebhookAPI, dropPending bool) error {
	params := tgbotapi.Params{}
	params.AddBool("drop_pending_updates", dropPending)
	resp, err := api.MakeRequest("deleteWebhook", params)
	if err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	if !resp.Ok {
		return errors.New("deleteWebhook: " + resp.Description)
	}
	return nil
}
