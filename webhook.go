package main

import (
	"fmt"

	"github.com/mrinalgaur2005/taskbot/bot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newWebhookCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook registration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Point Telegram at <bot.webhook_url>/telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := cfg.RequireWebhookURL(); err != nil {
				return err
			}
			tg, err := bot.NewClient(cfg.Bot.Token, cfg.Bot.APIEndpoint, cfg.Bot.Debug)
			if err != nil {
				return err
			}
			if err := bot.SetWebhook(tg, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "webhook set to %s%s\n", cfg.Bot.WebhookURL, bot.WebhookPath)
			return err
		},
	})

	var dropPending bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			tg, err := bot.NewClient(cfg.Bot.Token, cfg.Bot.APIEndpoint, cfg.Bot.Debug)
			if err != nil {
				return err
			}
			if err := bot.DeleteWebhook(tg, dropPending); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
			return err
		},
	}
	del.Flags().BoolVar(&dropPending, "drop-pending", false, "Drop updates Telegram has not delivered yet.")
	cmd.AddCommand(del)

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the current webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			tg, err := bot.NewClient(cfg.Bot.Token, cfg.Bot.APIEndpoint, cfg.Bot.Debug)
			if err != nil {
				return err
			}
			info, err := tg.GetWebhookInfo()
			if err != nil {
				return fmt.Errorf("getWebhookInfo: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url: %s\n", info.URL)
			fmt.Fprintf(out, "pending updates: %d\n", info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				fmt.Fprintf(out, "last error: %s\n", info.LastErrorMessage)
			}
			return nil
		},
	})
	return cmd
}
