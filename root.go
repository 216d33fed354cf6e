package main

import (
	"os"

	"github.com/mrinalgaur2005/taskbot/config"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "taskbot",
		Short:        "Telegram task assignment bot",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitViper(v, cfgFile); err != nil {
				return err
			}
			cfg := config.FromViper(v)
			return logging.Init(logging.Options{
				Level:      cfg.Logging.Level,
				Format:     cfg.Logging.Format,
				File:       cfg.Logging.File,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAgeDays: cfg.Logging.MaxAgeDays,
			})
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (optional).")

	cmd.AddCommand(newServeCmd(v))
	cmd.AddCommand(newWebhookCmd(v))
	return cmd
}

// loadConfig reads and validates the configuration after PersistentPreRunE has run.
func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg := config.FromViper(v)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
