package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "TASKBOT"

type Config struct {
	Bot     BotConfig
	Server  ServerConfig
	Store   StoreConfig
	Queue   QueueConfig
	Redis   RedisConfig
	Mongo   MongoConfig
	Logging LoggingConfig
}

type BotConfig struct {
	Token         string
	AdminChatID   int64
	WebhookURL    string
	WebhookSecret string
	APIEndpoint   string
	Debug         bool
}

type ServerConfig struct {
	Addr            string
	CORSOrigins     []string
	JWTSecret       string
	ShutdownTimeout time.Duration
}

type StoreConfig struct {
	Driver string
}

type QueueConfig struct {
	Driver     string
	Size       int
	Stream     string
	Group      string
	Consumer   string
	MaxRetries int
	Workers    int
	Block      time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type LoggingConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("bot.api_endpoint", "https://api.telegram.org/bot%s/%s")
	v.SetDefault("bot.debug", false)

	v.SetDefault("server.addr", "127.0.0.1:5000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", "memory")

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.size", 100)
	v.SetDefault("queue.stream", "taskbot:updates")
	v.SetDefault("queue.group", "taskbot")
	v.SetDefault("queue.consumer", "consumer-1")
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.workers", 1)
	v.SetDefault("queue.block", 5*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "taskbot")
	v.SetDefault("mongo.collection", "users")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// InitViper wires environment variables, an optional .env file and an optional config file into v.
func InitViper(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cfgFile = strings.TrimSpace(cfgFile)
	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

func FromViper(v *viper.Viper) Config {
	return Config{
		Bot: BotConfig{
			Token:         strings.TrimSpace(v.GetString("bot.token")),
			AdminChatID:   v.GetInt64("bot.admin_chat_id"),
			WebhookURL:    strings.TrimRight(strings.TrimSpace(v.GetString("bot.webhook_url")), "/"),
			WebhookSecret: v.GetString("bot.webhook_secret"),
			APIEndpoint:   v.GetString("bot.api_endpoint"),
			Debug:         v.GetBool("bot.debug"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			CORSOrigins:     splitList(v.GetStringSlice("server.cors_origins")),
			JWTSecret:       v.GetString("server.jwt_secret"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("store.driver")),
		},
		Queue: QueueConfig{
			Driver:     strings.ToLower(v.GetString("queue.driver")),
			Size:       v.GetInt("queue.size"),
			Stream:     v.GetString("queue.stream"),
			Group:      v.GetString("queue.group"),
			Consumer:   v.GetString("queue.consumer"),
			MaxRetries: v.GetInt("queue.max_retries"),
			Workers:    v.GetInt("queue.workers"),
			Block:      v.GetDuration("queue.block"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Mongo: MongoConfig{
			URI:        v.GetString("mongo.uri"),
			Database:   v.GetString("mongo.database"),
			Collection: v.GetString("mongo.collection"),
		},
		Logging: LoggingConfig{
			Level:      v.GetString("logging.level"),
			Format:     v.GetString("logging.format"),
			File:       v.GetString("logging.file"),
			MaxSizeMB:  v.GetInt("logging.max_size_mb"),
			MaxBackups: v.GetInt("logging.max_backups"),
			MaxAgeDays: v.GetInt("logging.max_age_days"),
		},
	}
}

// splitList accepts both YAML lists and comma separated environment values.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the settings every command needs. The webhook URL is only
// required where a command registers or advertises it.
func (c Config) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("bot.token is required"))
	}
	if c.Bot.AdminChatID == 0 {
		errs = append(errs, errors.New("bot.admin_chat_id is required"))
	}
	switch c.Store.Driver {
	case "memory", "redis", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.Queue.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown queue.driver %q", c.Queue.Driver))
	}
	if c.Queue.Workers < 1 {
		errs = append(errs, errors.New("queue.workers must be at least 1"))
	}
	if c.Queue.MaxRetries < 0 {
		errs = append(errs, errors.New("queue.max_retries must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) RequireWebhookURL() error {
	if c.Bot.WebhookURL == "" {
		return errors.New("bot.webhook_url is required")
	}
	if !strings.HasPrefix(c.Bot.WebhookURL, "https://") {
		return fmt.Errorf("bot.webhook_url must be https, got %q", c.Bot.WebhookURL)
	}
	return nil
}
