package config

import (
	"log"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// Default channel: users with no session post here, and /leave_channel
	// always lands here. Seeds the registry when the channels file is empty.
	DefaultChannelID int64 `env:"DEFAULT_CHANNEL_ID,required"`
	AdminUserID      int64 `env:"ADMIN_USER"`

	// Storage
	ChannelsFilePath string `env:"CHANNELS_FILE_PATH" envDefault:"data/channels.json"`
	SessionsDBPath   string `env:"SESSIONS_DB_PATH" envDefault:"data/sessions"`

	// Formatting
	MessageParseMode string `env:"MESSAGE_PARSE_MODE" envDefault:"HTML"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
