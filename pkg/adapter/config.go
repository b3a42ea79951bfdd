// Copyright 2024-2026 Aiku AI

package adapter

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the bridge configuration. Values come from an optional YAML
// file overridden by SLACK_* environment variables; boolean env toggles
// follow the "1" convention.
type Config struct {
	// Token is the Slack access token. Required.
	Token string `yaml:"token"`
	// ExposeChannelName makes Message.To carry "#name" instead of the
	// channel ID for named channels.
	ExposeChannelName bool `yaml:"expose_channel_name"`
	// IgnoreBotMessages drops messages whose subtype is bot_message or
	// whose sender record has is_bot set.
	IgnoreBotMessages bool `yaml:"ignore_bot_messages"`
	// IgnoreGeneral drops all messages arriving on the general channel.
	IgnoreGeneral bool `yaml:"ignore_general"`
	// GeneralName overrides the general channel name. Defaults to "general".
	GeneralName string `yaml:"general_name"`
	// AutoReconnect makes Run obtain a fresh session URL and reconnect
	// after every disconnect instead of returning.
	AutoReconnect bool `yaml:"auto_reconnect"`
}

// LoadConfig reads the optional config file named by SLACK_CONFIG_FILE,
// then applies environment overrides.
func LoadConfig() (Config, error) {
	var cfg Config

	if path := os.Getenv("SLACK_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
	}

	if v := os.Getenv("SLACK_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v, ok := os.LookupEnv("SLACK_EXPOSE_CHANNEL_NAME"); ok {
		cfg.ExposeChannelName = v == "1"
	}
	if v, ok := os.LookupEnv("SLACK_IGNORE_BOT_MESSAGE"); ok {
		cfg.IgnoreBotMessages = v == "1"
	}
	if v, ok := os.LookupEnv("SLACK_IGNORE_GENERAL"); ok {
		cfg.IgnoreGeneral = v == "1"
	}
	if v := os.Getenv("SLACK_GENERAL_NAME"); v != "" {
		cfg.GeneralName = v
	}
	if v, ok := os.LookupEnv("SLACK_AUTO_RECONNECT"); ok {
		cfg.AutoReconnect = v == "1"
	}

	if cfg.GeneralName == "" {
		cfg.GeneralName = "general"
	}
	return cfg, cfg.Validate()
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("config: SLACK_TOKEN is required")
	}
	return nil
}
