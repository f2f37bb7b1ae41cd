package config

import (
	"fmt"
	"regexp"
)

var telegramTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Validate checks the configuration for values the daemon cannot start
// without.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openrouter", "anthropic":
	case "":
		return fmt.Errorf("llm provider is required")
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram bot token is required when telegram is enabled")
		}
		// Telegram bot tokens have format: <bot_id>:<token>
		if !telegramTokenPattern.MatchString(c.Telegram.BotToken) {
			return fmt.Errorf("invalid telegram bot token format")
		}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port: %d", c.API.Port)
	}

	return nil
}
