// Package config loads and validates the Pachico configuration.
package config

// Config represents the main Pachico configuration
type Config struct {
	// LLM provider configuration
	LLM LLMConfig `json:"llm" mapstructure:"llm"`

	// USDA FoodData Central configuration
	USDA USDAConfig `json:"usda" mapstructure:"usda"`

	// Telegram bot configuration
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// HTTP API configuration
	API APIConfig `json:"api" mapstructure:"api"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // openrouter, anthropic
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
}

// USDAConfig holds FoodData Central settings.
type USDAConfig struct {
	APIKey string `json:"api_key" mapstructure:"api_key"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	BotToken string `json:"bot_token" mapstructure:"bot_token"`
}

// APIConfig holds the HTTP API server configuration
type APIConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openrouter",
			Model:     "openai/gpt-4o-mini",
			MaxTokens: 4096,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}
