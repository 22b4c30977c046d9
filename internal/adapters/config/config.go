package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration, read once at process start
// and passed by reference into every component that needs it
type Config struct {
	CoinGecko CoinGeckoConfig
	Reddit    RedditConfig
	Pipeline  PipelineConfig
	Models    ModelsConfig
	Logging   LoggingConfig
}

// CoinGeckoConfig represents price API parameters
type CoinGeckoConfig struct {
	APIKey            string `envconfig:"COINGECKO_API_KEY" required:"true"`
	BaseURL           string `envconfig:"COINGECKO_BASE_URL" default:"https://api.coingecko.com/api/v3"`
	Currency          string `envconfig:"COINGECKO_CURRENCY" default:"usd"`
	RequestsPerMinute int    `envconfig:"COINGECKO_REQUESTS_PER_MINUTE" default:"25"`
}

// RedditConfig represents forum API credentials and listing budget
type RedditConfig struct {
	ClientID     string `envconfig:"REDDIT_CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"REDDIT_CLIENT_SECRET" required:"true"`
	UserAgent    string `envconfig:"REDDIT_USER_AGENT" default:"coinpulse/1.0"`
	Username     string `envconfig:"REDDIT_USERNAME" required:"true"`
	Password     string `envconfig:"REDDIT_PASSWORD" required:"true"`

	// ListingLimit bounds recall to the most recent N posts of the
	// newest-first listing regardless of window width
	ListingLimit int `envconfig:"REDDIT_LISTING_LIMIT" default:"1000"`
	PageSize     int `envconfig:"REDDIT_PAGE_SIZE" default:"100"`
}

// PipelineConfig represents analysis pipeline parameters
type PipelineConfig struct {
	OutputFile string `envconfig:"PIPELINE_OUTPUT_FILE" default:"exported_data.csv"`

	// DocumentSource selects the text fed to the topic engine: "selftext"
	// matches the original pipeline variant, "comments" the newer one
	DocumentSource string `envconfig:"PIPELINE_DOCUMENT_SOURCE" default:"selftext"`

	BatchSize int `envconfig:"PIPELINE_BATCH_SIZE" default:"16"`
}

// ModelsConfig represents pretrained model locations
type ModelsConfig struct {
	SentimentModelPath     string `envconfig:"SENTIMENT_MODEL_PATH" default:"models/sentiment/model.onnx"`
	SentimentTokenizerPath string `envconfig:"SENTIMENT_TOKENIZER_PATH" default:"models/sentiment/tokenizer.json"`
	EmbeddingModelPath     string `envconfig:"EMBEDDING_MODEL_PATH" default:"models/embedding/model.onnx"`
	EmbeddingTokenizerPath string `envconfig:"EMBEDDING_TOKENIZER_PATH" default:"models/embedding/tokenizer.json"`
	EmbeddingDim           int    `envconfig:"EMBEDDING_DIM" default:"384"`
	MaxTokens              int    `envconfig:"MODEL_MAX_TOKENS" default:"512"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadCoinGecko reads only the price API configuration, for tools that never
// touch the forum API
func LoadCoinGecko() (*CoinGeckoConfig, error) {
	var cfg CoinGeckoConfig

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.RequestsPerMinute < 1 {
		return nil, fmt.Errorf("coingecko requests_per_minute must be at least 1")
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.CoinGecko.RequestsPerMinute < 1 {
		return fmt.Errorf("coingecko requests_per_minute must be at least 1")
	}
	if c.Reddit.PageSize < 1 || c.Reddit.PageSize > 100 {
		return fmt.Errorf("reddit page_size must be between 1 and 100")
	}
	if c.Reddit.ListingLimit < c.Reddit.PageSize {
		return fmt.Errorf("reddit listing_limit must be at least one page")
	}
	if c.Pipeline.DocumentSource != "selftext" && c.Pipeline.DocumentSource != "comments" {
		return fmt.Errorf("pipeline document_source must be selftext or comments")
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("pipeline batch_size must be positive")
	}
	if c.Models.MaxTokens < 1 {
		return fmt.Errorf("model max_tokens must be positive")
	}
	return nil
}
