package config

import (
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
	Timeout  time.Duration
}

// ProviderConfig is shared by the API-key based hosted providers
type ProviderConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// LocalConfig represents the self-hosted inference server
type LocalConfig struct {
	BaseURL        string
	ModelName      string
	MaxTokens      int
	Temperature    float32
	MaxBodySize    int
	HealthPath     string
	HealthRetries  int
	HealthInterval time.Duration
	StartCommand   string
}

// AnalysisConfig holds pipeline tunables
type AnalysisConfig struct {
	Concurrency    int
	Interval       time.Duration
	Lookback       time.Duration
	ExclusionsPath string
}

// MailConfig represents the IMAP mailbox
type MailConfig struct {
	Server   string
	Port     int
	TLS      bool
	Username string
	Password string
	Mailbox  string
	PageSize int
	Timeout  time.Duration
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Type        string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() (LLMConfig, error) {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		return LLMConfig{}, err
	}
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		Timeout:  timeout,
	}, nil
}

// GetProvider returns the configuration section of a hosted provider
// ("openai", "gemini" or "anthropic")
func (c *Config) GetProvider(name string) ProviderConfig {
	return ProviderConfig{
		APIKey:      c.GetString(name + ".api_key"),
		ModelName:   c.GetString(name + ".model_name"),
		MaxTokens:   c.GetInt(name + ".max_tokens"),
		Temperature: float32(c.GetFloat64(name + ".temperature")),
		MaxBodySize: c.GetInt(name + ".max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetLocal returns the self-hosted backend configuration
func (c *Config) GetLocal() (LocalConfig, error) {
	interval, err := c.GetDuration("local.health_interval")
	if err != nil {
		return LocalConfig{}, err
	}
	return LocalConfig{
		BaseURL:        c.GetString("local.base_url"),
		ModelName:      c.GetString("local.model_name"),
		MaxTokens:      c.GetInt("local.max_tokens"),
		Temperature:    float32(c.GetFloat64("local.temperature")),
		MaxBodySize:    c.GetInt("local.max_body_size"),
		HealthPath:     c.GetString("local.health_path"),
		HealthRetries:  c.GetInt("local.health_retries"),
		HealthInterval: interval,
		StartCommand:   c.GetString("local.start_command"),
	}, nil
}

// GetAnalysis returns the pipeline configuration
func (c *Config) GetAnalysis() (AnalysisConfig, error) {
	interval, err := c.GetDuration("analysis.interval")
	if err != nil {
		return AnalysisConfig{}, err
	}
	lookback, err := c.GetDuration("analysis.lookback")
	if err != nil {
		return AnalysisConfig{}, err
	}
	return AnalysisConfig{
		Concurrency:    c.GetInt("analysis.concurrency"),
		Interval:       interval,
		Lookback:       lookback,
		ExclusionsPath: c.GetString("analysis.exclusions_path"),
	}, nil
}

// GetMail returns the mailbox configuration
func (c *Config) GetMail() (MailConfig, error) {
	timeout, err := c.GetDuration("mail.timeout")
	if err != nil {
		return MailConfig{}, err
	}
	return MailConfig{
		Server:   c.GetString("mail.server"),
		Port:     c.GetInt("mail.port"),
		TLS:      c.GetBool("mail.tls"),
		Username: c.GetString("mail.username"),
		Password: c.GetString("mail.password"),
		Mailbox:  c.GetString("mail.mailbox"),
		PageSize: c.GetInt("mail.page_size"),
		Timeout:  timeout,
	}, nil
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        c.GetString("store.type"),
		SQLitePath:  c.GetString("store.sqlite_path"),
		MySQLDSN:    c.GetString("store.mysql_dsn"),
		PostgresDSN: c.GetString("store.postgres_dsn"),
	}
}
