package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/logging"
)

// CheckFlags contains all command line flags of the single message checker
type CheckFlags struct {
	// LLM provider flags
	Provider    string
	ModelName   string
	MaxTokens   int
	Temperature float64
	MaxBodySize int
	Timeout     string

	// Provider specific flags
	APIKey        string
	BedrockRegion string
	LocalBaseURL  string

	// Exclusion rules file
	ExclusionsPath string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
	ConfigFile string
}

// ParseCheckFlags parses command line flags into a CheckFlags struct
func ParseCheckFlags(fs *flag.FlagSet, args []string) (*CheckFlags, error) {
	flags := &CheckFlags{}

	fs.StringVar(&flags.Provider, "provider", "openai", "LLM provider (openai, gemini, bedrock, anthropic, local)")
	fs.StringVar(&flags.ModelName, "model", "", "Model name or Bedrock model id (provider default if empty)")
	fs.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	fs.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for LLM generation")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum message body size sent to the LLM")
	fs.StringVar(&flags.Timeout, "timeout", "60s", "Timeout of the completion call")

	fs.StringVar(&flags.APIKey, "api-key", "", "API key of the hosted provider")
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.LocalBaseURL, "local-url", "http://127.0.0.1:8080", "Base URL of the self-hosted inference server")

	fs.StringVar(&flags.ExclusionsPath, "exclusions", "", "Exclusion rules file (YAML or JSON)")

	fs.StringVar(&flags.InputFile, "file", "", "Input message file (use stdin if not specified)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.BoolVar(&flags.JSONOutput, "json", false, "Print the result as JSON")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// BuildCheckContainer creates a container holding only what is needed to
// classify a single message: no store, no mail source, no metrics
func BuildCheckContainer(flags *CheckFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CheckFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CheckFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CheckFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}
		return ConfigFromCheckFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	return container, nil
}

// ConfigFromCheckFlags creates a configuration from command line flags
func ConfigFromCheckFlags(flags *CheckFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", flags.Provider)
	v.Set("llm.timeout", flags.Timeout)
	v.Set("analysis.exclusions_path", flags.ExclusionsPath)

	section := flags.Provider
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		if flags.ModelName != "" {
			v.Set("bedrock.model_id", flags.ModelName)
		}
	case "local":
		v.Set("local.base_url", flags.LocalBaseURL)
	}
	if flags.APIKey != "" {
		v.Set(section+".api_key", flags.APIKey)
	}
	if flags.ModelName != "" && flags.Provider != "bedrock" {
		v.Set(section+".model_name", flags.ModelName)
	}
	v.Set(section+".max_tokens", flags.MaxTokens)
	v.Set(section+".temperature", flags.Temperature)
	v.Set(section+".max_body_size", flags.MaxBodySize)

	return config.NewFromViper(v)
}
