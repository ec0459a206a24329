package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/di"
)

var (
	cfgFile string
	backend string
	debug   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "claim-detector",
		Short: "Detect customer claims in a support mailbox",
		Long: `claim-detector pulls messages from an IMAP mailbox, skips the ones it has
already seen or that match the exclusion rules, asks a language model whether
each remaining message is a customer claim and stores the verdicts.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "LLM provider override (openai, gemini, bedrock, anthropic, local)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable verbose diagnostic logging")

	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(daemonCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildContainer loads configuration, applies global flag overrides and
// builds the dependency container
func buildContainer() (*dig.Container, error) {
	cfg, err := config.New(cfgFile)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Set("llm.provider", backend)
	}
	if debug {
		cfg.Set("logging.level", "debug")
	}

	container, err := di.BuildContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container, nil
}

// closeAll releases every component holding a connection or process
func closeAll(logger *zap.Logger, components ...interface{}) {
	var err error
	for _, c := range components {
		if closer, ok := c.(interface{ Close() error }); ok {
			err = multierr.Append(err, closer.Close())
		}
	}
	if err != nil {
		logger.Error("Failed to release resources", zap.Error(err))
	}
}

// parseTime accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper
// bound covers the whole day.
func parseTime(value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", value)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
