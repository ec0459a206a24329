package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/core"
)

func processCmd() *cobra.Command {
	var (
		mailbox     string
		from        string
		to          string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the pipeline once",
		Long: `Run the pipeline once. Without flags only messages received since the last
successful run are considered. --mailbox takes precedence over --from/--to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromTime, err := parseTime(from, false)
			if err != nil {
				return err
			}
			toTime, err := parseTime(to, true)
			if err != nil {
				return err
			}
			opts := core.Options{
				From:        fromTime,
				To:          toTime,
				Mailbox:     mailbox,
				Concurrency: concurrency,
				Debug:       debug,
			}
			return runProcess(opts)
		},
	}

	cmd.Flags().StringVar(&mailbox, "mailbox", "", "Process this mailbox instead of the configured one")
	cmd.Flags().StringVar(&from, "from", "", "Start of the date range (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "End of the date range (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent classification calls (default from analysis.concurrency)")
	return cmd
}

func runProcess(opts core.Options) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return container.Invoke(func(
		logger *zap.Logger,
		pipeline *core.Pipeline,
		source core.MailSource,
		store core.Store,
		classifier core.Classifier,
	) error {
		defer logger.Sync()
		defer closeAll(logger, classifier, source, store)

		summary, err := pipeline.Process(ctx, opts)
		if err != nil {
			return err
		}
		if summary.Skipped {
			fmt.Println("Another run is in progress, nothing done.")
			return nil
		}

		fmt.Printf("Run %s\n", summary.RunID)
		fmt.Printf("  Processed:       %d\n", summary.Processed)
		fmt.Printf("  Claims detected: %d\n", summary.ClaimsDetected)
		fmt.Printf("  Excluded:        %d\n", summary.Excluded)
		return nil
	})
}
