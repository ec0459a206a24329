package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/core"
)

func listCmd() *cobra.Command {
	var (
		claimsOnly    bool
		category      string
		since         string
		minConfidence int
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show stored classifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" && !core.IsKnownCategory(category) && category != core.CategoryExcluded {
				return fmt.Errorf("unknown category %q (known: %s, %s)",
					category, strings.Join(core.Categories, ", "), core.CategoryExcluded)
			}
			sinceTime, err := parseTime(since, false)
			if err != nil {
				return err
			}
			return runList(core.ClassificationFilter{
				ClaimsOnly:    claimsOnly,
				Category:      category,
				Since:         sinceTime,
				MinConfidence: minConfidence,
				Limit:         limit,
			})
		},
	}

	cmd.Flags().BoolVar(&claimsOnly, "claims-only", false, "Only show messages classified as claims")
	cmd.Flags().StringVar(&category, "category", "", "Only show this category")
	cmd.Flags().StringVar(&since, "since", "", "Only show results classified since (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().IntVar(&minConfidence, "min-confidence", 0, "Minimum confidence (0-100)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of rows")
	return cmd
}

func runList(filter core.ClassificationFilter) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}

	return container.Invoke(func(logger *zap.Logger, store core.Store) error {
		defer logger.Sync()
		defer closeAll(logger, store)

		rows, err := store.ListClassifications(context.Background(), filter)
		if err != nil {
			return err
		}
		return writeTable(os.Stdout, rows)
	})
}

func writeTable(out io.Writer, rows []core.ClassifiedMessage) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "No classifications found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLASSIFIED\tRECEIVED\tSENDER\tCLAIM\tCONF\tCATEGORY\tSEVERITY\tSUBJECT")
	for _, r := range rows {
		claim := "no"
		if r.Result.IsClaim {
			claim = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ClassifiedAt.Local().Format("2006-01-02 15:04"),
			r.ReceivedAt.Local().Format("2006-01-02 15:04"),
			r.Sender,
			claim,
			r.Result.Confidence,
			r.Result.Category,
			r.Result.Severity,
			shorten(r.Subject, 60),
		)
	}
	return w.Flush()
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
