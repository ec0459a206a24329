package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/imap"
	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
	"github.com/mikey/llm-claim-detector/internal/di"
	"github.com/mikey/llm-claim-detector/internal/utils"
)

func main() {
	flags, err := di.ParseCheckFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Printf("Failed to parse flags: %v\n", err)
		os.Exit(2)
	}

	container, err := di.BuildCheckContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// checkedMessage is the part of a message the classifier needs
type checkedMessage struct {
	From    string
	To      string
	Subject string
	Body    string
}

func run(
	flags *di.CheckFlags,
	cfg *config.Config,
	logger *zap.Logger,
	classifier core.Classifier,
	exclusions core.ExclusionFilter,
) error {
	defer logger.Sync()
	defer func() {
		if closer, ok := classifier.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close classifier", zap.Error(err))
			}
		}
	}()

	var input io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
		logger.Info("Reading message from file", zap.String("file", flags.InputFile))
	} else {
		input = os.Stdin
		logger.Info("Reading message from stdin")
	}

	msg, err := readMessage(input)
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	var result core.ClassificationResult
	if exclusions.ShouldExclude(msg.From, msg.Subject) {
		result = core.ExcludedResult()
	} else {
		if starter, ok := classifier.(interface{ Start(context.Context) error }); ok {
			if err := starter.Start(ctx); err != nil {
				return fmt.Errorf("self-hosted backend failed to start: %w", err)
			}
		}
		result, err = classifier.Classify(ctx, msg.Body, msg.Subject, msg.From)
		if err != nil {
			return fmt.Errorf("failed to classify message: %w", err)
		}
	}
	duration := time.Since(start)

	if flags.JSONOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", msg.From)
	fmt.Printf("To: %s\n", msg.To)
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Body length: %d bytes\n", len(msg.Body))

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("llm.provider"))
	fmt.Printf("Is claim: %t\n", result.IsClaim)
	fmt.Printf("Confidence: %d\n", result.Confidence)
	fmt.Printf("Category: %s\n", result.Category)
	fmt.Printf("Severity: %s\n", result.Severity)
	fmt.Printf("Reason: %s\n", result.Reason)
	if len(result.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", strings.Join(result.Keywords, ", "))
	}
	if result.Summary != "" {
		fmt.Printf("Summary: %s\n", result.Summary)
	}
	if result.ParseError != "" {
		fmt.Printf("Parse error: %s\n", result.ParseError)
	}
	fmt.Printf("Processing time: %v\n", duration)
	return nil
}

// readMessage parses an RFC 5322 message and extracts its readable text
func readMessage(r io.Reader) (*checkedMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	mr, err := mail.CreateReader(bytes.NewReader(data))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	msg := &checkedMessage{}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = strings.ToLower(from[0].Address)
	}
	if to, err := mr.Header.AddressList("To"); err == nil {
		addrs := make([]string, 0, len(to))
		for _, a := range to {
			addrs = append(addrs, a.Address)
		}
		msg.To = strings.Join(addrs, ", ")
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	}

	body, err := imap.ParseBody(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	msg.Body = utils.ExtractText(body.Text, body.HTML)
	return msg, nil
}
