package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/metrics"
	"github.com/mikey/llm-claim-detector/internal/utils"
)

// Options selects the batch and tunes one run.
// Mailbox wins over a date range, which wins over incremental retrieval.
type Options struct {
	From        time.Time
	To          time.Time
	Mailbox     string
	Concurrency int
	Debug       bool
}

// Summary is what a run reports back to its caller
type Summary struct {
	RunID          string
	Processed      int
	ClaimsDetected int
	Excluded       int
	Skipped        bool
}

// PipelineSettings holds the pipeline tunables taken from configuration
type PipelineSettings struct {
	// DefaultConcurrency applies when Options.Concurrency is not positive
	DefaultConcurrency int
	// Lookback bounds the first incremental run and mailbox runs without a range
	Lookback time.Duration
}

// Pipeline is the claim detection processing pipeline
type Pipeline struct {
	source     MailSource
	store      Store
	classifier Classifier
	exclusions ExclusionFilter
	dispatcher *Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Recorder
	settings   PipelineSettings
	running    atomic.Bool
	now        func() time.Time
}

// NewPipeline creates a new processing pipeline
func NewPipeline(
	source MailSource,
	store Store,
	classifier Classifier,
	exclusions ExclusionFilter,
	dispatcher *Dispatcher,
	logger *zap.Logger,
	recorder *metrics.Recorder,
	settings PipelineSettings,
) *Pipeline {
	return &Pipeline{
		source:     source,
		store:      store,
		classifier: classifier,
		exclusions: exclusions,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    recorder,
		settings:   settings,
		now:        time.Now,
	}
}

// Running reports whether a run is in progress
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Process runs the pipeline once. A call made while another run is in
// progress is skipped and returns a Summary with Skipped set and no error.
// Only fatal errors (backend startup, source selection) are returned; per
// message failures end up in the persisted run record.
func (p *Pipeline) Process(ctx context.Context, opts Options) (summary Summary, err error) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn("Processing run already in progress, skipping invocation")
		return Summary{Skipped: true}, nil
	}

	run := &ProcessingRun{
		ID:        uuid.NewString(),
		StartedAt: p.now(),
	}
	summary.RunID = run.ID
	logger := p.logger.With(zap.String("run_id", run.ID))
	trace := logger.Debug
	if opts.Debug {
		trace = logger.Info
	}

	var messageErrs error
	defer func() {
		p.finish(ctx, logger, run, summary, err, messageErrs)
	}()

	logger.Info("Processing run started",
		zap.String("mailbox", opts.Mailbox),
		zap.Int("concurrency", opts.Concurrency))

	if starter, ok := p.classifier.(interface{ Start(context.Context) error }); ok {
		if err = starter.Start(ctx); err != nil {
			err = fmt.Errorf("self-hosted backend failed to start: %w", err)
			return summary, err
		}
	}

	query, err := p.selectSource(ctx, opts)
	if err != nil {
		return summary, err
	}

	messages, err := p.source.ListMessages(ctx, query)
	if err != nil {
		err = fmt.Errorf("failed to list messages: %w", err)
		return summary, err
	}
	trace("Listed candidate messages", zap.Int("count", len(messages)))

	var candidates []Candidate
	for i := range messages {
		s := &messages[i]
		candidate, ingestErr := p.ingest(ctx, s, opts.Mailbox, &summary, trace)
		if ingestErr != nil {
			logger.Error("Failed to ingest message",
				zap.String("external_id", s.ExternalID),
				zap.Error(ingestErr))
			messageErrs = multierr.Append(messageErrs, fmt.Errorf("message %s: %w", s.ExternalID, ingestErr))
			continue
		}
		if candidate != nil {
			candidates = append(candidates, *candidate)
		}
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = p.settings.DefaultConcurrency
	}

	for _, a := range p.dispatcher.Dispatch(ctx, candidates, limit) {
		if a.Err != nil {
			messageErrs = multierr.Append(messageErrs, fmt.Errorf("message %s: classification: %w", a.Candidate.ExternalID, a.Err))
		}
		if _, saveErr := p.store.SaveClassification(ctx, a.Candidate.MessageID, a.Result); saveErr != nil {
			logger.Error("Failed to save classification",
				zap.String("external_id", a.Candidate.ExternalID),
				zap.Error(saveErr))
			messageErrs = multierr.Append(messageErrs, fmt.Errorf("message %s: save classification: %w", a.Candidate.ExternalID, saveErr))
			continue
		}
		if a.Result.IsClaim {
			summary.ClaimsDetected++
			p.metrics.ClaimDetected()
		}
		trace("Message classified",
			zap.String("external_id", a.Candidate.ExternalID),
			zap.Bool("is_claim", a.Result.IsClaim),
			zap.Int("confidence", a.Result.Confidence),
			zap.String("category", a.Result.Category))
	}

	return summary, nil
}

// ListClassifications exposes stored results to the report layer
func (p *Pipeline) ListClassifications(ctx context.Context, filter ClassificationFilter) ([]ClassifiedMessage, error) {
	return p.store.ListClassifications(ctx, filter)
}

// selectSource builds the mail query for this run
func (p *Pipeline) selectSource(ctx context.Context, opts Options) (MailQuery, error) {
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.From.After(opts.To) {
		return MailQuery{}, fmt.Errorf("invalid date range: %s is after %s",
			opts.From.Format(time.RFC3339), opts.To.Format(time.RFC3339))
	}
	hasRange := !opts.From.IsZero() || !opts.To.IsZero()

	switch {
	case opts.Mailbox != "":
		q := MailQuery{Mailbox: opts.Mailbox, From: opts.From, To: opts.To}
		if !hasRange {
			q.Since = p.now().Add(-p.settings.Lookback)
		}
		return q, nil
	case hasRange:
		return MailQuery{From: opts.From, To: opts.To}, nil
	default:
		last, err := p.store.LastSuccessfulRunCompletion(ctx)
		if err != nil {
			return MailQuery{}, fmt.Errorf("failed to read last successful run: %w", err)
		}
		if last == nil {
			return MailQuery{Since: p.now().Add(-p.settings.Lookback)}, nil
		}
		return MailQuery{Since: *last}, nil
	}
}

// ingest records one message and returns a candidate when it needs analysis
func (p *Pipeline) ingest(
	ctx context.Context,
	s *MessageSummary,
	mailbox string,
	summary *Summary,
	trace func(string, ...zap.Field),
) (*Candidate, error) {
	recorded, err := p.store.IsMessageRecorded(ctx, s.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if recorded {
		trace("Message already recorded, skipping", zap.String("external_id", s.ExternalID))
		return nil, nil
	}

	if s.Mailbox != "" {
		mailbox = s.Mailbox
	}
	detail, err := p.source.GetMessageDetail(ctx, s.ExternalID, mailbox)
	if err != nil {
		return nil, fmt.Errorf("fetch detail: %w", err)
	}

	msg := messageFromDetail(detail)
	id, err := p.store.SaveMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	summary.Processed++
	p.metrics.MessageProcessed()

	if p.exclusions.ShouldExclude(msg.SenderAddress, msg.Subject) {
		if _, err := p.store.SaveClassification(ctx, id, ExcludedResult()); err != nil {
			return nil, fmt.Errorf("save exclusion: %w", err)
		}
		summary.Excluded++
		p.metrics.MessageExcluded()
		trace("Message excluded",
			zap.String("external_id", s.ExternalID),
			zap.String("sender", msg.SenderAddress))
		return nil, nil
	}

	if msg.Body == "" {
		trace("Message has no text, not classified", zap.String("external_id", s.ExternalID))
		return nil, nil
	}

	return &Candidate{
		MessageID:  id,
		ExternalID: msg.ExternalID,
		Text:       msg.Body,
		Subject:    msg.Subject,
		Sender:     msg.SenderAddress,
	}, nil
}

// finish writes the run record exactly once and releases the guard
func (p *Pipeline) finish(ctx context.Context, logger *zap.Logger, run *ProcessingRun, summary Summary, fatal, messageErrs error) {
	defer p.running.Store(false)

	run.CompletedAt = p.now()
	run.Processed = summary.Processed
	run.ClaimsDetected = summary.ClaimsDetected
	run.Status = RunStatusSuccess

	if combined := multierr.Append(fatal, messageErrs); combined != nil {
		run.Status = RunStatusError
		run.Error = combined.Error()
	}

	// the record must land even when the caller's context is gone
	if err := p.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("Failed to record processing run", zap.Error(err))
	}
	p.metrics.RunFinished(run.Status)

	fields := []zap.Field{
		zap.Int("processed", run.Processed),
		zap.Int("claims_detected", run.ClaimsDetected),
		zap.Int("excluded", summary.Excluded),
		zap.Duration("duration", run.CompletedAt.Sub(run.StartedAt)),
	}
	switch {
	case fatal != nil:
		logger.Error("Processing run failed", append(fields, zap.Error(fatal))...)
	case messageErrs != nil:
		logger.Warn("Processing run completed with errors",
			append(fields, zap.Int("errors", len(multierr.Errors(messageErrs))))...)
	default:
		logger.Info("Processing run completed", fields...)
	}
}

func messageFromDetail(d *MessageDetail) *Message {
	return &Message{
		ExternalID:        d.ExternalID,
		InternetMessageID: d.InternetMessageID,
		Subject:           d.Subject,
		SenderAddress:     d.SenderAddress,
		SenderName:        d.SenderName,
		Recipients:        d.Recipients,
		ReceivedAt:        d.ReceivedAt,
		Body:              utils.ExtractText(d.TextBody, d.HTMLBody),
		HasAttachments:    d.HasAttachments,
		Mailbox:           d.Mailbox,
	}
}
