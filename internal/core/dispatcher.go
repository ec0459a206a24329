package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/llm-claim-detector/internal/metrics"
)

// Candidate is a saved message waiting for analysis
type Candidate struct {
	MessageID  int64
	ExternalID string
	Text       string
	Subject    string
	Sender     string
}

// Analysis pairs a candidate with its result. Err is set when the
// classification call failed; Result then carries the failure marker.
type Analysis struct {
	Candidate Candidate
	Result    ClassificationResult
	Err       error
}

// Dispatcher runs classification calls one by one or in bounded waves
type Dispatcher struct {
	classifier Classifier
	interval   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Recorder
}

// NewDispatcher creates a dispatcher. interval is the pause between calls
// (sequential mode) or between chunks (bounded mode).
func NewDispatcher(classifier Classifier, interval time.Duration, logger *zap.Logger, recorder *metrics.Recorder) *Dispatcher {
	return &Dispatcher{
		classifier: classifier,
		interval:   interval,
		logger:     logger,
		metrics:    recorder,
	}
}

// Dispatch classifies every candidate and returns exactly one Analysis per input.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []Candidate, limit int) []Analysis {
	if len(candidates) == 0 {
		return nil
	}

	if limit > 1 {
		if seq, ok := d.classifier.(interface{ SequentialOnly() bool }); ok && seq.SequentialOnly() {
			d.logger.Warn("Concurrency limit ignored for self-hosted backend, running sequentially",
				zap.Int("requested_limit", limit))
			limit = 1
		}
	}

	if limit <= 1 {
		return d.runSequential(ctx, candidates)
	}
	return d.runChunked(ctx, candidates, limit)
}

func (d *Dispatcher) runSequential(ctx context.Context, candidates []Candidate) []Analysis {
	out := make([]Analysis, 0, len(candidates))
	for i, c := range candidates {
		if i > 0 {
			d.wait(ctx)
		}
		out = append(out, d.analyze(ctx, c))
	}
	return out
}

func (d *Dispatcher) runChunked(ctx context.Context, candidates []Candidate, limit int) []Analysis {
	out := make([]Analysis, len(candidates))
	for start := 0; start < len(candidates); start += limit {
		if start > 0 {
			d.wait(ctx)
		}
		end := min(start+limit, len(candidates))

		d.logger.Debug("Dispatching chunk",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(candidates)))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = d.analyze(ctx, candidates[i])
				return nil
			})
		}
		// analyze never returns an error into the group
		_ = g.Wait()
	}
	return out
}

func (d *Dispatcher) analyze(ctx context.Context, c Candidate) (a Analysis) {
	a.Candidate = c
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.Err = fmt.Errorf("classifier panic: %v", r)
			a.Result = FailedResult(a.Err)
		}
		d.metrics.ObserveCompletion(time.Since(start), a.Err)
	}()

	result, err := d.classifier.Classify(ctx, c.Text, c.Subject, c.Sender)
	if err != nil {
		d.logger.Error("Failed to classify message",
			zap.String("external_id", c.ExternalID),
			zap.Error(err))
		a.Err = err
		a.Result = FailedResult(err)
		return a
	}
	a.Result = result
	return a
}

// wait sleeps for the configured interval or until ctx is done
func (d *Dispatcher) wait(ctx context.Context) {
	if d.interval <= 0 {
		return
	}
	timer := time.NewTimer(d.interval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
