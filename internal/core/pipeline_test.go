package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-claim-detector/internal/core"
	"github.com/mikey/llm-claim-detector/internal/exclusion"
)

func threeMessages() []core.MessageDetail {
	return []core.MessageDetail{
		message(1, "alice@example.com", "Order 1001", "My vase arrived broken, please help."),
		message(2, "bob@example.com", "Question", "Do you ship to Norway?"),
		message(3, "carol@example.com", "Thanks", "Great service, thank you."),
	}
}

func TestPipelineProcess(t *testing.T) {
	src := &fakeSource{messages: threeMessages()}
	cls := &fakeClassifier{}
	p, st := newTestPipeline(t, src, cls, exclusion.Rules{})

	summary, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.ClaimsDetected)
	assert.Equal(t, 3, cls.callCount())
	assert.Equal(t, 1, cls.starts)

	runs := st.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.Equal(t, core.RunStatusSuccess, runs[0].Status)
	assert.Equal(t, 3, runs[0].Processed)
	assert.Equal(t, 1, runs[0].ClaimsDetected)
	assert.Empty(t, runs[0].Error)
	assert.False(t, runs[0].CompletedAt.Before(runs[0].StartedAt))

	claims, err := st.ListClassifications(t.Context(), core.ClassificationFilter{ClaimsOnly: true})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "INBOX:1:1", claims[0].ExternalID)
	assert.Equal(t, core.CategoryDamagedGoods, claims[0].Result.Category)
}

func TestPipelineSkipsRecordedMessages(t *testing.T) {
	src := &fakeSource{messages: threeMessages()}
	cls := &fakeClassifier{}
	p, st := newTestPipeline(t, src, cls, exclusion.Rules{})

	_, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)

	summary, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.ClaimsDetected)
	assert.Equal(t, 3, cls.callCount())

	all, err := st.ListClassifications(t.Context(), core.ClassificationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Len(t, st.Runs(), 2)
}

func TestPipelineExcludedSender(t *testing.T) {
	src := &fakeSource{messages: []core.MessageDetail{
		message(1, "bot@mailchimp.com", "Newsletter", "Items broken? Read our tips."),
		message(2, "alice@example.com", "Order 1001", "Box was broken"),
	}}
	cls := &fakeClassifier{}
	p, st := newTestPipeline(t, src, cls, exclusion.Rules{Domains: []string{"mailchimp.com"}})

	summary, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Excluded)
	assert.Equal(t, 1, summary.ClaimsDetected)
	assert.Equal(t, []string{"Order 1001"}, cls.calls)

	excluded, err := st.ListClassifications(t.Context(), core.ClassificationFilter{Category: core.CategoryExcluded})
	require.NoError(t, err)
	require.Len(t, excluded, 1)
	assert.Equal(t, "bot@mailchimp.com", excluded[0].Sender)
	assert.False(t, excluded[0].Result.IsClaim)
	assert.Equal(t, 0, excluded[0].Result.Confidence)
	assert.Equal(t, core.SeverityNone, excluded[0].Result.Severity)
}

func TestPipelineFetchFailureIsolated(t *testing.T) {
	src := &fakeSource{
		messages:   threeMessages(),
		failDetail: map[string]error{"INBOX:1:2": errors.New("connection dropped")},
	}
	cls := &fakeClassifier{}
	p, st := newTestPipeline(t, src, cls, exclusion.Rules{})

	summary, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)

	runs := st.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, core.RunStatusError, runs[0].Status)
	assert.Equal(t, 2, runs[0].Processed)
	assert.Contains(t, runs[0].Error, "INBOX:1:2")
	assert.Contains(t, runs[0].Error, "connection dropped")
	assert.NotContains(t, runs[0].Error, "INBOX:1:1")

	recorded, err := st.IsMessageRecorded(t.Context(), "INBOX:1:2")
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestPipelineClassificationFailurePersisted(t *testing.T) {
	src := &fakeSource{messages: threeMessages()}
	cls := &fakeClassifier{fail: map[string]error{"Question": errors.New("rate limited")}}
	p, st := newTestPipeline(t, src, cls, exclusion.Rules{})

	summary, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)

	all, err := st.ListClassifications(t.Context(), core.ClassificationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	var failed *core.ClassifiedMessage
	for i := range all {
		if all[i].ExternalID == "INBOX:1:2" {
			failed = &all[i]
		}
	}
	require.NotNil(t, failed)
	assert.False(t, failed.Result.IsClaim)
	assert.Contains(t, failed.Result.ParseError, "rate limited")

	runs := st.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, core.RunStatusError, runs[0].Status)
	assert.Contains(t, runs[0].Error, "message INBOX:1:2: classification")
}

func TestPipelineEmptyBodyNotClassified(t *testing.T) {
	src := &fakeSource{messages: []core.MessageDetail{message(1, "a@example.com", "Blank", "  ")}}
	cls := &fakeClassifier{}
	p, st := newTestPipeline(t, src, cls, exclusion.Rules{})

	summary, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, cls.callCount())

	recorded, err := st.IsMessageRecorded(t.Context(), "INBOX:1:1")
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestPipelineConcurrencyDoesNotChangeResults(t *testing.T) {
	var messages []core.MessageDetail
	for i := 1; i <= 7; i++ {
		body := "Just checking in."
		if i%2 == 0 {
			body = "The lamp is broken."
		}
		messages = append(messages, message(i, fmt.Sprintf("user%d@example.com", i), fmt.Sprintf("Mail %d", i), body))
	}

	outcome := func(concurrency int) map[string]core.ClassificationResult {
		cls := &fakeClassifier{delay: 5 * time.Millisecond}
		p, st := newTestPipeline(t, &fakeSource{messages: messages}, cls, exclusion.Rules{})
		summary, err := p.Process(t.Context(), core.Options{Concurrency: concurrency})
		require.NoError(t, err)
		assert.Equal(t, 7, summary.Processed)
		assert.Equal(t, 3, summary.ClaimsDetected)
		assert.LessOrEqual(t, cls.peak(), concurrency)

		all, err := st.ListClassifications(t.Context(), core.ClassificationFilter{})
		require.NoError(t, err)
		out := make(map[string]core.ClassificationResult, len(all))
		for _, c := range all {
			out[c.ExternalID] = c.Result
		}
		return out
	}

	assert.Equal(t, outcome(1), outcome(5))
}

func TestPipelineSequentialOnlyBackend(t *testing.T) {
	var messages []core.MessageDetail
	for i := 1; i <= 4; i++ {
		messages = append(messages, message(i, "a@example.com", fmt.Sprintf("Mail %d", i), "broken"))
	}
	cls := &fakeClassifier{sequential: true, delay: 5 * time.Millisecond}
	p, _ := newTestPipeline(t, &fakeSource{messages: messages}, cls, exclusion.Rules{})

	summary, err := p.Process(t.Context(), core.Options{Concurrency: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.ClaimsDetected)
	assert.Equal(t, 1, cls.peak())
}

func TestPipelineSkipsOverlappingRun(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{messages: threeMessages()[:1]}
	cls := &fakeClassifier{block: block}
	p, st := newTestPipeline(t, src, cls, exclusion.Rules{})

	done := make(chan core.Summary)
	go func() {
		summary, _ := p.Process(context.Background(), core.Options{})
		done <- summary
	}()

	require.Eventually(t, func() bool { return cls.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, p.Running())

	skipped, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	assert.True(t, skipped.Skipped)
	assert.Empty(t, skipped.RunID)

	close(block)
	first := <-done
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, first.Processed)
	assert.False(t, p.Running())
	assert.Len(t, st.Runs(), 1)
}

func TestPipelineBackendStartFailure(t *testing.T) {
	src := &fakeSource{messages: threeMessages()}
	cls := &fakeClassifier{startErr: errors.New("inference server not ready")}
	p, st := newTestPipeline(t, src, cls, exclusion.Rules{})

	_, err := p.Process(t.Context(), core.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "self-hosted backend failed to start")
	assert.Empty(t, src.queries)
	assert.Equal(t, 0, cls.callCount())

	runs := st.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, core.RunStatusError, runs[0].Status)
	assert.Contains(t, runs[0].Error, "inference server not ready")
	assert.False(t, p.Running())
}

func TestPipelineListFailure(t *testing.T) {
	src := &fakeSource{listErr: errors.New("mailbox locked")}
	p, st := newTestPipeline(t, src, &fakeClassifier{}, exclusion.Rules{})

	_, err := p.Process(t.Context(), core.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox locked")
	require.Len(t, st.Runs(), 1)
	assert.Equal(t, core.RunStatusError, st.Runs()[0].Status)
}

func TestPipelineIncrementalWindow(t *testing.T) {
	src := &fakeSource{messages: threeMessages()}
	p, st := newTestPipeline(t, src, &fakeClassifier{}, exclusion.Rules{})

	_, err := p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	first := src.lastQuery()
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), first.Since, 5*time.Second)
	assert.True(t, first.From.IsZero())
	assert.Empty(t, first.Mailbox)

	_, err = p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	second := src.lastQuery()
	assert.True(t, second.Since.Equal(st.Runs()[0].CompletedAt))
}

func TestPipelineIncrementalIgnoresFailedRuns(t *testing.T) {
	src := &fakeSource{listErr: errors.New("offline")}
	p, _ := newTestPipeline(t, src, &fakeClassifier{}, exclusion.Rules{})

	_, err := p.Process(t.Context(), core.Options{})
	require.Error(t, err)

	src.listErr = nil
	_, err = p.Process(t.Context(), core.Options{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), src.lastQuery().Since, 5*time.Second)
}

func TestPipelineSourceSelection(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		opts      core.Options
		mailbox   string
		from      time.Time
		to        time.Time
		sinceZero bool
	}{
		{
			name:      "range",
			opts:      core.Options{From: from, To: to},
			from:      from,
			to:        to,
			sinceZero: true,
		},
		{
			name:      "open ended range",
			opts:      core.Options{From: from},
			from:      from,
			sinceZero: true,
		},
		{
			name:      "mailbox wins over range",
			opts:      core.Options{Mailbox: "Claims", From: from, To: to},
			mailbox:   "Claims",
			from:      from,
			to:        to,
			sinceZero: true,
		},
		{
			name:    "mailbox without range uses lookback",
			opts:    core.Options{Mailbox: "Claims"},
			mailbox: "Claims",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{messages: threeMessages()[:1]}
			p, _ := newTestPipeline(t, src, &fakeClassifier{}, exclusion.Rules{})

			_, err := p.Process(t.Context(), tt.opts)
			require.NoError(t, err)

			q := src.lastQuery()
			assert.Equal(t, tt.mailbox, q.Mailbox)
			assert.True(t, tt.from.Equal(q.From))
			assert.True(t, tt.to.Equal(q.To))
			assert.Equal(t, tt.sinceZero, q.Since.IsZero())
			if tt.mailbox != "" {
				assert.Equal(t, tt.mailbox, src.fetched["INBOX:1:1"])
			}
		})
	}
}

func TestPipelineInvalidRange(t *testing.T) {
	src := &fakeSource{messages: threeMessages()}
	p, st := newTestPipeline(t, src, &fakeClassifier{}, exclusion.Rules{})

	_, err := p.Process(t.Context(), core.Options{
		From: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date range")
	assert.Empty(t, src.queries)
	require.Len(t, st.Runs(), 1)
	assert.Equal(t, core.RunStatusError, st.Runs()[0].Status)
}
