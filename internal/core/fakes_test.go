package core_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mikey/llm-claim-detector/internal/adapters/store"
	"github.com/mikey/llm-claim-detector/internal/core"
	"github.com/mikey/llm-claim-detector/internal/exclusion"
)

type fakeSource struct {
	mu         sync.Mutex
	messages   []core.MessageDetail
	failDetail map[string]error
	listErr    error
	queries    []core.MailQuery
	fetched    map[string]string
}

func (s *fakeSource) ListMessages(_ context.Context, q core.MailQuery) ([]core.MessageSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, q)
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]core.MessageSummary, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m.MessageSummary)
	}
	return out, nil
}

func (s *fakeSource) GetMessageDetail(_ context.Context, externalID, mailbox string) (*core.MessageDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetched == nil {
		s.fetched = make(map[string]string)
	}
	s.fetched[externalID] = mailbox
	if err := s.failDetail[externalID]; err != nil {
		return nil, err
	}
	for i := range s.messages {
		if s.messages[i].ExternalID == externalID {
			d := s.messages[i]
			return &d, nil
		}
	}
	return nil, errors.New("message not found")
}

func (s *fakeSource) lastQuery() core.MailQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

// fakeClassifier flags bodies mentioning "broken" as damaged goods claims
type fakeClassifier struct {
	mu          sync.Mutex
	calls       []string
	inFlight    int
	maxInFlight int
	delay       time.Duration
	delays      map[string]time.Duration
	events      []string
	fail        map[string]error
	panicOn     string
	block       chan struct{}
	startErr    error
	starts      int
	sequential  bool
}

func (c *fakeClassifier) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return c.startErr
}

func (c *fakeClassifier) SequentialOnly() bool {
	return c.sequential
}

func (c *fakeClassifier) Classify(_ context.Context, text, subject, _ string) (core.ClassificationResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, subject)
	c.events = append(c.events, "start "+subject)
	c.inFlight++
	c.maxInFlight = max(c.maxInFlight, c.inFlight)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.events = append(c.events, "end "+subject)
		c.mu.Unlock()
	}()

	if c.block != nil {
		<-c.block
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if d := c.delays[subject]; d > 0 {
		time.Sleep(d)
	}
	if subject == c.panicOn && c.panicOn != "" {
		panic("model exploded")
	}
	if err := c.fail[subject]; err != nil {
		return core.ClassificationResult{}, err
	}

	r := core.DefaultResult()
	if strings.Contains(text, "broken") {
		r.IsClaim = true
		r.Confidence = 90
		r.Category = core.CategoryDamagedGoods
		r.Severity = core.SeverityHigh
	}
	return r, nil
}

func (c *fakeClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// eventIndex returns the position of event in the recorded start/end log
func (c *fakeClassifier) eventIndex(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Index(c.events, event)
}

func (c *fakeClassifier) peak() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight
}

func message(n int, sender, subject, body string) core.MessageDetail {
	return core.MessageDetail{
		MessageSummary: core.MessageSummary{
			ExternalID:    fmt.Sprintf("INBOX:1:%d", n),
			Subject:       subject,
			SenderAddress: sender,
			ReceivedAt:    time.Date(2024, 3, 1, 10, n, 0, 0, time.UTC),
		},
		Recipients: []string{"support@shop.example"},
		TextBody:   body,
	}
}

func newTestPipeline(t *testing.T, src core.MailSource, cls core.Classifier, rules exclusion.Rules) (*core.Pipeline, *store.MemoryStore) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st := store.NewMemoryStore(logger)
	p := core.NewPipeline(
		src,
		st,
		cls,
		exclusion.NewFilter(rules, logger),
		core.NewDispatcher(cls, 0, logger, nil),
		logger,
		nil,
		core.PipelineSettings{DefaultConcurrency: 1, Lookback: 24 * time.Hour},
	)
	return p, st
}
