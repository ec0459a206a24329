package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/core"
)

// MemoryStore is an in-memory implementation of core.Store. Nothing
// survives a restart, so every run behaves like the first one.
type MemoryStore struct {
	mu              sync.RWMutex
	messages        map[int64]*core.Message
	byExternalID    map[string]int64
	classifications []storedClassification
	classified      map[int64]struct{}
	runs            []core.ProcessingRun
	nextMessageID   int64
	logger          *zap.Logger
}

type storedClassification struct {
	id           int64
	messageID    int64
	classifiedAt time.Time
	result       core.ClassificationResult
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		messages:     make(map[int64]*core.Message),
		byExternalID: make(map[string]int64),
		classified:   make(map[int64]struct{}),
		logger:       logger,
	}
}

// IsMessageRecorded reports whether a message with this external id exists
func (s *MemoryStore) IsMessageRecorded(_ context.Context, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byExternalID[externalID]
	return ok, nil
}

// SaveMessage stores the message unless its external id is already known
func (s *MemoryStore) SaveMessage(_ context.Context, m *core.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byExternalID[m.ExternalID]; ok {
		return id, nil
	}
	s.nextMessageID++
	id := s.nextMessageID
	saved := *m
	saved.Recipients = slices.Clone(m.Recipients)
	s.messages[id] = &saved
	s.byExternalID[m.ExternalID] = id
	return id, nil
}

// SaveClassification stores a result for a saved message
func (s *MemoryStore) SaveClassification(_ context.Context, messageID int64, r core.ClassificationResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[messageID]; !ok {
		return 0, ErrNotFound
	}
	if _, ok := s.classified[messageID]; ok {
		return 0, ErrAlreadyClassified
	}
	s.classified[messageID] = struct{}{}
	r.Keywords = slices.Clone(r.Keywords)
	id := int64(len(s.classifications) + 1)
	s.classifications = append(s.classifications, storedClassification{
		id:           id,
		messageID:    messageID,
		classifiedAt: time.Now(),
		result:       r,
	})
	return id, nil
}

// LastSuccessfulRunCompletion returns the latest successful completion time
func (s *MemoryStore) LastSuccessfulRunCompletion(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *time.Time
	for i := range s.runs {
		r := &s.runs[i]
		if r.Status != core.RunStatusSuccess {
			continue
		}
		if last == nil || r.CompletedAt.After(*last) {
			t := r.CompletedAt
			last = &t
		}
	}
	return last, nil
}

// RecordRun stores a finished processing run
func (s *MemoryStore) RecordRun(_ context.Context, run *core.ProcessingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, *run)
	s.logger.Debug("Processing run recorded",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status))
	return nil
}

// Runs returns a copy of every recorded run in insertion order
func (s *MemoryStore) Runs() []core.ProcessingRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.runs)
}

// ListClassifications returns stored results joined with their message, newest first
func (s *MemoryStore) ListClassifications(_ context.Context, f core.ClassificationFilter) ([]core.ClassifiedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.ClassifiedMessage
	for i := len(s.classifications) - 1; i >= 0; i-- {
		c := s.classifications[i]
		if !matches(f, c) {
			continue
		}
		m := s.messages[c.messageID]
		out = append(out, core.ClassifiedMessage{
			ID:           c.id,
			MessageID:    c.messageID,
			ExternalID:   m.ExternalID,
			Subject:      m.Subject,
			Sender:       m.SenderAddress,
			ReceivedAt:   m.ReceivedAt,
			ClassifiedAt: c.classifiedAt,
			Result:       c.result,
		})
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func matches(f core.ClassificationFilter, c storedClassification) bool {
	switch {
	case f.ClaimsOnly && !c.result.IsClaim:
		return false
	case f.Category != "" && c.result.Category != f.Category:
		return false
	case !f.Since.IsZero() && c.classifiedAt.Before(f.Since):
		return false
	case c.result.Confidence < f.MinConfidence:
		return false
	}
	return true
}
