package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/llm-claim-detector/internal/core"
)

// both implementations must behave the same, so every test runs on each
func forEachStore(t *testing.T, fn func(t *testing.T, s core.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore(zaptest.NewLogger(t)))
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(context.Background(), ":memory:", zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

func testMessage(id string) *core.Message {
	return &core.Message{
		ExternalID:    id,
		Subject:       "Parcel " + id,
		SenderAddress: "customer@example.com",
		SenderName:    "Customer",
		Recipients:    []string{"support@shop.example"},
		ReceivedAt:    time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Body:          "The parcel arrived broken.",
		Mailbox:       "INBOX",
	}
}

func TestSaveMessageIsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.Store) {
		ctx := context.Background()

		recorded, err := s.IsMessageRecorded(ctx, "INBOX:1:7")
		require.NoError(t, err)
		assert.False(t, recorded)

		id1, err := s.SaveMessage(ctx, testMessage("INBOX:1:7"))
		require.NoError(t, err)
		id2, err := s.SaveMessage(ctx, testMessage("INBOX:1:7"))
		require.NoError(t, err)
		assert.Equal(t, id1, id2)

		other, err := s.SaveMessage(ctx, testMessage("INBOX:1:8"))
		require.NoError(t, err)
		assert.NotEqual(t, id1, other)

		recorded, err = s.IsMessageRecorded(ctx, "INBOX:1:7")
		require.NoError(t, err)
		assert.True(t, recorded)
	})
}

func TestLastSuccessfulRunCompletion(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.Store) {
		ctx := context.Background()

		last, err := s.LastSuccessfulRunCompletion(ctx)
		require.NoError(t, err)
		assert.Nil(t, last)

		base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		runs := []core.ProcessingRun{
			{ID: "a", StartedAt: base, CompletedAt: base.Add(time.Minute), Status: core.RunStatusSuccess},
			{ID: "b", StartedAt: base.Add(time.Hour), CompletedAt: base.Add(2 * time.Hour), Status: core.RunStatusSuccess},
			{ID: "c", StartedAt: base.Add(3 * time.Hour), CompletedAt: base.Add(4 * time.Hour), Status: core.RunStatusError, Error: "boom"},
		}
		for i := range runs {
			require.NoError(t, s.RecordRun(ctx, &runs[i]))
		}

		last, err = s.LastSuccessfulRunCompletion(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.True(t, last.Equal(base.Add(2*time.Hour)), "got %s", last)
	})
}

func TestListClassifications(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.Store) {
		ctx := context.Background()

		results := []core.ClassificationResult{
			{IsClaim: true, Confidence: 90, Category: core.CategoryDamagedGoods, Severity: core.SeverityHigh, Keywords: []string{"broken"}},
			core.ExcludedResult(),
			{IsClaim: true, Confidence: 40, Category: core.CategoryDeliveryIssue, Severity: core.SeverityLow},
			{IsClaim: false, Confidence: 80, Category: core.CategoryOther, Severity: core.SeverityLow},
		}
		for i, r := range results {
			id, err := s.SaveMessage(ctx, testMessage(string(rune('a'+i))))
			require.NoError(t, err)
			_, err = s.SaveClassification(ctx, id, r)
			require.NoError(t, err)
		}

		tests := []struct {
			name       string
			filter     core.ClassificationFilter
			categories []string
		}{
			{
				name:       "all newest first",
				filter:     core.ClassificationFilter{},
				categories: []string{core.CategoryOther, core.CategoryDeliveryIssue, core.CategoryExcluded, core.CategoryDamagedGoods},
			},
			{
				name:       "claims only",
				filter:     core.ClassificationFilter{ClaimsOnly: true},
				categories: []string{core.CategoryDeliveryIssue, core.CategoryDamagedGoods},
			},
			{
				name:       "category",
				filter:     core.ClassificationFilter{Category: core.CategoryExcluded},
				categories: []string{core.CategoryExcluded},
			},
			{
				name:       "min confidence",
				filter:     core.ClassificationFilter{MinConfidence: 50},
				categories: []string{core.CategoryOther, core.CategoryDamagedGoods},
			},
			{
				name:       "limit",
				filter:     core.ClassificationFilter{Limit: 1},
				categories: []string{core.CategoryOther},
			},
			{
				name:       "since future",
				filter:     core.ClassificationFilter{Since: time.Now().Add(time.Hour)},
				categories: nil,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.ListClassifications(ctx, tt.filter)
				require.NoError(t, err)
				var categories []string
				for _, g := range got {
					categories = append(categories, g.Result.Category)
				}
				assert.Equal(t, tt.categories, categories)
			})
		}

		all, err := s.ListClassifications(ctx, core.ClassificationFilter{Category: core.CategoryDamagedGoods})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "a", all[0].ExternalID)
		assert.Equal(t, "customer@example.com", all[0].Sender)
		assert.Equal(t, []string{"broken"}, all[0].Result.Keywords)
		assert.Equal(t, core.SeverityHigh, all[0].Result.Severity)
	})
}

func TestOneClassificationPerMessage(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.Store) {
		ctx := context.Background()
		id, err := s.SaveMessage(ctx, testMessage("once"))
		require.NoError(t, err)

		_, err = s.SaveClassification(ctx, id, core.DefaultResult())
		require.NoError(t, err)
		_, err = s.SaveClassification(ctx, id, core.ExcludedResult())
		require.Error(t, err)

		all, err := s.ListClassifications(ctx, core.ClassificationFilter{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, core.CategoryOther, all[0].Result.Category)
	})
}

func TestMemorySaveClassificationUnknownMessage(t *testing.T) {
	s := NewMemoryStore(zaptest.NewLogger(t))
	_, err := s.SaveClassification(context.Background(), 42, core.DefaultResult())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStoreRejectsOverlongExternalID(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), ":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	long := strings.Repeat("x", maxExternalIDLength+1)
	_, err = s.SaveMessage(context.Background(), testMessage(long))
	require.Error(t, err)

	recorded, err := s.IsMessageRecorded(context.Background(), long)
	require.NoError(t, err)
	assert.False(t, recorded)

	_, err = s.SaveMessage(context.Background(), testMessage(long[:maxExternalIDLength]))
	assert.NoError(t, err)
}

func TestMySQLDialectOnlyIgnoresDuplicates(t *testing.T) {
	assert.NotContains(t, mysqlDialect.insertMessage, "IGNORE")
	assert.Contains(t, mysqlDialect.insertMessage, "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, mysqlDialect.schema[0], fmt.Sprintf("external_id VARCHAR(%d)", maxExternalIDLength))
}

func TestDialectBind(t *testing.T) {
	q := `SELECT id FROM t WHERE a = ? AND b = ?`
	assert.Equal(t, q, sqliteDialect.bind(q))
	assert.Equal(t, `SELECT id FROM t WHERE a = $1 AND b = $2`, postgresDialect.bind(q))
}
