package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightflow/hub/pkg/hub"
)

type mockIngester struct {
	requests []*hub.IngestFeedbackRequest
	err      error
}

func (m *mockIngester) IngestFeedback(_ context.Context, req *hub.IngestFeedbackRequest) (*hub.FeedbackRecord, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}

	return &hub.FeedbackRecord{ID: "id", TenantID: req.TenantID, Sentiment: "neutral"}, nil
}

func TestParseHeader(t *testing.T) {
	cols, err := parseHeader([]string{"\ufeffTenantId", "Rate", "Text", "extra"})
	require.NoError(t, err)
	assert.Equal(t, columns{tenant: 0, rate: 1, text: 2}, cols)

	_, err = parseHeader([]string{"tenantId", "rate"})
	require.Error(t, err)
}

func TestRowToRequest(t *testing.T) {
	cols := columns{tenant: 0, rate: 1, text: 2}

	tests := []struct {
		name          string
		row           []string
		defaultTenant string
		wantNil       bool
		wantErr       bool
		wantTenant    string
		wantRate      *float64
	}{
		{name: "full row", row: []string{"t1", "4", "Great"}, wantTenant: "t1", wantRate: ptr(4.0)},
		{name: "no rate", row: []string{"t1", "", "Great"}, wantTenant: "t1"},
		{name: "default tenant", row: []string{"", "", "Great"}, defaultTenant: "d", wantTenant: "d"},
		{name: "empty text skipped", row: []string{"t1", "3", "  "}, wantNil: true},
		{name: "short row skipped", row: []string{"t1"}, wantNil: true},
		{name: "missing tenant", row: []string{"", "", "Great"}, wantErr: true},
		{name: "bad rate", row: []string{"t1", "x", "Great"}, wantErr: true},
		{name: "rate out of range", row: []string{"t1", "6", "Great"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := rowToRequest(tt.row, cols, tt.defaultTenant)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, req)
				return
			}

			require.NotNil(t, req)
			assert.Equal(t, tt.wantTenant, req.TenantID)
			assert.Equal(t, tt.wantRate, req.Rate)
		})
	}
}

func TestProcessCSV(t *testing.T) {
	input := "tenantId,rate,text\n" +
		"t1,5,Loved the pool\n" +
		"t1,,\n" +
		"t2,9,Too high\n" +
		"t2,2,\"Noisy, late check-in\"\n"

	t.Run("posts valid rows", func(t *testing.T) {
		ingester := &mockIngester{}

		stats, err := processCSV(context.Background(), strings.NewReader(input), ingester, Config{})

		require.NoError(t, err)
		assert.Equal(t, 4, stats.TotalRows)
		assert.Equal(t, 1, stats.SkippedEmpty)
		assert.Equal(t, 1, stats.SkippedInvalid)
		assert.Equal(t, 2, stats.SuccessfulPosts)
		require.Len(t, ingester.requests, 2)
		assert.Equal(t, "Noisy, late check-in", ingester.requests[1].Text)
	})

	t.Run("counts failures", func(t *testing.T) {
		ingester := &mockIngester{err: errors.New("boom")}

		stats, err := processCSV(context.Background(), strings.NewReader(input), ingester, Config{})

		require.NoError(t, err)
		assert.Equal(t, 2, stats.FailedPosts)
		assert.Equal(t, 0, stats.SuccessfulPosts)
	})

	t.Run("dry run makes no calls", func(t *testing.T) {
		ingester := &mockIngester{}

		stats, err := processCSV(context.Background(), strings.NewReader(input), ingester, Config{DryRun: true})

		require.NoError(t, err)
		assert.Equal(t, 2, stats.SuccessfulPosts)
		assert.Empty(t, ingester.requests)
	})

	t.Run("missing text column", func(t *testing.T) {
		_, err := processCSV(context.Background(), strings.NewReader("a,b\n1,2\n"), &mockIngester{}, Config{})
		require.Error(t, err)
	})
}

func ptr[T any](v T) *T { return &v }
