package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"loandash/internal/config"
	"loandash/internal/dataprocessing"
	apperrors "loandash/internal/errors"
	"loandash/internal/exporter"
	"loandash/internal/shared/testutil"
	"loandash/pkg/contracts/domain"
	"loandash/pkg/contracts/events"
)

func sampleLoans() []domain.LoanApplication {
	return []domain.LoanApplication{
		testutil.Loan(nil),
		testutil.Loan(func(l *domain.LoanApplication) { l.LoanType = "LOA" }),
		testutil.Loan(func(l *domain.LoanApplication) { l.LoanType = "LOA"; l.BankDecision = "Refusé" }),
		testutil.Loan(func(l *domain.LoanApplication) { l.DebtRatio = domain.Float(150) }), // dropped by cleaning
	}
}

type serviceFixture struct {
	svc     *DatasetService
	path    string
	hub     *MockWebSocketHub
	metrics *MockDashboardMetrics
}

func newServiceFixture(t *testing.T, export config.ExportConfig, loans ...domain.LoanApplication) *serviceFixture {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	path := testutil.WriteLoansCSV(t, t.TempDir(), "demandes.csv", loans...)
	hub := &MockWebSocketHub{}
	metrics := &MockDashboardMetrics{}
	metrics.On("RecordFilterEvaluation", mock.Anything, mock.Anything).Maybe()
	metrics.On("RecordExport", mock.Anything, mock.Anything).Maybe()

	svc := NewDatasetService(&dataprocessing.CSVSource{Path: path}, dataprocessing.NewCache(logger, nil), DatasetServiceOptions{
		Export:  export,
		Hub:     hub,
		Metrics: metrics,
		Logger:  logger,
	})
	return &serviceFixture{svc: svc, path: path, hub: hub, metrics: metrics}
}

func (f *serviceFixture) load(t *testing.T) {
	t.Helper()
	f.hub.On("Broadcast", string(events.MessageTypeDatasetReloaded), mock.Anything).Once()
	_, err := f.svc.Reload(context.Background(), events.TriggerStartup)
	require.NoError(t, err)
}

func TestDatasetServiceNotLoaded(t *testing.T) {
	f := newServiceFixture(t, config.ExportConfig{}, sampleLoans()...)

	assert.False(t, f.svc.Loaded())

	_, err := f.svc.Table()
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = f.svc.Options()
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = f.svc.Summary(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	_, err = f.svc.Dataset()
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
}

func TestDatasetServiceReload(t *testing.T) {
	f := newServiceFixture(t, config.ExportConfig{}, sampleLoans()...)
	ctx := context.Background()

	f.hub.On("Broadcast", string(events.MessageTypeDatasetReloaded), mock.MatchedBy(func(e events.DatasetReloaded) bool {
		return e.Dataset.Rows == 3 && e.Trigger == events.TriggerStartup
	})).Once()
	first, err := f.svc.Reload(ctx, events.TriggerStartup)
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, 3, first.Dataset.Rows)
	assert.True(t, f.svc.Loaded())

	// Same content: no reparse, no broadcast.
	again, err := f.svc.Reload(ctx, events.TriggerAPI)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, first.Dataset.Digest, again.Dataset.Digest)

	// New content is picked up.
	testutil.WriteLoansCSV(t, filepath.Dir(f.path), "demandes.csv", testutil.Loan(nil))
	f.hub.On("Broadcast", string(events.MessageTypeDatasetReloaded), mock.Anything).Once()
	updated, err := f.svc.Reload(ctx, events.TriggerWatcher)
	require.NoError(t, err)
	assert.True(t, updated.Changed)
	assert.Equal(t, 1, updated.Dataset.Rows)
	assert.NotEqual(t, first.Dataset.Digest, updated.Dataset.Digest)

	f.hub.AssertExpectations(t)
}

func TestDatasetServiceReloadFailureKeepsPreviousTable(t *testing.T) {
	f := newServiceFixture(t, config.ExportConfig{}, sampleLoans()...)
	f.load(t)
	before, err := f.svc.Table()
	require.NoError(t, err)

	require.NoError(t, os.Remove(f.path))
	f.hub.On("Broadcast", string(events.MessageTypeDatasetReloadFailed), mock.Anything).Once()

	_, err = f.svc.Reload(context.Background(), events.TriggerAPI)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReloadFailed)
	assert.ErrorIs(t, err, dataprocessing.ErrUnreadableSource)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeSource, appErr.Type)

	after, err := f.svc.Table()
	require.NoError(t, err)
	assert.Same(t, before, after)
	f.hub.AssertExpectations(t)
}

func TestDatasetServiceSummary(t *testing.T) {
	f := newServiceFixture(t, config.ExportConfig{PreviewRows: 1}, sampleLoans()...)
	f.load(t)

	summary, err := f.svc.Summary(context.Background(), domain.Filters{}.With(domain.FieldLoanType, "LOA"))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Count)
	assert.Len(t, summary.Preview, 1)
	assert.Equal(t, 1, summary.PreviewRows)
	assert.Equal(t, 3, summary.Dataset.Rows)
	f.metrics.AssertCalled(t, "RecordFilterEvaluation", mock.Anything, 2)

	options, err := f.svc.Options()
	require.NoError(t, err)
	assert.Equal(t, []string{"Crédit classique", "LOA"}, options[domain.FieldLoanType])
}

func TestDatasetServiceRecords(t *testing.T) {
	f := newServiceFixture(t, config.ExportConfig{MaxPageSize: 2}, sampleLoans()...)
	f.load(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantLen   int
		wantLimit int
		wantErr   bool
	}{
		{name: "first page", limit: 1, offset: 0, wantLen: 1, wantLimit: 1},
		{name: "clamped to max page size", limit: 100, offset: 0, wantLen: 2, wantLimit: 2},
		{name: "last page", limit: 2, offset: 2, wantLen: 1, wantLimit: 2},
		{name: "past the end", limit: 2, offset: 10, wantLen: 0, wantLimit: 2},
		{name: "zero limit", limit: 0, wantErr: true},
		{name: "negative offset", limit: 1, offset: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.Records(ctx, nil, tt.limit, tt.offset)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, page.Total)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Len(t, page.Records, tt.wantLen)
		})
	}
}

func TestDatasetServiceExport(t *testing.T) {
	f := newServiceFixture(t, config.ExportConfig{}, sampleLoans()...)
	f.load(t)

	var buf bytes.Buffer
	err := f.svc.Export(context.Background(), &buf, exporter.FormatCSV, domain.Filters{}.With(domain.FieldLoanType, "LOA"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "loan_type,"))
	f.metrics.AssertCalled(t, "RecordExport", mock.Anything, "csv")

	assert.Equal(t, "donnees_filtrees_credits_auto.xlsx", f.svc.ExportFilename(exporter.FormatXLSX))
	assert.Equal(t, "donnees_filtrees_credits_auto.csv", f.svc.ExportFilename(exporter.FormatCSV))
}

func TestDatasetServiceConcurrentReaders(t *testing.T) {
	f := newServiceFixture(t, config.ExportConfig{}, sampleLoans()...)
	f.load(t)
	f.hub.On("Broadcast", mock.Anything, mock.Anything).Maybe()

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 20; j++ {
				if _, err := f.svc.Summary(ctx, nil); err != nil {
					return err
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for j := 0; j < 5; j++ {
			if _, err := f.svc.Reload(ctx, events.TriggerAPI); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())
}

func TestClassifyLoadError(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		wantType apperrors.ErrorType
	}{
		{"unreadable", fmt.Errorf("load x: %w", dataprocessing.ErrUnreadableSource), apperrors.ErrTypeSource},
		{"missing column", fmt.Errorf("load x: %w", dataprocessing.ErrMissingColumn), apperrors.ErrTypeParsing},
		{"empty", dataprocessing.ErrEmptySource, apperrors.ErrTypeParsing},
		{"malformed date", dataprocessing.ErrMalformedDateParts, apperrors.ErrTypeParsing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyLoadError("csv:demandes.csv", tt.err)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, "csv:demandes.csv", appErr.Context["source"])
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.Same(t, other, classifyLoadError("csv:demandes.csv", other))
}

func TestDatasetServiceReloadMissingColumns(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	path := filepath.Join(t.TempDir(), "partial.csv")
	require.NoError(t, os.WriteFile(path, []byte("loan_type,debt_ratio\nLOA,10\n"), 0o644))
	svc := NewDatasetService(&dataprocessing.CSVSource{Path: path}, nil, DatasetServiceOptions{Logger: logger})

	_, err := svc.Reload(context.Background(), events.TriggerCLI)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
	assert.ErrorIs(t, err, dataprocessing.ErrMissingColumn)
}
