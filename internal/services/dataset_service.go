package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"loandash/internal/config"
	"loandash/internal/dataprocessing"
	apperrors "loandash/internal/errors"
	"loandash/internal/exporter"
	"loandash/pkg/contracts/domain"
	"loandash/pkg/contracts/events"
)

// WebSocketHub is the broadcast side of the WebSocket hub.
type WebSocketHub interface {
	Broadcast(messageType string, data interface{})
}

// DashboardMetrics receives per-request dashboard measurements.
type DashboardMetrics interface {
	RecordFilterEvaluation(ctx context.Context, matched int)
	RecordExport(ctx context.Context, format string)
}

// DatasetServiceOptions carries the optional collaborators of a DatasetService.
type DatasetServiceOptions struct {
	Export      config.ExportConfig
	LoadTimeout time.Duration
	Hub         WebSocketHub
	Metrics     DashboardMetrics
	Logger      *slog.Logger
}

// snapshot pairs a table with the filter options derived from it.
type snapshot struct {
	table   *domain.Table
	options domain.FilterOptions
}

// DatasetService owns the table currently served by the dashboard. Readers
// take the current snapshot without locking; Reload swaps it atomically and
// keeps the previous one when loading fails.
type DatasetService struct {
	source dataprocessing.Source
	cache  *dataprocessing.Cache

	current  atomic.Pointer[snapshot]
	reloadMu sync.Mutex

	export      config.ExportConfig
	loadTimeout time.Duration
	hub         WebSocketHub
	metrics     DashboardMetrics
	logger      *slog.Logger
}

// NewDatasetService creates a service for src. Nothing is loaded until the
// first Reload.
func NewDatasetService(src dataprocessing.Source, cache *dataprocessing.Cache, opts DatasetServiceOptions) *DatasetService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = dataprocessing.NewCache(logger, nil)
	}
	if opts.Export.Filename == "" {
		opts.Export.Filename = exporter.DefaultFilename
	}

	logger.Info("DatasetService initialized",
		slog.String("source", src.String()),
		slog.Duration("load_timeout", opts.LoadTimeout))

	return &DatasetService{
		source:      src,
		cache:       cache,
		export:      opts.Export,
		loadTimeout: opts.LoadTimeout,
		hub:         opts.Hub,
		metrics:     opts.Metrics,
		logger:      logger.With(slog.String("component", "dataset_service")),
	}
}

// ReloadResult describes the table served after a reload.
type ReloadResult struct {
	Dataset domain.DatasetInfo `json:"dataset"`
	Changed bool               `json:"changed"`
}

// Reload fetches the source again. The table is reparsed only when the
// source content changed; changed reports whether a new table is now
// served. On failure the previous table stays in service and the error
// wraps ErrReloadFailed.
func (s *DatasetService) Reload(ctx context.Context, trigger string) (*ReloadResult, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	table, changed, err := s.cache.Get(ctx, s.source)
	if err != nil {
		s.logger.ErrorContext(ctx, "Dataset reload failed",
			slog.String("source", s.source.String()),
			slog.String("trigger", trigger),
			slog.Bool("serving_previous", s.current.Load() != nil),
			slog.String("error", err.Error()))
		s.broadcast(events.MessageTypeDatasetReloadFailed, events.DatasetReloadFailed{
			Source:  s.source.String(),
			Trigger: trigger,
			Error:   err.Error(),
		})
		return nil, fmt.Errorf("%w: %w", ErrReloadFailed, classifyLoadError(s.source.String(), err))
	}

	prev := s.current.Load()
	if prev == nil || prev.table != table {
		s.current.Store(&snapshot{table: table, options: dataprocessing.Options(table)})
		changed = true
	}

	info := table.Info()
	if changed {
		s.logger.InfoContext(ctx, "Serving new dataset",
			slog.String("source", info.Source),
			slog.String("digest", info.Digest),
			slog.Int("rows", info.Rows),
			slog.Bool("extended", info.Extended),
			slog.String("trigger", trigger))
		s.broadcast(events.MessageTypeDatasetReloaded, events.DatasetReloaded{Dataset: info, Trigger: trigger})
	}

	return &ReloadResult{Dataset: info, Changed: changed}, nil
}

func (s *DatasetService) broadcast(t events.MessageType, data interface{}) {
	if s.hub != nil {
		s.hub.Broadcast(string(t), data)
	}
}

func (s *DatasetService) snapshot() (*snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, apperrors.NewUnavailableError(ErrDatasetNotLoaded.Error(), ErrDatasetNotLoaded).
			WithContext("source", s.source.String())
	}
	return snap, nil
}

// Table returns the table currently served.
func (s *DatasetService) Table() (*domain.Table, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.table, nil
}

// Loaded reports whether a table is being served.
func (s *DatasetService) Loaded() bool {
	return s.current.Load() != nil
}

// Source names the dataset source.
func (s *DatasetService) Source() string {
	return s.source.String()
}

// Dataset returns metadata of the table currently served.
func (s *DatasetService) Dataset() (domain.DatasetInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	return snap.table.Info(), nil
}

// Options returns the selectable values of every filterable field.
func (s *DatasetService) Options() (domain.FilterOptions, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.options, nil
}

// Summary is a filtered view's aggregates plus the first rows of the view.
type Summary struct {
	*domain.FilteredResult
	Preview     []domain.LoanApplication `json:"preview"`
	PreviewRows int                      `json:"preview_rows"`
	Dataset     domain.DatasetInfo       `json:"dataset"`
}

// Summary evaluates filters against the current table.
func (s *DatasetService) Summary(ctx context.Context, filters domain.Filters) (*Summary, error) {
	res, table, err := s.apply(ctx, filters)
	if err != nil {
		return nil, err
	}
	preview := res.Preview(s.export.PreviewRows)
	return &Summary{
		FilteredResult: res,
		Preview:        preview,
		PreviewRows:    len(preview),
		Dataset:        table.Info(),
	}, nil
}

func (s *DatasetService) apply(ctx context.Context, filters domain.Filters) (*domain.FilteredResult, *domain.Table, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	res := dataprocessing.Apply(snap.table, filters)
	if s.metrics != nil {
		s.metrics.RecordFilterEvaluation(ctx, res.Count)
	}
	s.logger.DebugContext(ctx, "Filters applied",
		slog.Int("filters", len(filters)),
		slog.Int("matched", res.Count),
		slog.Duration("duration", time.Since(start)))
	return res, snap.table, nil
}

// RecordsPage is one page of a filtered view.
type RecordsPage struct {
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
	Records []domain.LoanApplication `json:"records"`
}

// Records pages through the filtered view in table order.
func (s *DatasetService) Records(ctx context.Context, filters domain.Filters, limit, offset int) (*RecordsPage, error) {
	if limit <= 0 || offset < 0 {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("limit must be positive and offset non-negative, got limit=%d offset=%d", limit, offset),
			ErrInvalidPage)
	}
	if s.export.MaxPageSize > 0 && limit > s.export.MaxPageSize {
		limit = s.export.MaxPageSize
	}

	res, _, err := s.apply(ctx, filters)
	if err != nil {
		return nil, err
	}

	start := min(offset, len(res.Records))
	end := min(start+limit, len(res.Records))
	return &RecordsPage{
		Total:   res.Count,
		Limit:   limit,
		Offset:  offset,
		Records: res.Records[start:end:end],
	}, nil
}

// ExportFilename is the attachment name for an export in format.
func (s *DatasetService) ExportFilename(format exporter.Format) string {
	return format.Filename(s.export.Filename)
}

// Export writes the filtered view to w in format.
func (s *DatasetService) Export(ctx context.Context, w io.Writer, format exporter.Format, filters domain.Filters) error {
	res, table, err := s.apply(ctx, filters)
	if err != nil {
		return err
	}

	err = exporter.WriteLoans(w, format, res.Records, exporter.LoanExportOptions{
		Extended:  table.Extended(),
		BOMPrefix: s.export.BOM,
	})
	if err != nil {
		return apperrors.NewExportError(fmt.Sprintf("write %s export", format), err).
			WithContext("format", string(format))
	}
	if s.metrics != nil {
		s.metrics.RecordExport(ctx, string(format))
	}

	s.logger.InfoContext(ctx, "Filtered view exported",
		slog.String("format", string(format)),
		slog.Int("rows", res.Count))
	return nil
}

// classifyLoadError tags a load failure as a source or a content problem.
func classifyLoadError(source string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, dataprocessing.ErrUnreadableSource):
		appErr = apperrors.NewSourceError("dataset source unreadable", err)
	case errors.Is(err, dataprocessing.ErrEmptySource),
		errors.Is(err, dataprocessing.ErrMissingColumn),
		errors.Is(err, dataprocessing.ErrMalformedDateParts):
		appErr = apperrors.NewParsingError("dataset content invalid", err)
	default:
		return err
	}
	return appErr.WithContext("source", source)
}
