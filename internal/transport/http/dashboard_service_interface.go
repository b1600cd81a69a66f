package http

import (
	"context"
	"io"

	"loandash/internal/exporter"
	"loandash/internal/services"
	"loandash/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dataset operations the dashboard
// routes need.
type DashboardServiceInterface interface {
	Options() (domain.FilterOptions, error)
	Dataset() (domain.DatasetInfo, error)
	Summary(ctx context.Context, filters domain.Filters) (*services.Summary, error)
	Records(ctx context.Context, filters domain.Filters, limit, offset int) (*services.RecordsPage, error)
	Export(ctx context.Context, w io.Writer, format exporter.Format, filters domain.Filters) error
	ExportFilename(format exporter.Format) string
	Reload(ctx context.Context, trigger string) (*services.ReloadResult, error)
}

var _ DashboardServiceInterface = (*services.DatasetService)(nil)
