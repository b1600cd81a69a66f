package http

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "loandash/internal/errors"
	"loandash/internal/exporter"
	appmiddleware "loandash/internal/middleware"
	"loandash/internal/services"
	api "loandash/pkg/contracts/api/v1"
	"loandash/pkg/contracts/domain"
	"loandash/pkg/contracts/events"
)

// DefaultPageSize is the records page size when no limit is given.
const DefaultPageSize = 500

// DashboardHandler serves the filtered views of the loan dataset.
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *appmiddleware.Validator
	query        *appmiddleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    appmiddleware.NewValidator(logger),
		query:        appmiddleware.NewQueryParamValidator(logger),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/options", h.GetOptions)
	r.Get("/dataset", h.GetDataset)
	r.Get("/summary", h.GetSummary)
	r.With(
		appmiddleware.ContentTypeValidator(h.errorHandler, "application/json"),
		appmiddleware.BodyLimit(appmiddleware.DefaultMaxBodySize, h.errorHandler),
	).Post("/summary", h.PostSummary)
	r.Get("/records", h.GetRecords)

	r.Get("/export", h.GetExport)
	r.With(
		appmiddleware.ContentTypeValidator(h.errorHandler, "application/json"),
		appmiddleware.BodyLimit(appmiddleware.DefaultMaxBodySize, h.errorHandler),
	).Post("/export", h.PostExport)
	r.Get("/export.csv", h.Export(exporter.FormatCSV))
	r.Get("/export.xlsx", h.Export(exporter.FormatXLSX))

	r.With(appmiddleware.AuditLog(h.logger)).Post("/reload", h.Reload)

	return r
}

// GetOptions handles GET /api/dashboard/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.Options()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, options)
}

// GetDataset handles GET /api/dashboard/dataset
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Dataset()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// GetSummary handles GET /api/dashboard/summary with filters in the query
// string, e.g. ?loan_type=LOA&loan_type=LLD&request_year=2021.
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filters, err := h.queryFilters(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.summary(w, r, filters)
}

// PostSummary handles POST /api/dashboard/summary with a SummaryRequest body.
func (h *DashboardHandler) PostSummary(w http.ResponseWriter, r *http.Request) {
	var req api.SummaryRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filters, err := req.Filters.ToFilters()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.summary(w, r, filters)
}

func (h *DashboardHandler) summary(w http.ResponseWriter, r *http.Request, filters domain.Filters) {
	summary, err := h.service.Summary(r.Context(), filters)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "summary computed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("filters", len(filters)),
		slog.Int("count", summary.Count))

	render.JSON(w, r, summary)
}

// GetRecords handles GET /api/dashboard/records?limit=&offset=&<filters>
func (h *DashboardHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	limit, err := h.query.Int(r, "limit", 1, math.MaxInt32, DefaultPageSize)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	offset, err := h.query.Int(r, "offset", 0, math.MaxInt32, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filters, err := h.queryFilters(r, "limit", "offset")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	page, err := h.service.Records(r.Context(), filters, limit, offset)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// Export handles GET /api/dashboard/export.{csv,xlsx}.
func (h *DashboardHandler) Export(format exporter.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := h.queryFilters(r)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.export(w, r, format, filters, "")
	}
}

// GetExport handles GET /api/dashboard/export?format=csv|xlsx&<filters>.
// The format defaults to csv.
func (h *DashboardHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	format, err := h.query.Enum(r, "format", exportFormats, string(exporter.FormatCSV))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filters, err := h.queryFilters(r, "format")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.export(w, r, exporter.Format(format), filters, "")
}

// PostExport handles POST /api/dashboard/export with an ExportRequest body.
func (h *DashboardHandler) PostExport(w http.ResponseWriter, r *http.Request) {
	var req api.ExportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filters, err := req.Filters.ToFilters()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.export(w, r, exporter.Format(req.Format), filters, req.Filename)
}

var exportFormats = []string{string(exporter.FormatCSV), string(exporter.FormatXLSX)}

// export builds the file in memory first so a failure still yields a
// problem response. An empty filename uses the configured one.
func (h *DashboardHandler) export(w http.ResponseWriter, r *http.Request, format exporter.Format, filters domain.Filters, filename string) {
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, format, filters); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if filename == "" {
		filename = h.service.ExportFilename(format)
	} else {
		filename = format.Filename(filename)
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export download interrupted",
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
	}
}

// Reload handles POST /api/dashboard/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Reload(r.Context(), events.TriggerAPI)
	if err != nil {
		if errors.Is(err, services.ErrReloadFailed) {
			err = apierrors.ReloadFailed(err)
		}
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset reloaded on request",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Bool("changed", result.Changed),
		slog.Int("rows", result.Dataset.Rows))

	render.JSON(w, r, result)
}

func (h *DashboardHandler) queryFilters(r *http.Request, reserved ...string) (domain.Filters, error) {
	sel, err := api.SelectionFromQuery(r.URL.Query(), reserved...)
	if err != nil {
		return nil, err
	}
	return sel.ToFilters()
}
