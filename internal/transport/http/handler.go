// Package httptransport is the thin HTTP layer over the pipeline. Handlers
// delegate to the service and translate outcomes; no matching logic lives
// here.
package httptransport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rosterboard/internal/audit"
	"rosterboard/internal/pipeline"
	"rosterboard/internal/platform/config"
	"rosterboard/internal/platform/middleware"
	"rosterboard/internal/reconcile"
	"rosterboard/internal/roster"
	dErrors "rosterboard/pkg/domainerrors"
	pkgstrings "rosterboard/pkg/platform/strings"
)

// maxRosterBytes bounds uploads. Rosters are a few thousand rows at most;
// anything bigger is a wrong file.
const maxRosterBytes = 16 << 20

// Service defines the pipeline operations the HTTP layer needs.
type Service interface {
	Execute(ctx context.Context, table roster.Table, cfg reconcile.Config, actor string) (pipeline.Run, error)
	Get(ctx context.Context, id string) (pipeline.Run, error)
	List(ctx context.Context) ([]pipeline.Summary, error)
}

// Handler handles run endpoints.
type Handler struct {
	service  Service
	logger   *slog.Logger
	audit    audit.Publisher
	defaults config.RosterConfig
}

func New(service Service, publisher audit.Publisher, logger *slog.Logger, defaults config.RosterConfig) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		audit:    publisher,
		defaults: defaults,
	}
}

// Register registers the run routes with the chi router. The guard is
// applied to the mutating route only; reads stay open for the dashboard.
func (h *Handler) Register(r chi.Router, guard func(http.Handler) http.Handler) {
	r.With(guard).Post("/runs", h.handleCreateRun)
	r.Get("/runs", h.handleListRuns)
	r.Get("/runs/{runID}", h.handleGetRun)
	r.Get("/runs/{runID}/leaderboard", h.handleLeaderboard)
	r.Get("/runs/{runID}/roster.csv", h.handleAugmentedCSV)
}

type createRunResponse struct {
	Run      runView          `json:"run"`
	Warnings []roster.Warning `json:"warnings,omitempty"`
}

// runView is the run without the augmented table; the full roster comes
// back through the CSV endpoint instead of inflating every JSON response.
type runView struct {
	pipeline.Run
	Augmented *roster.Table `json:"augmented,omitempty"`
}

func viewOf(run pipeline.Run) runView {
	return runView{Run: run, Augmented: nil}
}

// handleCreateRun accepts a multipart roster upload and executes one
// pipeline run synchronously. The response carries the full report.
func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxRosterBytes)
	file, header, err := r.FormFile("roster")
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "multipart field 'roster' is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "read roster upload"))
		return
	}

	table, warnings, err := roster.ParseCSV(data)
	if err != nil {
		h.logger.WarnContext(ctx, "roster upload rejected",
			"request_id", requestID,
			"filename", header.Filename,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	actor := r.FormValue("actor")
	h.emitUpload(ctx, actor, header.Filename, len(table.Rows))

	run, err := h.service.Execute(ctx, *table, h.runConfig(r), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createRunResponse{Run: viewOf(run), Warnings: warnings})
}

// runConfig merges per-request column overrides with configured defaults.
func (h *Handler) runConfig(r *http.Request) reconcile.Config {
	cfg := reconcile.Config{
		NameColumn:   h.defaults.NameColumn,
		PhoneColumns: h.defaults.PhoneColumns,
	}
	if v := strings.TrimSpace(r.FormValue("name_column")); v != "" {
		cfg.NameColumn = v
	}
	if v := strings.TrimSpace(r.FormValue("phone_columns")); v != "" {
		cfg.PhoneColumns = pkgstrings.DedupeAndTrim(strings.Split(v, ","))
	}
	return cfg
}

func (h *Handler) emitUpload(ctx context.Context, actor, filename string, rows int) {
	err := h.audit.Emit(ctx, audit.Event{
		Action: audit.ActionRosterUpload,
		Actor:  actor,
		Detail: fmt.Sprintf("%s (%d rows)", filename, rows),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionRosterUpload, "error", err)
	}
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": summaries})
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": viewOf(run)})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if run.Leaderboard == nil {
		writeError(w, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("run %s has no leaderboard: status %s", run.ID, run.Status)))
		return
	}
	writeJSON(w, http.StatusOK, run.Leaderboard)
}

// handleAugmentedCSV streams the roster with the derived match columns.
func (h *Handler) handleAugmentedCSV(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if run.Augmented == nil {
		writeError(w, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("run %s has no augmented roster: status %s", run.ID, run.Status)))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "roster-"+run.ID+".csv"))
	if err := roster.WriteCSV(w, run.Augmented.Headers, run.Augmented.Rows); err != nil {
		h.logger.ErrorContext(r.Context(), "streaming augmented roster",
			"run_id", run.ID, "error", err)
	}
}
