package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/delivery/http/response"
	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
)

// ReportService is the read side of report aggregation.
type ReportService interface {
	RunDates(ctx context.Context) ([]entity.RunDate, error)
	BuildView(ctx context.Context, date entity.RunDate) (*entity.ComparisonView, error)
}

type Handler struct {
	reports  ReportService
	scores   repository.ScoreRepository
	failures repository.FailedUnitRepository
	logger   *zap.Logger
}

// NewHandler creates the API handler. scores and failures may be nil when no store is configured.
func NewHandler(reports ReportService, scores repository.ScoreRepository, failures repository.FailedUnitRepository, logger *zap.Logger) *Handler {
	return &Handler{
		reports:  reports,
		scores:   scores,
		failures: failures,
		logger:   logger,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	dates, err := h.reports.RunDates(r.Context())
	if err != nil {
		h.logger.Error("Failed to list run dates", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.RunsResponse{Runs: make([]string, 0, len(dates))}
	for _, d := range dates {
		resp.Runs = append(resp.Runs, d.String())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	date, ok := h.runDate(w, r)
	if !ok {
		return
	}

	view, err := h.reports.BuildView(r.Context(), date)
	if err != nil {
		h.logger.Error("Failed to build comparison view", zap.String("date", date.String()), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !view.HasData {
		h.writeJSONError(w, "No data for the given date", http.StatusNotFound)
		return
	}

	resp := response.ScoresResponse{
		Date:      view.Date.String(),
		AuditedAt: view.AuditedAt,
		Prev:      view.Prev.String(),
		Next:      view.Next.String(),
		Scores:    []response.ScoreResponse{},
	}
	for _, row := range view.Rows {
		for _, page := range row.Pages {
			for _, cell := range page.Cells {
				resp.Scores = append(resp.Scores, response.ScoreResponse{
					Domain:     row.Domain,
					PageType:   page.PageType,
					Viewport:   cell.Viewport.Name,
					Score:      cell.Score,
					Violations: cell.Violations,
					Passes:     cell.Passes,
					URL:        cell.PageURL,
				})
			}
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListFailures(w http.ResponseWriter, r *http.Request) {
	date, ok := h.runDate(w, r)
	if !ok {
		return
	}

	resp := []response.FailedUnitResponse{}
	if h.failures != nil {
		failed, err := h.failures.ListByDate(r.Context(), date)
		if err != nil {
			h.logger.Error("Failed to list failed units", zap.String("date", date.String()), zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		for _, f := range failed {
			resp = append(resp, response.FailedUnitResponse{
				Domain:        f.Domain,
				PageType:      f.PageType,
				Viewport:      f.Viewport,
				URL:           f.URL,
				LastState:     string(f.LastState),
				ErrorType:     f.ErrorType,
				FailureReason: f.FailureReason,
				Attempts:      f.Attempts,
				FailedAt:      f.FailedAt,
			})
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleDomainHistory(w http.ResponseWriter, r *http.Request) {
	if h.scores == nil {
		h.writeJSONError(w, "Score history is not configured", http.StatusServiceUnavailable)
		return
	}

	domain := chi.URLParam(r, "domain")
	rows, err := h.scores.History(r.Context(), domain)
	if err != nil {
		h.logger.Error("Failed to read score history", zap.String("domain", domain), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(rows) == 0 {
		h.writeJSONError(w, "No score history for the given domain", http.StatusNotFound)
		return
	}

	resp := make([]response.HistoryPoint, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, response.HistoryPoint{
			Date:       row.RunDate.String(),
			PageType:   row.PageType,
			Viewport:   row.Viewport,
			Score:      row.Score,
			Violations: row.Violations,
			Passes:     row.Passes,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) runDate(w http.ResponseWriter, r *http.Request) (entity.RunDate, bool) {
	date, err := entity.ParseRunDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeJSONError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return "", false
	}
	return date, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
