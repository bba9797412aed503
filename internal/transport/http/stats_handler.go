package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

// statsHandler — агрегаты продаж для административной панели.
type statsHandler struct {
	stats  domain.StatsRepository
	logger *log.Entry
}

func (h *statsHandler) register(r chi.Router) {
	r.Get("/daily", h.handleDaily)
	r.Get("/monthly", h.handleMonthly)
	r.Get("/top-products", h.handleTopProducts)
	r.Get("/status-breakdown", h.handleStatusBreakdown)
}

func (h *statsHandler) handleDaily(w http.ResponseWriter, r *http.Request) {
	const layout = "2006-01-02"

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -30)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(layout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid from date"})
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(layout, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid to date"})
			return
		}
		to = parsed
	}

	sales, err := h.stats.DailySales(r.Context(), from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *statsHandler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year := time.Now().UTC().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid year"})
			return
		}
		year = parsed
	}

	sales, err := h.stats.MonthlySales(r.Context(), year)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *statsHandler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	sales, err := h.stats.TopProducts(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *statsHandler) handleStatusBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.stats.StatusBreakdown(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}
