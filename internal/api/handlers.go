package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-warehouse/internal/bronze"
	"github.com/trogers1052/stock-warehouse/internal/models"
	"github.com/trogers1052/stock-warehouse/internal/runlock"
)

// Warehouse is the read side of the warehouse used by the API
type Warehouse interface {
	Ping(ctx context.Context) error
	GetStockVersions(ctx context.Context, symbol string) ([]*models.StockVersion, error)
	GetPriceFactsByDate(ctx context.Context, date time.Time) ([]models.PriceFact, error)
	GetAttributesByDate(ctx context.Context, date time.Time) ([]*models.PriceAttributes, error)
	GetLatestPriceDate(ctx context.Context) (*time.Time, error)
	GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceFact, error)
	GetAttributeHistory(ctx context.Context, symbol string, limit int) ([]*models.PriceAttributes, error)
}

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, date time.Time) (*models.RunSummary, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	warehouse Warehouse
	runner    Runner
	log       logrus.FieldLogger
}

// NewHandler creates a new Handler. runner may be nil, which disables run triggering.
func NewHandler(warehouse Warehouse, runner Runner, log logrus.FieldLogger) *Handler {
	return &Handler{
		warehouse: warehouse,
		runner:    runner,
		log:       log,
	}
}

// GetStockVersions handles GET /stocks/{symbol}/versions
func (h *Handler) GetStockVersions(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	versions, err := h.warehouse.GetStockVersions(r.Context(), symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(versions) == 0 {
		http.Error(w, "stock not found: "+symbol, http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, versions)
}

// GetPrices handles GET /prices?date=YYYY-MM-DD
func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	facts, err := h.warehouse.GetPriceFactsByDate(r.Context(), date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if facts == nil {
		facts = []models.PriceFact{}
	}

	respondJSON(w, http.StatusOK, facts)
}

// GetLatestPriceDate handles GET /prices/latest
func (h *Handler) GetLatestPriceDate(w http.ResponseWriter, r *http.Request) {
	latest, err := h.warehouse.GetLatestPriceDate(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if latest == nil {
		http.Error(w, "no price data loaded", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"date": latest.Format(models.DateLayout)})
}

// GetAttributes handles GET /attributes?date=YYYY-MM-DD
func (h *Handler) GetAttributes(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	attrs, err := h.warehouse.GetAttributesByDate(r.Context(), date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if attrs == nil {
		attrs = []*models.PriceAttributes{}
	}

	respondJSON(w, http.StatusOK, attrs)
}

// GetPriceHistory handles GET /stocks/{symbol}/prices?from=YYYY-MM-DD&to=YYYY-MM-DD.
// to defaults to the warehouse watermark and from to 30 days before to.
func (h *Handler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	q := r.URL.Query()

	var to time.Time
	if raw := q.Get("to"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		to = d
	} else {
		latest, err := h.warehouse.GetLatestPriceDate(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if latest == nil {
			respondJSON(w, http.StatusOK, []models.PriceFact{})
			return
		}
		to = *latest
	}

	from := to.AddDate(0, 0, -defaultHistoryLimit)
	if raw := q.Get("from"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		from = d
	}
	if from.After(to) {
		http.Error(w, "from must not be after to", http.StatusBadRequest)
		return
	}

	facts, err := h.warehouse.GetPriceHistory(r.Context(), symbol, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if facts == nil {
		facts = []models.PriceFact{}
	}

	respondJSON(w, http.StatusOK, facts)
}

// GetAttributeHistory handles GET /stocks/{symbol}/attributes?limit=N
func (h *Handler) GetAttributeHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	attrs, err := h.warehouse.GetAttributeHistory(r.Context(), symbol, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if attrs == nil {
		attrs = []*models.PriceAttributes{}
	}

	respondJSON(w, http.StatusOK, attrs)
}

// TriggerRun handles POST /runs/{date}
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		http.Error(w, "runs are disabled", http.StatusServiceUnavailable)
		return
	}

	date, err := models.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.runner.Run(r.Context(), date)
	switch {
	case errors.Is(err, runlock.ErrLocked):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, bronze.ErrNoPriceData):
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	case err != nil:
		h.log.WithError(err).WithField("date", date.Format(models.DateLayout)).Error("Run request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.warehouse.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return time.Time{}, false
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return time.Time{}, false
	}
	return date, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
