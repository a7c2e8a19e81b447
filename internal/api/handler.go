package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kartoza/roa-simulator/internal/config"
	"github.com/kartoza/roa-simulator/internal/httputil"
	"github.com/kartoza/roa-simulator/internal/models"
	"github.com/kartoza/roa-simulator/internal/ratios"
	"github.com/kartoza/roa-simulator/internal/roa"
	"github.com/rs/zerolog/log"
)

// ModelSource hands out the predictor for the currently loaded artifact
type ModelSource interface {
	Predictor() *roa.Predictor
	ArtifactInfo() map[string]interface{}
}

// Handler provides HTTP API endpoints
type Handler struct {
	source ModelSource
	cfg    config.Config
}

// NewHandler creates a new API handler
func NewHandler(source ModelSource, cfg config.Config) *Handler {
	return &Handler{
		source: source,
		cfg:    cfg,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Reference data
	r.HandleFunc("/items", h.handleItems).Methods("GET")
	r.HandleFunc("/baselines", h.handleBaselines).Methods("GET")

	// Simulator page
	r.HandleFunc("/simulate", h.handleSimulate).Methods("POST")

	// Sensitivity page
	r.HandleFunc("/sensitivity", h.handleSensitivity).Methods("GET")
	r.HandleFunc("/sensitivity/{item}", h.handleSensitivityItem).Methods("GET")
}

// predictor returns the loaded predictor or writes 503
func (h *Handler) predictor(w http.ResponseWriter) *roa.Predictor {
	var p *roa.Predictor
	if h.source != nil {
		p = h.source.Predictor()
	}
	if p == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "no model loaded")
	}
	return p
}

// respondErr maps the error taxonomy onto status codes
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ratios.ErrInvalidArgument), errors.Is(err, roa.ErrInvalidInput):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version":      h.cfg.Version,
		"model_loaded": h.source != nil && h.source.Predictor() != nil,
	}
	if h.source != nil {
		info["artifact"] = h.source.ArtifactInfo()
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleItems returns the adjustable items with their defaults
func (h *Handler) handleItems(w http.ResponseWriter, r *http.Request) {
	defaults := ratios.DefaultRatios()
	out := make([]models.ItemInfo, 0, len(defaults))
	for _, it := range ratios.Items() {
		out = append(out, models.ItemInfo{Item: it, Label: it.Label(), Default: defaults[it]})
	}
	httputil.RespondJSON(w, http.StatusOK, out)
}

// handleBaselines returns both pages' reference scenarios and predictions
func (h *Handler) handleBaselines(w http.ResponseWriter, r *http.Request) {
	p := h.predictor(w)
	if p == nil {
		return
	}

	out := make([]models.BaselineInfo, 0, 2)
	for _, page := range roa.Pages() {
		base, err := roa.BaselineFor(page)
		if err != nil {
			respondErr(w, err)
			return
		}
		v, err := p.PredictBaseline(page)
		if err != nil {
			respondErr(w, err)
			return
		}
		out = append(out, models.BaselineInfo{
			Page:      page,
			Scalars:   base.Scalars,
			Rows:      base.Ratios.Rows(),
			Predicted: v,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, out)
}

// handleSimulate rebalances around the adjusted item and predicts ROA
func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req models.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := ratios.ParseItem(req.Item)
	if err != nil {
		respondErr(w, err)
		return
	}

	p := h.predictor(w)
	if p == nil {
		return
	}

	scalars := roa.ScalarInputs{InterestRatio: req.InterestRatio, AdminExpenseRatio: req.AdminRatio}
	sim, err := p.Simulate(scalars, item, req.Value)
	if err != nil {
		respondErr(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.NewSimulateResponse(sim))
}

// pageParam reads ?page=, defaulting to the sensitivity page
func pageParam(r *http.Request) roa.Page {
	if v := r.URL.Query().Get("page"); v != "" {
		return roa.Page(v)
	}
	return roa.PageSensitivity
}

// handleSensitivity returns a curve for every item
func (h *Handler) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	p := h.predictor(w)
	if p == nil {
		return
	}

	page := pageParam(r)
	base, err := roa.BaselineFor(page)
	if err != nil {
		respondErr(w, err)
		return
	}
	curves, err := p.SensitivityCurves(page)
	if err != nil {
		respondErr(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.SensitivityResponse{
		Page:    page,
		Scalars: base.Scalars,
		Curves:  curves,
	})
}

// handleSensitivityItem returns the curve of a single item
func (h *Handler) handleSensitivityItem(w http.ResponseWriter, r *http.Request) {
	item, err := ratios.ParseItem(mux.Vars(r)["item"])
	if err != nil {
		respondErr(w, err)
		return
	}

	p := h.predictor(w)
	if p == nil {
		return
	}

	base, err := roa.BaselineFor(pageParam(r))
	if err != nil {
		respondErr(w, err)
		return
	}
	curve, err := p.Curve(item, base.Scalars)
	if err != nil {
		respondErr(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, curve)
}
