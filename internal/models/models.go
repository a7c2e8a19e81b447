package models

import (
	"github.com/kartoza/roa-simulator/internal/ratios"
	"github.com/kartoza/roa-simulator/internal/roa"
)

// SimulateRequest is one adjustment made on the simulator page
type SimulateRequest struct {
	InterestRatio float64 `json:"interest_ratio"`
	AdminRatio    float64 `json:"admin_ratio"`
	Item          string  `json:"item"`
	Value         float64 `json:"value"`
}

// SimulateResponse is what the prediction panel, charts and table render
type SimulateResponse struct {
	Rows         []ratios.Row  `json:"rows"`
	Change       ratios.Change `json:"change"`
	ChangeText   string        `json:"change_text"`
	Predicted    float64       `json:"predicted"`
	Baseline     float64       `json:"baseline"`
	Delta        float64       `json:"delta"`
	PercentDelta float64       `json:"percent_delta"`
	DeltaText    string        `json:"delta_text"`
}

// ItemInfo describes one adjustable item
type ItemInfo struct {
	Item    ratios.Item `json:"item"`
	Label   string      `json:"label"`
	Default float64     `json:"default"`
}

// BaselineInfo is a page's fixed reference scenario and its prediction
type BaselineInfo struct {
	Page      roa.Page         `json:"page"`
	Scalars   roa.ScalarInputs `json:"scalars"`
	Rows      []ratios.Row     `json:"rows"`
	Predicted float64          `json:"predicted"`
}

// SensitivityResponse holds the curves of the sensitivity page
type SensitivityResponse struct {
	Page    roa.Page         `json:"page"`
	Scalars roa.ScalarInputs `json:"scalars"`
	Curves  []*roa.Curve     `json:"curves"`
}

// NewSimulateResponse flattens a simulation for the dashboard
func NewSimulateResponse(sim *roa.Simulation) SimulateResponse {
	return SimulateResponse{
		Rows:         sim.Ratios.Rows(),
		Change:       sim.Change,
		ChangeText:   sim.Change.String(),
		Predicted:    sim.Predicted,
		Baseline:     sim.Baseline,
		Delta:        sim.Delta,
		PercentDelta: sim.PercentDelta,
		DeltaText:    sim.Comparison.String(),
	}
}
