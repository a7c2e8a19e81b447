// Package roa predicts Return on Assets for a bank income mix and reports
// how far a scenario moves it from a page's fixed baseline.
package roa

import (
	"errors"
	"fmt"

	"github.com/kartoza/roa-simulator/internal/ratios"
)

var (
	// ErrInvalidArgument is the ratios package's error, re-exported for callers of this package
	ErrInvalidArgument = ratios.ErrInvalidArgument
	// ErrInvalidInput is returned when a malformed feature vector reaches the pipeline
	ErrInvalidInput = errors.New("invalid model input")
)

// FeatureWidth is the number of raw columns the pipeline was fit on
const FeatureWidth = 6

// ScalarInputs are the ratios set independently of the income mix
type ScalarInputs struct {
	InterestRatio     float64 `json:"interest_ratio"`
	AdminExpenseRatio float64 `json:"admin_ratio"`
}

// Validate checks both values are percentages
func (s ScalarInputs) Validate() error {
	if err := ratios.CheckPercentage("interest_ratio", s.InterestRatio); err != nil {
		return err
	}
	return ratios.CheckPercentage("admin_ratio", s.AdminExpenseRatio)
}

// Scenario is everything the pipeline needs for one prediction
type Scenario struct {
	Scalars ScalarInputs    `json:"scalars"`
	Ratios  ratios.RatioSet `json:"ratios"`
}

// Page names one of the two dashboard views; each has its own baseline
type Page string

const (
	PageSimulator   Page = "simulator"
	PageSensitivity Page = "sensitivity"
)

// The two views were built independently and use different scalar inputs
// for their reference scenario. Both are kept as they are.
var (
	SimulatorScalars   = ScalarInputs{InterestRatio: 90.8, AdminExpenseRatio: 18.7}
	SensitivityScalars = ScalarInputs{InterestRatio: 60.0, AdminExpenseRatio: 20.0}
)

// Pages returns both views
func Pages() []Page {
	return []Page{PageSimulator, PageSensitivity}
}

// BaselineFor returns the fixed reference scenario of a page
func BaselineFor(page Page) (Scenario, error) {
	switch page {
	case PageSimulator:
		return Scenario{Scalars: SimulatorScalars, Ratios: ratios.DefaultRatios()}, nil
	case PageSensitivity:
		return Scenario{Scalars: SensitivityScalars, Ratios: ratios.DefaultRatios()}, nil
	}
	return Scenario{}, fmt.Errorf("%w: unknown page %q", ErrInvalidArgument, page)
}

// Comparison is a prediction reported against a baseline
type Comparison struct {
	Predicted    float64 `json:"predicted"`
	Baseline     float64 `json:"baseline"`
	Delta        float64 `json:"delta"`
	PercentDelta float64 `json:"percent_delta"`
}

// Compare computes the absolute and relative change; a zero baseline gives a zero percentage
func Compare(predicted, baseline float64) Comparison {
	delta := predicted - baseline
	percent := 0.0
	if baseline != 0 {
		percent = delta / baseline * 100
	}
	return Comparison{
		Predicted:    predicted,
		Baseline:     baseline,
		Delta:        delta,
		PercentDelta: percent,
	}
}

// String formats the delta line shown under the prediction
func (c Comparison) String() string {
	return fmt.Sprintf("%+.4f (%+.1f%%)", c.Delta, c.PercentDelta)
}
