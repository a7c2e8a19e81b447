package roa

import (
	"fmt"
	"math"
	"reflect"

	"github.com/kartoza/roa-simulator/internal/ratios"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Pipeline is the loaded model: feature expansion, scaling and regression
type Pipeline interface {
	Predict(x []float64) (float64, error)
	InputWidth() int
}

// Predictor maps scenarios to predicted ROA. It holds no mutable state,
// so one instance can serve concurrent requests.
type Predictor struct {
	pipeline  Pipeline
	baselines map[Page]float64
	logger    zerolog.Logger
}

// Simulation is the result of one adjustment on the simulator page
type Simulation struct {
	Scalars ScalarInputs    `json:"scalars"`
	Change  ratios.Change   `json:"change"`
	Ratios  ratios.RatioSet `json:"ratios"`
	Comparison
}

// NewPredictor wraps a loaded pipeline and evaluates both page baselines once
func NewPredictor(p Pipeline) (*Predictor, error) {
	if isNilPipeline(p) {
		return nil, fmt.Errorf("pipeline is required")
	}
	if p.InputWidth() != FeatureWidth {
		return nil, fmt.Errorf("%w: pipeline expects %d columns, want %d", ErrInvalidInput, p.InputWidth(), FeatureWidth)
	}

	pr := &Predictor{
		pipeline:  p,
		baselines: make(map[Page]float64, 2),
		logger:    log.With().Str("component", "predictor").Logger(),
	}
	for _, page := range Pages() {
		base, err := BaselineFor(page)
		if err != nil {
			return nil, err
		}
		v, err := pr.Predict(base.Scalars, base.Ratios)
		if err != nil {
			return nil, fmt.Errorf("baseline for %s: %w", page, err)
		}
		pr.baselines[page] = v
		pr.logger.Debug().Str("page", string(page)).Float64("roa", v).Msg("Baseline evaluated")
	}
	return pr, nil
}

// isNilPipeline also catches a nil pointer stored in the interface
func isNilPipeline(p Pipeline) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// FeatureVector lays the scenario out in the column order the pipeline was
// fit on: interest, fee, FX, securities, trust, admin, each as a fraction.
func FeatureVector(scalars ScalarInputs, rs ratios.RatioSet) ([]float64, error) {
	if err := scalars.Validate(); err != nil {
		return nil, err
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return []float64{
		scalars.InterestRatio / 100,
		rs[ratios.ItemFeeIncome] / 100,
		rs[ratios.ItemFXGains] / 100,
		rs[ratios.ItemSecuritiesGainLoss] / 100,
		rs[ratios.ItemTrustIncome] / 100,
		scalars.AdminExpenseRatio / 100,
	}, nil
}

// PredictVector runs a raw feature vector through the pipeline
func (p *Predictor) PredictVector(x []float64) (float64, error) {
	if len(x) != FeatureWidth {
		return 0, fmt.Errorf("%w: expected %d features, got %d", ErrInvalidInput, FeatureWidth, len(x))
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: feature %d is not a finite number", ErrInvalidInput, i)
		}
	}

	y, err := p.pipeline.Predict(x)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return y, nil
}

// Predict returns the model's ROA for a scenario
func (p *Predictor) Predict(scalars ScalarInputs, rs ratios.RatioSet) (float64, error) {
	x, err := FeatureVector(scalars, rs)
	if err != nil {
		return 0, err
	}
	return p.PredictVector(x)
}

// PredictBaseline returns the page's reference prediction
func (p *Predictor) PredictBaseline(page Page) (float64, error) {
	v, ok := p.baselines[page]
	if !ok {
		return 0, fmt.Errorf("%w: unknown page %q", ErrInvalidArgument, page)
	}
	return v, nil
}

// Simulate rebalances the default mix around target, predicts, and compares
// against the simulator page's baseline
func (p *Predictor) Simulate(scalars ScalarInputs, target ratios.Item, newValue float64) (*Simulation, error) {
	if err := scalars.Validate(); err != nil {
		return nil, err
	}

	defaults := ratios.DefaultRatios()
	rs, err := ratios.Rebalance(defaults, target, newValue)
	if err != nil {
		return nil, err
	}
	change, err := ratios.ChangeOf(defaults, target, newValue)
	if err != nil {
		return nil, err
	}

	predicted, err := p.Predict(scalars, rs)
	if err != nil {
		return nil, err
	}
	baseline, err := p.PredictBaseline(PageSimulator)
	if err != nil {
		return nil, err
	}

	return &Simulation{
		Scalars:    scalars,
		Change:     change,
		Ratios:     rs,
		Comparison: Compare(predicted, baseline),
	}, nil
}
