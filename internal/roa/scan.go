package roa

import (
	"fmt"
	"iter"

	"github.com/kartoza/roa-simulator/internal/ratios"
)

// Sweep of the sensitivity view: -15 to +15 percentage points in 0.5 steps
const (
	ScanMin   = -15.0
	ScanStep  = 0.5
	ScanSteps = 61
)

// Point is one sample of a sensitivity curve
type Point struct {
	Diff  float64 `json:"diff"`
	Value float64 `json:"value"`
	ROA   float64 `json:"roa"`
}

// Domain is a y-axis range for plotting a curve
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Curve is the sensitivity of ROA to one item
type Curve struct {
	Item   ratios.Item `json:"item"`
	Label  string      `json:"label"`
	Base   float64     `json:"base"`
	Points []Point     `json:"points"`
	Domain Domain      `json:"domain"`
}

// ScanDiff returns the i-th offset of the sweep. Offsets are computed from the
// index so they carry no accumulated rounding error.
func ScanDiff(i int) float64 {
	return ScanMin + float64(i)*ScanStep
}

// Scan lazily sweeps target around its default, rebalancing the other items
// and predicting with the given scalars. Offsets that push target outside
// [0, 100] produce no point. The sequence can be ranged over repeatedly and
// stops after yielding the first error.
func (p *Predictor) Scan(target ratios.Item, scalars ScalarInputs) iter.Seq2[Point, error] {
	return func(yield func(Point, error) bool) {
		if !target.Valid() {
			yield(Point{}, fmt.Errorf("%w: unknown item %q", ErrInvalidArgument, target))
			return
		}
		if err := scalars.Validate(); err != nil {
			yield(Point{}, err)
			return
		}

		defaults := ratios.DefaultRatios()
		base := defaults[target]
		for i := 0; i < ScanSteps; i++ {
			diff := ScanDiff(i)
			newValue := base + diff
			if newValue < 0 || newValue > 100 {
				continue
			}

			rs, err := ratios.Rebalance(defaults, target, newValue)
			if err != nil {
				yield(Point{}, err)
				return
			}
			v, err := p.Predict(scalars, rs)
			if err != nil {
				yield(Point{}, err)
				return
			}
			if !yield(Point{Diff: diff, Value: newValue, ROA: v}, nil) {
				return
			}
		}
	}
}

// Curve collects the scan of one item into a plottable curve
func (p *Predictor) Curve(target ratios.Item, scalars ScalarInputs) (*Curve, error) {
	c := &Curve{
		Item:  target,
		Label: target.Label(),
		Base:  ratios.DefaultRatios()[target],
	}
	for pt, err := range p.Scan(target, scalars) {
		if err != nil {
			return nil, err
		}
		c.Points = append(c.Points, pt)
	}
	c.Domain = domainOf(c.Points)
	return c, nil
}

// SensitivityCurves scans every item with the page's baseline scalars
func (p *Predictor) SensitivityCurves(page Page) ([]*Curve, error) {
	base, err := BaselineFor(page)
	if err != nil {
		return nil, err
	}

	curves := make([]*Curve, 0, len(ratios.Items()))
	for _, it := range ratios.Items() {
		c, err := p.Curve(it, base.Scalars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", it, err)
		}
		curves = append(curves, c)
	}
	return curves, nil
}

// domainOf pads the ROA range by 5% of its span, or by 0.01 when the curve is flat
func domainOf(points []Point) Domain {
	if len(points) == 0 {
		return Domain{}
	}
	lo, hi := points[0].ROA, points[0].ROA
	for _, pt := range points[1:] {
		lo = min(lo, pt.ROA)
		hi = max(hi, pt.ROA)
	}
	margin := 0.01
	if hi-lo > 0 {
		margin = (hi - lo) * 0.05
	}
	return Domain{Min: lo - margin, Max: hi + margin}
}
