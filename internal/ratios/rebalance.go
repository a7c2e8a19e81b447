package ratios

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Change describes how far the target moved from its default
type Change struct {
	Item  Item    `json:"item"`
	Base  float64 `json:"base"`
	Value float64 `json:"value"`
	Delta float64 `json:"delta"`
}

// String renders the change the way the dashboard caption shows it
func (c Change) String() string {
	return fmt.Sprintf("%+.1f%%p change (base: %g%%)", c.Delta, c.Base)
}

// Rebalance sets target to newValue and moves every other item the opposite
// way by an equal share of the change. Siblings are floored at zero with no
// ceiling, and the result is not renormalised after clamping, so the total
// can drift away from the defaults' total when a sibling hits zero.
func Rebalance(defaults RatioSet, target Item, newValue float64) (RatioSet, error) {
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown item %q", ErrInvalidArgument, target)
	}
	if err := CheckPercentage(string(target), newValue); err != nil {
		return nil, err
	}

	delta := newValue - defaults[target]
	reduction := round2(delta / float64(len(items)-1))

	out := make(RatioSet, len(items))
	for _, it := range items {
		if it == target {
			out[it] = newValue
			continue
		}
		out[it] = math.Max(0.0, round2(defaults[it]-reduction))
	}
	return out, nil
}

// ChangeOf reports the caption data for moving target to newValue
func ChangeOf(defaults RatioSet, target Item, newValue float64) (Change, error) {
	base, ok := defaults[target]
	if !ok {
		return Change{}, fmt.Errorf("%w: unknown item %q", ErrInvalidArgument, target)
	}
	return Change{Item: target, Base: base, Value: newValue, Delta: newValue - base}, nil
}

// round2 rounds half away from zero to two decimal places
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
