package ratios

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidArgument is returned for unknown items and out-of-range percentages
var ErrInvalidArgument = errors.New("invalid argument")

// Item identifies one of the adjustable non-interest income components
type Item string

const (
	ItemFeeIncome          Item = "fee_income"
	ItemFXGains            Item = "fx_gains"
	ItemTrustIncome        Item = "trust_income"
	ItemSecuritiesGainLoss Item = "securities_gain_loss"
)

var items = []Item{
	ItemFeeIncome,
	ItemFXGains,
	ItemTrustIncome,
	ItemSecuritiesGainLoss,
}

var labels = map[Item]string{
	ItemFeeIncome:          "Fee Income",
	ItemFXGains:            "FX Gains",
	ItemTrustIncome:        "Trust Income",
	ItemSecuritiesGainLoss: "Securities Gains/Losses",
}

// Items returns the adjustable items in display order
func Items() []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Label returns the human readable name of the item
func (i Item) Label() string {
	if l, ok := labels[i]; ok {
		return l
	}
	return string(i)
}

// Valid reports whether the item belongs to the enumeration
func (i Item) Valid() bool {
	_, ok := labels[i]
	return ok
}

// ParseItem accepts either the item key or its label (case-insensitive)
func ParseItem(s string) (Item, error) {
	s = strings.TrimSpace(s)
	for _, it := range items {
		if strings.EqualFold(s, string(it)) || strings.EqualFold(s, it.Label()) {
			return it, nil
		}
	}
	return "", fmt.Errorf("%w: unknown item %q", ErrInvalidArgument, s)
}

// RatioSet maps every adjustable item to a percentage
type RatioSet map[Item]float64

// Row is one entry of a RatioSet in display order
type Row struct {
	Item  Item    `json:"item"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DefaultRatios returns the reference mix both dashboard pages start from
func DefaultRatios() RatioSet {
	return RatioSet{
		ItemFeeIncome:          41.0,
		ItemFXGains:            15.0,
		ItemTrustIncome:        6.0,
		ItemSecuritiesGainLoss: 38.0,
	}
}

// Validate checks that exactly the enumerated items are present, each a percentage
func (rs RatioSet) Validate() error {
	if len(rs) != len(items) {
		return fmt.Errorf("%w: ratio set has %d items, want %d", ErrInvalidArgument, len(rs), len(items))
	}
	for _, it := range items {
		v, ok := rs[it]
		if !ok {
			return fmt.Errorf("%w: ratio set is missing %s", ErrInvalidArgument, it)
		}
		if err := CheckPercentage(string(it), v); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent copy
func (rs RatioSet) Clone() RatioSet {
	out := make(RatioSet, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}

// Sum adds up all values; the total is not required to be 100
func (rs RatioSet) Sum() float64 {
	var total float64
	for _, it := range items {
		total += rs[it]
	}
	return total
}

// Rows returns the set in enumeration order for tables and charts
func (rs RatioSet) Rows() []Row {
	rows := make([]Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, Row{Item: it, Label: it.Label(), Value: rs[it]})
	}
	return rows
}

// CheckPercentage rejects NaN, infinities and values outside [0, 100]
func CheckPercentage(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return fmt.Errorf("%w: %s must be within [0, 100], got %v", ErrInvalidArgument, name, v)
	}
	return nil
}
