package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// PolynomialFeatures expands a row into monomials of its columns.
// Each row of powers holds the exponent of every input column for one
// output column, the same layout as scikit-learn's powers_ attribute.
type PolynomialFeatures struct {
	nIn    int
	powers [][]int
}

// polynomialDoc is the on-disk form of a fitted polynomial transformer
type polynomialDoc struct {
	NFeaturesIn     int     `json:"n_features_in"`
	Degree          int     `json:"degree"`
	InteractionOnly bool    `json:"interaction_only"`
	IncludeBias     *bool   `json:"include_bias"`
	Powers          [][]int `json:"powers"`
}

// NewPolynomialFeatures generates the exponent table for all monomials up to
// degree, in scikit-learn's column order: bias, then degree 1, 2, ... with
// each degree enumerated as sorted index combinations.
func NewPolynomialFeatures(nIn, degree int, interactionOnly, includeBias bool) (*PolynomialFeatures, error) {
	if nIn <= 0 {
		return nil, fmt.Errorf("n_features_in must be positive, got %d", nIn)
	}
	if degree < 1 {
		return nil, fmt.Errorf("degree must be at least 1, got %d", degree)
	}

	var powers [][]int
	start := 1
	if includeBias {
		start = 0
	}
	for d := start; d <= degree; d++ {
		combinations(nIn, d, interactionOnly, func(idx []int) {
			row := make([]int, nIn)
			for _, i := range idx {
				row[i]++
			}
			powers = append(powers, row)
		})
	}

	return &PolynomialFeatures{nIn: nIn, powers: powers}, nil
}

// NewPolynomialFeaturesFromPowers uses an explicit exponent table
func NewPolynomialFeaturesFromPowers(powers [][]int) (*PolynomialFeatures, error) {
	if len(powers) == 0 {
		return nil, fmt.Errorf("powers table is empty")
	}
	nIn := len(powers[0])
	if nIn == 0 {
		return nil, fmt.Errorf("powers rows must not be empty")
	}
	for i, row := range powers {
		if len(row) != nIn {
			return nil, fmt.Errorf("powers row %d has %d columns, want %d", i, len(row), nIn)
		}
		for _, p := range row {
			if p < 0 {
				return nil, fmt.Errorf("powers row %d has negative exponent %d", i, p)
			}
		}
	}
	return &PolynomialFeatures{nIn: nIn, powers: powers}, nil
}

// DecodePolynomialFeatures reads a fitted transformer from JSON
func DecodePolynomialFeatures(data []byte) (*PolynomialFeatures, error) {
	var doc polynomialDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse polynomial features: %w", err)
	}

	if len(doc.Powers) > 0 {
		pf, err := NewPolynomialFeaturesFromPowers(doc.Powers)
		if err != nil {
			return nil, err
		}
		if doc.NFeaturesIn != 0 && doc.NFeaturesIn != pf.nIn {
			return nil, fmt.Errorf("n_features_in is %d but powers have %d columns", doc.NFeaturesIn, pf.nIn)
		}
		return pf, nil
	}

	includeBias := true
	if doc.IncludeBias != nil {
		includeBias = *doc.IncludeBias
	}
	return NewPolynomialFeatures(doc.NFeaturesIn, doc.Degree, doc.InteractionOnly, includeBias)
}

// InputWidth returns the number of raw columns
func (p *PolynomialFeatures) InputWidth() int { return p.nIn }

// OutputWidth returns the number of expanded columns
func (p *PolynomialFeatures) OutputWidth() int { return len(p.powers) }

// Transform expands a single row
func (p *PolynomialFeatures) Transform(x []float64) ([]float64, error) {
	if len(x) != p.nIn {
		return nil, fmt.Errorf("expected %d columns, got %d", p.nIn, len(x))
	}

	out := make([]float64, len(p.powers))
	for j, row := range p.powers {
		v := 1.0
		for i, e := range row {
			switch e {
			case 0:
			case 1:
				v *= x[i]
			default:
				v *= math.Pow(x[i], float64(e))
			}
		}
		out[j] = v
	}
	return out, nil
}

// combinations calls fn with every non-decreasing (or strictly increasing,
// when distinct is set) index tuple of length k over [0, n), in lexical order
func combinations(n, k int, distinct bool, fn func([]int)) {
	idx := make([]int, k)
	var rec func(pos, from int)
	rec = func(pos, from int) {
		if pos == k {
			fn(idx)
			return
		}
		for i := from; i < n; i++ {
			idx[pos] = i
			next := i
			if distinct {
				next = i + 1
			}
			rec(pos+1, next)
		}
	}
	rec(0, 0)
}
