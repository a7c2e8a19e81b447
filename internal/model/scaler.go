package model

import (
	"encoding/json"
	"fmt"
)

// StandardScaler centres and scales each column with pre-fit statistics
type StandardScaler struct {
	mean     []float64
	scale    []float64
	withMean bool
	withStd  bool
	width    int
}

type scalerDoc struct {
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
	WithMean *bool     `json:"with_mean"`
	WithStd  *bool     `json:"with_std"`
}

// NewStandardScaler builds a scaler; a nil mean or scale disables that step
func NewStandardScaler(mean, scale []float64) (*StandardScaler, error) {
	s := &StandardScaler{
		mean:     mean,
		scale:    scale,
		withMean: mean != nil,
		withStd:  scale != nil,
	}

	switch {
	case s.withMean && s.withStd && len(mean) != len(scale):
		return nil, fmt.Errorf("mean has %d columns but scale has %d", len(mean), len(scale))
	case s.withMean:
		s.width = len(mean)
	case s.withStd:
		s.width = len(scale)
	default:
		return nil, fmt.Errorf("scaler needs a mean or a scale")
	}
	if s.width == 0 {
		return nil, fmt.Errorf("scaler has no columns")
	}
	return s, nil
}

// DecodeStandardScaler reads a fitted scaler from JSON
func DecodeStandardScaler(data []byte) (*StandardScaler, error) {
	var doc scalerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scaler: %w", err)
	}

	mean, scale := doc.Mean, doc.Scale
	if doc.WithMean != nil && !*doc.WithMean {
		mean = nil
	}
	if doc.WithStd != nil && !*doc.WithStd {
		scale = nil
	}
	return NewStandardScaler(mean, scale)
}

// InputWidth returns the number of columns the scaler was fit on
func (s *StandardScaler) InputWidth() int { return s.width }

// OutputWidth equals InputWidth
func (s *StandardScaler) OutputWidth() int { return s.width }

// Transform scales a single row
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != s.width {
		return nil, fmt.Errorf("expected %d columns, got %d", s.width, len(x))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		if s.withMean {
			v -= s.mean[i]
		}
		if s.withStd && s.scale[i] != 0 {
			v /= s.scale[i]
		}
		out[i] = v
	}
	return out, nil
}
