// Package model holds the pre-fit inference pipeline that maps a feature
// vector to a single prediction: polynomial feature expansion, feature
// scaling and a gradient-boosted tree regressor. The stages are fit offline
// and loaded read-only; nothing in this package trains or mutates them.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrArtifactLoad wraps every failure to read, decode or validate an artifact
var ErrArtifactLoad = errors.New("model artifact load failed")

// Transformer is a pre-fit stage mapping one row to another
type Transformer interface {
	Transform(x []float64) ([]float64, error)
	InputWidth() int
	OutputWidth() int
}

// Regressor is a pre-fit model producing a single value per row
type Regressor interface {
	Predict(x []float64) (float64, error)
	InputWidth() int
}

// Artifact is the three-stage pipeline loaded for a session.
// It is never modified after construction.
type Artifact struct {
	ID       string            `json:"id"`
	Source   string            `json:"source"`
	LoadedAt time.Time         `json:"loaded_at"`
	Metadata map[string]string `json:"metadata,omitempty"`

	poly      Transformer
	scaler    Transformer
	regressor Regressor
}

// NewArtifact assembles a pipeline and checks its stages line up for rows of inputWidth columns
func NewArtifact(source string, inputWidth int, poly, scaler Transformer, regressor Regressor) (*Artifact, error) {
	if poly == nil || scaler == nil || regressor == nil {
		return nil, fmt.Errorf("%w: %s: all three pipeline stages are required", ErrArtifactLoad, source)
	}

	a := &Artifact{
		ID:        uuid.New().String(),
		Source:    source,
		LoadedAt:  time.Now().UTC(),
		poly:      poly,
		scaler:    scaler,
		regressor: regressor,
	}
	if err := a.validate(inputWidth); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactLoad, source, err)
	}
	return a, nil
}

// withMetadata returns a copy carrying bundle metadata
func (a *Artifact) withMetadata(meta map[string]string) *Artifact {
	cp := *a
	cp.Metadata = meta
	return &cp
}

func (a *Artifact) validate(inputWidth int) error {
	if a.poly.InputWidth() != inputWidth {
		return fmt.Errorf("polynomial stage expects %d inputs, pipeline feeds %d", a.poly.InputWidth(), inputWidth)
	}
	if a.scaler.InputWidth() != a.poly.OutputWidth() {
		return fmt.Errorf("scaler expects %d columns, polynomial stage produces %d", a.scaler.InputWidth(), a.poly.OutputWidth())
	}
	if a.regressor.InputWidth() > a.scaler.OutputWidth() {
		return fmt.Errorf("regressor reads %d columns, scaler produces %d", a.regressor.InputWidth(), a.scaler.OutputWidth())
	}
	return nil
}

// InputWidth is the number of raw columns the pipeline accepts
func (a *Artifact) InputWidth() int {
	return a.poly.InputWidth()
}

// Predict runs x through expansion, scaling and regression in that order
func (a *Artifact) Predict(x []float64) (float64, error) {
	expanded, err := a.poly.Transform(x)
	if err != nil {
		return 0, fmt.Errorf("polynomial features: %w", err)
	}
	scaled, err := a.scaler.Transform(expanded)
	if err != nil {
		return 0, fmt.Errorf("scaler: %w", err)
	}
	y, err := a.regressor.Predict(scaled)
	if err != nil {
		return 0, fmt.Errorf("regressor: %w", err)
	}
	return y, nil
}

// Info returns a summary for the info endpoint
func (a *Artifact) Info() map[string]interface{} {
	return map[string]interface{}{
		"id":             a.ID,
		"source":         a.Source,
		"loaded_at":      a.LoadedAt.Format(time.RFC3339),
		"input_width":    a.poly.InputWidth(),
		"expanded_width": a.poly.OutputWidth(),
		"metadata":       a.Metadata,
	}
}
