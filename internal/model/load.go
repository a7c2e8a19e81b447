package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// File names of the three artifacts inside a model directory
const (
	PolyFile      = "poly_features.json"
	ScalerFile    = "scaler.json"
	RegressorFile = "xgb_roa_model.json"
)

// Load reads an artifact from a directory of JSON files or a SQLite bundle
func Load(path string, inputWidth int) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}
	if info.IsDir() {
		return LoadDir(path, inputWidth)
	}
	return LoadBundle(path, inputWidth)
}

// LoadDir reads the three artifact documents from dir
func LoadDir(dir string, inputWidth int) (*Artifact, error) {
	read := func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
		}
		return data, nil
	}

	polyData, err := read(PolyFile)
	if err != nil {
		return nil, err
	}
	scalerData, err := read(ScalerFile)
	if err != nil {
		return nil, err
	}
	regressorData, err := read(RegressorFile)
	if err != nil {
		return nil, err
	}

	a, err := decodeArtifact(dir, inputWidth, polyData, scalerData, regressorData)
	if err != nil {
		return nil, err
	}

	log.Info().Str("source", dir).Str("artifact_id", a.ID).Msg("Loaded model artifacts")
	return a, nil
}

// decodeArtifact parses the three documents and assembles the pipeline
func decodeArtifact(source string, inputWidth int, polyData, scalerData, regressorData []byte) (*Artifact, error) {
	poly, err := DecodePolynomialFeatures(polyData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactLoad, PolyFile, err)
	}
	scaler, err := DecodeStandardScaler(scalerData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactLoad, ScalerFile, err)
	}
	regressor, err := DecodeTreeEnsemble(regressorData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactLoad, RegressorFile, err)
	}
	return NewArtifact(source, inputWidth, poly, scaler, regressor)
}
