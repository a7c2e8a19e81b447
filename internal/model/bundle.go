package model

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Names of the rows in a bundle's artifacts table
const (
	BundlePoly      = "poly_features"
	BundleScaler    = "scaler"
	BundleRegressor = "regressor"
)

// LoadBundle reads the pipeline from a single read-only SQLite file with an
// artifacts(name, body) table and an optional metadata(name, value) table
func LoadBundle(path string, inputWidth int) (*Artifact, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: open bundle: %v", ErrArtifactLoad, err)
	}
	defer db.Close()

	// Verify it's a model bundle before reading
	if !hasTable(db, "artifacts") {
		return nil, fmt.Errorf("%w: %s is not a model bundle", ErrArtifactLoad, path)
	}

	docs := make(map[string][]byte, 3)
	rows, err := db.Query("SELECT name, body FROM artifacts")
	if err != nil {
		return nil, fmt.Errorf("%w: read artifacts: %v", ErrArtifactLoad, err)
	}
	for rows.Next() {
		var name string
		var body []byte
		if err := rows.Scan(&name, &body); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan artifact row: %v", ErrArtifactLoad, err)
		}
		docs[name] = body
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read artifacts: %v", ErrArtifactLoad, err)
	}

	for _, name := range []string{BundlePoly, BundleScaler, BundleRegressor} {
		if len(docs[name]) == 0 {
			return nil, fmt.Errorf("%w: bundle %s has no %q artifact", ErrArtifactLoad, path, name)
		}
	}

	a, err := decodeArtifact(path, inputWidth, docs[BundlePoly], docs[BundleScaler], docs[BundleRegressor])
	if err != nil {
		return nil, err
	}

	meta, err := readMetadata(db)
	if err != nil {
		log.Warn().Err(err).Str("bundle", path).Msg("Could not read bundle metadata")
	} else if len(meta) > 0 {
		a = a.withMetadata(meta)
	}

	log.Info().Str("source", path).Str("artifact_id", a.ID).Str("version", meta["version"]).Msg("Loaded model bundle")
	return a, nil
}

func hasTable(db *sql.DB, name string) bool {
	var count int
	err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?", name).Scan(&count)
	return err == nil && count > 0
}

// readMetadata returns name/value pairs; a bundle without the table has none
func readMetadata(db *sql.DB) (map[string]string, error) {
	if !hasTable(db, "metadata") {
		return nil, nil
	}

	rows, err := db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}
