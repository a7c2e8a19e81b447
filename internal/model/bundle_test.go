package model

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// createTestBundle writes a model bundle holding the test pipeline
func createTestBundle(t *testing.T, dir string, withMetadata bool, skip string) string {
	t.Helper()

	path := filepath.Join(dir, "roa_model.bundle")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to create test DB: %v", err)
	}
	defer db.Close()

	statements := []string{
		`CREATE TABLE artifacts (name TEXT PRIMARY KEY, body TEXT)`,
	}
	if withMetadata {
		statements = append(statements,
			`CREATE TABLE metadata (name TEXT, value TEXT)`,
			`INSERT INTO metadata (name, value) VALUES ('version', '2025Q1')`,
			`INSERT INTO metadata (name, value) VALUES ('description', 'test pipeline')`,
		)
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to execute: %s: %v", stmt, err)
		}
	}

	docs := map[string]string{
		BundlePoly:      `{"n_features_in": 6, "degree": 2}`,
		BundleScaler:    string(identityScalerJSON(t, 28)),
		BundleRegressor: testRegressorJSON,
	}
	for name, body := range docs {
		if name == skip {
			continue
		}
		if _, err := db.Exec(`INSERT INTO artifacts (name, body) VALUES (?, ?)`, name, body); err != nil {
			t.Fatalf("Failed to insert %s: %v", name, err)
		}
	}

	return path
}

func TestLoadBundle(t *testing.T) {
	path := createTestBundle(t, t.TempDir(), true, "")

	a, err := Load(path, 6)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a.Source != path {
		t.Errorf("Expected source %s, got %s", path, a.Source)
	}
	if a.Metadata["version"] != "2025Q1" {
		t.Errorf("Expected version 2025Q1, got '%s'", a.Metadata["version"])
	}

	got, err := a.Predict([]float64{0.5, 0.5, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !approxEqual(got, 0.5-0.1-0.05) {
		t.Errorf("Expected 0.35, got %v", got)
	}
}

func TestLoadBundleWithoutMetadata(t *testing.T) {
	path := createTestBundle(t, t.TempDir(), false, "")

	a, err := LoadBundle(path, 6)
	if err != nil {
		t.Fatalf("LoadBundle failed: %v", err)
	}
	if len(a.Metadata) != 0 {
		t.Errorf("Expected no metadata, got %v", a.Metadata)
	}
}

func TestLoadBundleMissingArtifact(t *testing.T) {
	path := createTestBundle(t, t.TempDir(), false, BundleScaler)

	if _, err := LoadBundle(path, 6); !errors.Is(err, ErrArtifactLoad) {
		t.Errorf("Expected ErrArtifactLoad, got %v", err)
	}
}

func TestLoadBundleNotABundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to create DB: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE other (x INTEGER)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	db.Close()

	if _, err := LoadBundle(path, 6); !errors.Is(err, ErrArtifactLoad) {
		t.Errorf("Expected ErrArtifactLoad, got %v", err)
	}
}

func TestLoadBundleBadMetadataRow(t *testing.T) {
	path := createTestBundle(t, t.TempDir(), true, "")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to open bundle: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO metadata (name, value) VALUES ('trained', NULL)`); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if _, err := readMetadata(db); err == nil {
		t.Error("Expected a NULL metadata value to be reported")
	}
	db.Close()

	// The pipeline itself is intact, so the bundle still loads without metadata
	a, err := LoadBundle(path, 6)
	if err != nil {
		t.Fatalf("LoadBundle failed: %v", err)
	}
	if len(a.Metadata) != 0 {
		t.Errorf("Expected metadata to be dropped, got %v", a.Metadata)
	}
}
