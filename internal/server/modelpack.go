package server

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kartoza/roa-simulator/internal/config"
	"github.com/kartoza/roa-simulator/internal/httputil"
	"github.com/kartoza/roa-simulator/internal/model"
	"github.com/kartoza/roa-simulator/internal/roa"
)

// modelpackManifest describes the contents of a model pack zip
type modelpackManifest struct {
	Version     string `json:"version"`
	Description string `json:"description"`
	Trained     string `json:"trained"`
}

// handleModelpackStatus reports the installed model pack and the loaded artifact
func (s *Server) handleModelpackStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"installed": false,
		"artifact":  s.ArtifactInfo(),
	}

	settings, err := config.LoadSettings()
	if err != nil {
		status["error"] = err.Error()
		httputil.RespondJSON(w, http.StatusOK, status)
		return
	}
	if settings.ModelPackPath == "" {
		httputil.RespondJSON(w, http.StatusOK, status)
		return
	}

	if _, err := os.Stat(settings.ModelPackPath); err != nil {
		status["error"] = "model pack path no longer exists"
		httputil.RespondJSON(w, http.StatusOK, status)
		return
	}

	manifest := readManifest(settings.ModelPackPath)
	status["installed"] = true
	status["path"] = settings.ModelPackPath
	status["version"] = manifest.Version
	status["description"] = manifest.Description
	httputil.RespondJSON(w, http.StatusOK, status)
}

// handleModelpackInstall extracts a model pack zip, loads it and registers it
func (s *Server) handleModelpackInstall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		httputil.RespondError(w, http.StatusBadRequest, "path is required")
		return
	}

	if _, err := os.Stat(req.Path); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("file not found: %s", req.Path))
		return
	}
	if !strings.HasSuffix(strings.ToLower(req.Path), ".zip") {
		httputil.RespondError(w, http.StatusBadRequest, "file must be a .zip archive")
		return
	}

	storeDir, err := config.DataStoreDir()
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not determine data directory: %v", err))
		return
	}
	extractDir := filepath.Join(storeDir, "modelpacks")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not create directory: %v", err))
		return
	}

	// Unpack and validate beside the installed packs; the installed
	// directory is only replaced once the new artifact has loaded
	stagingDir, err := extractModelpack(req.Path, extractDir)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("extraction failed: %v", err))
		return
	}
	defer os.RemoveAll(stagingDir)

	stagedArtifact, err := findArtifact(stagingDir)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid model pack: %v", err))
		return
	}
	if _, err := model.Load(stagedArtifact, roa.FeatureWidth); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid model pack: %v", err))
		return
	}
	rel, err := filepath.Rel(stagingDir, stagedArtifact)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	packDir := filepath.Join(extractDir, packName(req.Path))
	if err := replacePackDir(stagingDir, packDir); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not install model pack: %v", err))
		return
	}

	artifactPath := filepath.Join(packDir, rel)
	if err := s.loadModel(artifactPath); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	settings, _ := config.LoadSettings()
	settings.ModelPackPath = artifactPath
	if err := config.SaveSettings(settings); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("could not save settings: %v", err))
		return
	}

	s.logger.Info().Str("path", artifactPath).Msg("Model pack installed")
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"installed": true,
		"path":      artifactPath,
		"artifact":  s.ArtifactInfo(),
	})
}

// readManifest reads manifest.json beside the artifact or one level up
func readManifest(path string) modelpackManifest {
	var manifest modelpackManifest
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}
	for _, d := range []string{dir, filepath.Dir(dir)} {
		if data, err := os.ReadFile(filepath.Join(d, "manifest.json")); err == nil {
			json.Unmarshal(data, &manifest)
			break
		}
	}
	return manifest
}

// findArtifact locates a loadable artifact in packDir or one level below it:
// a directory holding the three JSON documents, or a bundle file.
func findArtifact(packDir string) (string, error) {
	candidates := []string{packDir}
	entries, err := os.ReadDir(packDir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() {
			candidates = append(candidates, filepath.Join(packDir, e.Name()))
		}
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, model.PolyFile)); err == nil {
			return dir, nil
		}
		for _, pattern := range []string{"*.db", "*.sqlite"} {
			matches, _ := filepath.Glob(filepath.Join(dir, pattern))
			if len(matches) > 0 {
				return matches[0], nil
			}
		}
	}
	return "", fmt.Errorf("no %s or bundle file found", model.PolyFile)
}

// packName is the directory an archive is installed under
func packName(zipPath string) string {
	return strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
}

// replacePackDir moves a validated staging directory over packDir, putting
// the previous pack back if the move fails
func replacePackDir(stagingDir, packDir string) error {
	backup := packDir + ".previous"
	os.RemoveAll(backup)

	hadPrevious := false
	if _, err := os.Stat(packDir); err == nil {
		if err := os.Rename(packDir, backup); err != nil {
			return err
		}
		hadPrevious = true
	}

	if err := os.Rename(stagingDir, packDir); err != nil {
		if hadPrevious {
			os.Rename(backup, packDir)
		}
		return err
	}
	os.RemoveAll(backup)
	return nil
}

// extractModelpack unzips a model pack archive into a new staging directory
// under targetDir and returns that directory.
func extractModelpack(zipPath, targetDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("could not open zip: %w", err)
	}
	defer r.Close()

	if len(r.File) == 0 {
		return "", fmt.Errorf("empty zip archive")
	}

	stagingDir, err := os.MkdirTemp(targetDir, ".staging-"+packName(zipPath)+"-")
	if err != nil {
		return "", fmt.Errorf("could not create staging directory: %w", err)
	}

	for _, f := range r.File {
		// Sanitize path to prevent zip slip
		destPath := filepath.Join(stagingDir, f.Name)
		if !strings.HasPrefix(destPath, filepath.Clean(stagingDir)+string(os.PathSeparator)) {
			os.RemoveAll(stagingDir)
			return "", fmt.Errorf("illegal file path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(destPath, 0o755)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			os.RemoveAll(stagingDir)
			return "", fmt.Errorf("could not create directory: %w", err)
		}
		if err := extractFile(f, destPath); err != nil {
			os.RemoveAll(stagingDir)
			return "", err
		}
	}

	return stagingDir, nil
}

func extractFile(f *zip.File, destPath string) error {
	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer outFile.Close()

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("could not open zip entry: %w", err)
	}
	defer rc.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return fmt.Errorf("could not extract file: %w", err)
	}
	return nil
}
