package server

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strata-ml/strata/envconfig"
	"github.com/strata-ml/strata/ml"
	"github.com/strata-ml/strata/model"
	_ "github.com/strata-ml/strata/model/models"
)

var errInvalidModelName = errors.New("invalid model name")

// loadedModel is a checkpoint with its weights resident in memory.
type loadedModel struct {
	model model.Model
	path  string
}

// validModelName reports whether name can be used as a checkpoint file
// base name. Anything that could escape the models directory is
// rejected.
func validModelName(name string) bool {
	if name == "" || name[0] == '.' {
		return false
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}

	return true
}

// ModelPath resolves a model name to its checkpoint path under the
// models directory. The file is not required to exist.
func ModelPath(name string) (string, error) {
	if !validModelName(name) {
		return "", fmt.Errorf("%w: %q", errInvalidModelName, name)
	}

	return filepath.Join(envconfig.Models(), name+".gguf"), nil
}

// loadModel returns the loaded model for name, reading the checkpoint on
// first use. Loaded weights stay resident until shutdown; the models in
// this family are small enough that eviction is not worth its
// complexity.
func (s *Server) loadModel(ctx context.Context, name string) (*loadedModel, error) {
	path, err := ModelPath(name)
	if err != nil {
		return nil, err
	}

	s.lmu.RLock()
	lm, ok := s.loaded[name]
	s.lmu.RUnlock()
	if ok {
		return lm, nil
	}

	// The write lock is held across the load so concurrent requests for
	// one model read the checkpoint once.
	s.lmu.Lock()
	defer s.lmu.Unlock()
	if lm, ok := s.loaded[name]; ok {
		return lm, nil
	}

	m, err := model.New(path, ml.BackendParams{NumThreads: int(envconfig.Threads())})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := m.Backend().Load(ctx, nil); err != nil {
		m.Backend().Close()
		return nil, fmt.Errorf("load model %q: %w", name, err)
	}

	slog.Info("model loaded", "model", name, "architecture", m.Config().Architecture(), "duration", time.Since(start))

	lm = &loadedModel{model: m, path: path}
	if s.loaded == nil {
		s.loaded = make(map[string]*loadedModel)
	}
	s.loaded[name] = lm

	return lm, nil
}

// unloadAll releases every loaded model.
func (s *Server) unloadAll() {
	s.lmu.Lock()
	defer s.lmu.Unlock()

	for name, lm := range s.loaded {
		lm.model.Backend().Close()
		delete(s.loaded, name)
	}
}

// handleLoadError translates a loadModel failure into an HTTP response.
func handleLoadError(c *gin.Context, name string, err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("model '%s' not found", name)})
	case errors.Is(err, errInvalidModelName), errors.Is(err, model.ErrUnsupportedModel):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type digestEntry struct {
	size  int64
	mtime time.Time
	sum   string
}

// modelDigest returns the sha256 digest of the checkpoint at path,
// memoized on file size and modification time so listing does not
// re-hash unchanged checkpoints.
func (s *Server) modelDigest(path string, info os.FileInfo) (string, error) {
	s.dmu.Lock()
	e, ok := s.digests[path]
	s.dmu.Unlock()
	if ok && e.size == info.Size() && e.mtime.Equal(info.ModTime()) {
		return e.sum, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	sum := fmt.Sprintf("sha256:%x", h.Sum(nil))

	s.dmu.Lock()
	if s.digests == nil {
		s.digests = make(map[string]digestEntry)
	}
	s.digests[path] = digestEntry{size: info.Size(), mtime: info.ModTime(), sum: sum}
	s.dmu.Unlock()

	return sum, nil
}

// pruneStaleDownloads removes partial files left behind by interrupted
// pulls.
func pruneStaleDownloads(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*-partial"))
	if err != nil {
		return err
	}

	for _, match := range matches {
		slog.Debug("pruning incomplete download", "file", match)
		if err := os.Remove(match); err != nil {
			return err
		}
	}

	return nil
}
