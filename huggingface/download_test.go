package huggingface

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalNames(t *testing.T) {
	one := []Sibling{{Filename: "weights/model.gguf"}}
	assert.Equal(t, []string{"celeba-ae"}, localNames("celeba-ae", one))

	two := []Sibling{{Filename: "encoder.gguf"}, {Filename: "decoder.gguf"}}
	assert.Equal(t, []string{"celeba-ae-encoder", "celeba-ae-decoder"}, localNames("celeba-ae", two))
}

func TestPull(t *testing.T) {
	payload := strings.Repeat("w", 1<<10)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/acme/celeba-ae", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": "acme/celeba-ae", "siblings": [{"rfilename": "model.gguf", "size": %d}]}`, len(payload))
	})
	mux.HandleFunc("/acme/celeba-ae/resolve/main/model.gguf", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(WithEndpoint(srv.URL))

	var completed, total int64
	names, err := c.Pull(t.Context(), "acme/celeba-ae", "", dir, func(file string, n, size int64) {
		completed, total = n, size
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"celeba-ae"}, names)

	data, err := os.ReadFile(filepath.Join(dir, "celeba-ae.gguf"))
	require.NoError(t, err)
	assert.Len(t, data, len(payload))

	assert.Equal(t, int64(len(payload)), completed)
	assert.Equal(t, int64(len(payload)), total)

	partials, _ := filepath.Glob(filepath.Join(dir, "*-partial"))
	assert.Empty(t, partials)
}

func TestPullName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/acme/celeba-ae", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "acme/celeba-ae", "siblings": [{"rfilename": "model.gguf", "size": 4}]}`)
	})
	mux.HandleFunc("/acme/celeba-ae/resolve/main/model.gguf", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data")
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(WithEndpoint(srv.URL))

	names, err := c.Pull(t.Context(), "acme/celeba-ae", "faces", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"faces"}, names)
	assert.FileExists(t, filepath.Join(dir, "faces.gguf"))
}

func TestPullExisting(t *testing.T) {
	var downloads int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/acme/celeba-ae", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "acme/celeba-ae", "siblings": [{"rfilename": "model.gguf", "size": 4}]}`)
	})
	mux.HandleFunc("/acme/celeba-ae/resolve/main/model.gguf", func(w http.ResponseWriter, r *http.Request) {
		downloads++
		fmt.Fprint(w, "data")
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(WithEndpoint(srv.URL))

	_, err := c.Pull(t.Context(), "acme/celeba-ae", "", dir, nil)
	require.NoError(t, err)

	// a second pull finds the file and skips the download
	_, err = c.Pull(t.Context(), "acme/celeba-ae", "", dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, downloads)
}

func TestPullNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL))
	_, err := c.Pull(t.Context(), "acme/missing", "", t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestPullGatedWithoutToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/acme/gated", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "acme/gated", "gated": "manual", "siblings": [{"rfilename": "model.gguf"}]}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL), WithToken(""))
	_, err := c.Pull(t.Context(), "acme/gated", "", t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPullNoCheckpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/acme/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "acme/empty", "siblings": [{"rfilename": "README.md"}]}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL))
	_, err := c.Pull(t.Context(), "acme/empty", "", t.TempDir(), nil)
	assert.ErrorContains(t, err, "no checkpoints")
}

func TestDownloadResume(t *testing.T) {
	payload := "0123456789"
	var gotRange string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/acme/resume", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": "acme/resume", "siblings": [{"rfilename": "model.gguf", "size": %d}]}`, len(payload))
	})
	mux.HandleFunc("/acme/resume/resolve/main/model.gguf", func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")

		var offset int
		if _, err := fmt.Sscanf(gotRange, "bytes=%d-", &offset); err == nil && offset > 0 {
			w.WriteHeader(http.StatusPartialContent)
			fmt.Fprint(w, payload[offset:])
			return
		}
		fmt.Fprint(w, payload)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resume.gguf-partial"), []byte(payload[:4]), 0o644))

	c := NewClient(WithEndpoint(srv.URL))
	_, err := c.Pull(t.Context(), "acme/resume", "", dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "bytes=4-", gotRange)

	data, err := os.ReadFile(filepath.Join(dir, "resume.gguf"))
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}
