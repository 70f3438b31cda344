package huggingface

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxRetries = 3
	retryDelay = 2 * time.Second
)

// ProgressFunc is called as download bytes arrive. total is 0 when
// neither the hub nor the response reported a size.
type ProgressFunc func(file string, completed, total int64)

// Pull downloads every checkpoint in the repository modelID into dir.
// A repository with one checkpoint is stored under the repository
// name; with several, each file's stem is appended. name overrides the
// repository name when not empty. Pull returns the local model names
// it wrote.
func (c *Client) Pull(ctx context.Context, modelID, name, dir string, progress ProgressFunc) ([]string, error) {
	info, err := c.ModelInfo(ctx, modelID)
	if err != nil {
		return nil, err
	}

	checkpoints := info.Checkpoints()
	if len(checkpoints) == 0 {
		return nil, fmt.Errorf("%s has no checkpoints", modelID)
	}

	if info.IsGated() && c.token == "" {
		return nil, fmt.Errorf("%w: %s is gated, set HF_TOKEN", ErrUnauthorized, modelID)
	}

	if name == "" {
		_, name, _ = strings.Cut(modelID, "/")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	names := localNames(name, checkpoints)
	for i, ckpt := range checkpoints {
		dest := filepath.Join(dir, names[i]+".gguf")
		if err := c.download(ctx, modelID, ckpt, dest, progress); err != nil {
			return nil, fmt.Errorf("download %s: %w", ckpt.Filename, err)
		}
	}

	return names, nil
}

// localNames maps checkpoint files to flat model names under base.
func localNames(base string, checkpoints []Sibling) []string {
	names := make([]string, len(checkpoints))
	for i, c := range checkpoints {
		stem := strings.TrimSuffix(path.Base(c.Filename), ".gguf")
		if len(checkpoints) == 1 || stem == base {
			names[i] = base
		} else {
			names[i] = base + "-" + stem
		}
	}

	return names
}

// download fetches one checkpoint, retrying transient failures. An
// existing destination of the expected size is kept as is.
func (c *Client) download(ctx context.Context, modelID string, ckpt Sibling, dest string, progress ProgressFunc) error {
	if info, err := os.Stat(dest); err == nil && (ckpt.FileSize() == 0 || info.Size() == ckpt.FileSize()) {
		if progress != nil {
			progress(ckpt.Filename, info.Size(), info.Size())
		}

		return nil
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", c.endpoint, modelID, ckpt.Filename)

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		if err := c.downloadOnce(ctx, url, ckpt, dest, progress); err != nil {
			lastErr = err
			continue
		}

		return nil
	}

	return fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}

// downloadOnce streams the file into a "-partial" sidecar and renames
// it into place once complete. A leftover sidecar resumes through a
// Range request.
func (c *Client) downloadOnce(ctx context.Context, url string, ckpt Sibling, dest string, progress ProgressFunc) error {
	partial := dest + "-partial"

	var offset int64
	if info, err := os.Stat(partial); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && offset > 0 {
		// server ignored the range, start over
		offset = 0
	} else if err := statusError(resp, ckpt.Filename); err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if offset > 0 {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	f, err := os.OpenFile(partial, flags, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	total := ckpt.FileSize()
	if total == 0 && resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}

	pw := &progressWriter{file: ckpt.Filename, completed: offset, total: total, fn: progress}
	if _, err := io.Copy(io.MultiWriter(f, pw), resp.Body); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(partial, dest)
}

type progressWriter struct {
	file      string
	completed int64
	total     int64
	fn        ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.completed += int64(len(p))
	if w.fn != nil {
		w.fn(w.file, w.completed, w.total)
	}

	return len(p), nil
}
