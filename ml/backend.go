package ml

import (
	"context"
	"fmt"

	"github.com/strata-ml/strata/fs"
)

// Backend executes tensor computation for a model checkpoint.
type Backend interface {
	// Close frees all memory associated with this backend
	Close()

	// Load reads tensor payloads from the checkpoint. progress is called
	// with values in (0, 1] as data becomes available.
	Load(ctx context.Context, progress func(float32)) error

	Config() fs.Config
	Get(name string) Tensor
	NewContext() Context
}

// BackendParams controls how the backend loads and executes models
type BackendParams struct {
	// NumThreads sets the number of threads to use if running on the CPU
	NumThreads int
}

var backends = make(map[string]func(string, BackendParams) (Backend, error))

// RegisterBackend registers a backend factory function.
func RegisterBackend(name string, f func(string, BackendParams) (Backend, error)) {
	if _, ok := backends[name]; ok {
		panic("backend: backend already registered")
	}

	backends[name] = f
}

// NewBackend creates a new backend instance for the given model path.
func NewBackend(modelPath string, params BackendParams) (Backend, error) {
	if backend, ok := backends["cpu"]; ok {
		return backend(modelPath, params)
	}

	return nil, fmt.Errorf("unsupported backend")
}
