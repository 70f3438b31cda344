package server

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/strata-ml/strata/api"
	"github.com/strata-ml/strata/envconfig"
	"github.com/strata-ml/strata/format"
	"github.com/strata-ml/strata/fs/gguf"
)

// ListHandler handles /api/tags requests.
func (s *Server) ListHandler(c *gin.Context) {
	dir := envconfig.Models()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	models := []api.ListModelResponse{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".gguf") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		details, err := describeModel(path)
		if err != nil {
			slog.Warn("bad checkpoint", "file", entry.Name(), "error", err)
			continue
		}

		digest, err := s.modelDigest(path, info)
		if err != nil {
			slog.Warn("could not digest checkpoint", "file", entry.Name(), "error", err)
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".gguf")
		models = append(models, api.ListModelResponse{
			Model:      name,
			Name:       name,
			Size:       info.Size(),
			Digest:     digest,
			ModifiedAt: info.ModTime(),
			Details:    details,
		})
	}

	slices.SortStableFunc(models, func(i, j api.ListModelResponse) int {
		return cmp.Compare(j.ModifiedAt.Unix(), i.ModifiedAt.Unix())
	})

	c.JSON(http.StatusOK, api.ListResponse{Models: models})
}

// ShowHandler handles /api/show requests.
func (s *Server) ShowHandler(c *gin.Context) {
	var req api.ShowRequest
	err := c.ShouldBindJSON(&req)
	switch {
	case errors.Is(err, io.EOF):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	case err != nil:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Model == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}

	resp, err := GetModelInfo(req)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("model '%s' not found", req.Model)})
		case errors.Is(err, errInvalidModelName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetModelInfo reads a checkpoint's metadata and tensor table.
func GetModelInfo(req api.ShowRequest) (*api.ShowResponse, error) {
	path, err := ModelPath(req.Model)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	ff, err := gguf.Decode(f, -1)
	if err != nil {
		return nil, err
	}

	kv := ff.KV()
	ts := ff.Tensors()

	tensors := make([]api.Tensor, len(ts.Items()))
	for cnt, t := range ts.Items() {
		tensors[cnt] = api.Tensor{Name: t.Name, Type: t.Type(), Shape: t.Shape}
	}

	return &api.ShowResponse{
		Details:    modelDetails(kv, ts),
		ModelInfo:  kv,
		Tensors:    tensors,
		ModifiedAt: info.ModTime(),
	}, nil
}

// describeModel summarizes the checkpoint at path from its metadata
// alone.
func describeModel(path string) (api.ModelDetails, error) {
	f, err := os.Open(path)
	if err != nil {
		return api.ModelDetails{}, err
	}
	defer f.Close()

	ff, err := gguf.Decode(f, -1)
	if err != nil {
		return api.ModelDetails{}, err
	}

	return modelDetails(ff.KV(), ff.Tensors()), nil
}

func modelDetails(kv gguf.KV, ts gguf.Tensors) api.ModelDetails {
	var params uint64
	quantization := "F32"
	for _, t := range ts.Items() {
		params += t.Elements()
		if gguf.TensorType(t.Kind) == gguf.TensorTypeF16 {
			quantization = "F16"
		}
	}

	return api.ModelDetails{
		Format:            "gguf",
		Family:            kv.Architecture(),
		ParameterSize:     format.HumanNumber(params),
		QuantizationLevel: quantization,
	}
}
