package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/strata-ml/strata/api"
	"github.com/strata-ml/strata/imageproc"
	"github.com/strata-ml/strata/model"
)

// EncodeHandler handles /api/encode requests: it projects a batch of
// images into the latent space of an encoder model.
func (s *Server) EncodeHandler(c *gin.Context) {
	checkpointStart := time.Now()
	var req api.EncodeRequest
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

	lm, err := s.loadModel(c.Request.Context(), req.Model)
	if err != nil {
		handleLoadError(c, req.Model, err)
		return
	}

	checkpointLoaded := time.Now()

	enc, ok := lm.model.(model.Encoder)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("model %q does not support encoding", req.Model)})
		return
	}

	// an empty request loads the model
	if len(req.Images) == 0 {
		c.JSON(http.StatusOK, api.EncodeResponse{Model: req.Model})
		return
	}

	cfg := lm.model.Config()
	size := int(cfg.Uint("image_size", 64))
	channels := int(cfg.Uint("channels", 3))
	plane := channels * size * size

	data := make([]float32, len(req.Images)*plane)
	var g errgroup.Group
	for i, raw := range req.Images {
		g.Go(func() error {
			img, err := imageproc.Decode(bytes.NewReader(raw))
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}

			copy(data[i*plane:(i+1)*plane], imageproc.Prepare(img, size))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := lm.model.Backend().NewContext()
	defer ctx.Close()

	imgs := ctx.Input().FromFloats(data, len(req.Images), channels, size, size)
	out, err := model.Encode(ctx, enc, imgs, req.Levels)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := api.EncodeResponse{Model: req.Model}
	for key := range out.Keys() {
		t, _ := out.Get(key)
		td := api.TensorData{Shape: t.Shape(), Data: t.Floats()}
		switch key {
		case model.KeyEmbedding:
			resp.Embedding = td
		case model.KeyLogCovariance:
			resp.LogCovariance = &td
		default:
			resp.Layers = append(resp.Layers, api.NamedTensor{Name: key, TensorData: td})
		}
	}

	resp.TotalDuration = time.Since(checkpointStart)
	resp.LoadDuration = checkpointLoaded.Sub(checkpointStart)
	c.JSON(http.StatusOK, resp)
}
