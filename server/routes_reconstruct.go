package server

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/strata-ml/strata/api"
	"github.com/strata-ml/strata/imageproc"
	"github.com/strata-ml/strata/model"
)

// ReconstructHandler handles /api/reconstruct requests: it decodes a
// batch of latent vectors back into images.
func (s *Server) ReconstructHandler(c *gin.Context) {
	checkpointStart := time.Now()
	var req api.ReconstructRequest
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

	dec, ok := lm.model.(model.Decoder)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("model %q does not support reconstruction", req.Model)})
		return
	}

	// an empty request loads the model
	if len(req.Latents) == 0 {
		c.JSON(http.StatusOK, api.ReconstructResponse{Model: req.Model})
		return
	}

	latent := int(lm.model.Config().Uint("latent_dim"))
	flat := make([]float32, 0, len(req.Latents)*latent)
	for i, v := range req.Latents {
		if len(v) != latent {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("latent %d has %d values, want %d", i, len(v), latent)})
			return
		}

		flat = append(flat, v...)
	}

	ctx := lm.model.Backend().NewContext()
	defer ctx.Close()

	latents := ctx.Input().FromFloats(flat, len(req.Latents), latent)
	out, err := model.Decode(ctx, dec, latents, req.Levels)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recon := out.Reconstruction()
	shape := recon.Shape()
	channels, height, width := shape[1], shape[2], shape[3]
	plane := channels * height * width
	floats := recon.Floats()

	images := make([]api.ImageData, len(req.Latents))
	var g errgroup.Group
	for i := range images {
		g.Go(func() error {
			img, err := imageproc.ToImage(floats[i*plane:(i+1)*plane], channels, height, width)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				return err
			}

			images[i] = buf.Bytes()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := api.ReconstructResponse{Model: req.Model, Images: images}
	for key := range out.Keys() {
		if key == model.KeyReconstruction {
			continue
		}

		t, _ := out.Get(key)
		resp.Layers = append(resp.Layers, api.NamedTensor{Name: key, TensorData: api.TensorData{Shape: t.Shape(), Data: t.Floats()}})
	}

	resp.TotalDuration = time.Since(checkpointStart)
	resp.LoadDuration = checkpointLoaded.Sub(checkpointStart)
	c.JSON(http.StatusOK, resp)
}
