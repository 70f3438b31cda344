package api

import (
	"fmt"
	"time"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the strata server logs for details"
	}
}

// ImageData represents the raw binary data of an image file.
type ImageData []byte

// TensorData is a tensor rendered for transport: its shape and the
// values in row major order.
type TensorData struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// NamedTensor is one named output of a forward pass, e.g. an
// intermediate layer activation.
type NamedTensor struct {
	Name string `json:"name"`
	TensorData
}

// Metrics holds timing information for a request.
type Metrics struct {
	TotalDuration time.Duration `json:"total_duration,omitempty"`
	LoadDuration  time.Duration `json:"load_duration,omitempty"`
}

// EncodeRequest is the request passed to [Client.Encode].
type EncodeRequest struct {
	Model string `json:"model"`

	// Images are the files to encode, one embedding per image.
	Images []ImageData `json:"images"`

	// Levels optionally selects block depths (1 through the model
	// depth) whose intermediate activations are returned as well.
	Levels []int `json:"levels,omitempty"`
}

// EncodeResponse is the response from [Client.Encode].
type EncodeResponse struct {
	Model string `json:"model"`

	// Embedding holds one latent vector per input image.
	Embedding TensorData `json:"embedding"`

	// LogCovariance is only set by variational encoders.
	LogCovariance *TensorData `json:"log_covariance,omitempty"`

	// Layers holds the activations requested through Levels, in
	// forward order.
	Layers []NamedTensor `json:"layers,omitempty"`

	Metrics
}

// ReconstructRequest is the request passed to [Client.Reconstruct].
type ReconstructRequest struct {
	Model string `json:"model"`

	// Latents are the vectors to decode, one image per vector. Every
	// vector must have the model's latent dimension.
	Latents [][]float32 `json:"latents"`

	Levels []int `json:"levels,omitempty"`
}

// ReconstructResponse is the response from [Client.Reconstruct].
type ReconstructResponse struct {
	Model string `json:"model"`

	// Images holds one PNG per input latent vector.
	Images []ImageData `json:"images"`

	Layers []NamedTensor `json:"layers,omitempty"`

	Metrics
}

// ShowRequest is the request passed to [Client.Show].
type ShowRequest struct {
	Model string `json:"model"`
}

// ShowResponse is the response returned from [Client.Show].
type ShowResponse struct {
	Details    ModelDetails   `json:"details"`
	ModelInfo  map[string]any `json:"model_info"`
	Tensors    []Tensor       `json:"tensors,omitempty"`
	ModifiedAt time.Time      `json:"modified_at,omitempty"`
}

// ListResponse is the response from [Client.List].
type ListResponse struct {
	Models []ListModelResponse `json:"models"`
}

// ListModelResponse is a single model description in [ListResponse].
type ListModelResponse struct {
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails provides details about a model.
type ModelDetails struct {
	Format            string `json:"format"`
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// Tensor describes one tensor of a model.
type Tensor struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Shape []uint64 `json:"shape"`
}
