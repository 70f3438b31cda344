package model

import (
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/strata-ml/strata/ml"
)

// Fixed output keys. Intermediate activations are stored under
// depth-tagged keys built with LayerKey.
const (
	KeyEmbedding      = "embedding"
	KeyLogCovariance  = "log_covariance"
	KeyReconstruction = "reconstruction"
)

// LayerKey returns the output key for a captured intermediate
// activation, e.g. LayerKey(KeyEmbedding, 2) == "embedding_layer_2".
func LayerKey(kind string, depth int) string {
	return fmt.Sprintf("%s_layer_%d", kind, depth)
}

// Output is the result container for one forward pass: named tensors
// in insertion order. Depth-tagged capture keys precede the fixed keys
// because blocks produce them first.
type Output struct {
	m *orderedmap.OrderedMap[string, ml.Tensor]
}

func NewOutput() *Output {
	return &Output{m: orderedmap.New[string, ml.Tensor]()}
}

// Set stores t under key, replacing any existing value but keeping the
// original position.
func (o *Output) Set(key string, t ml.Tensor) {
	o.m.Set(key, t)
}

// Get returns the tensor stored under key.
func (o *Output) Get(key string) (ml.Tensor, bool) {
	return o.m.Get(key)
}

// Embedding returns the tensor under the "embedding" key, or nil.
func (o *Output) Embedding() ml.Tensor {
	t, _ := o.m.Get(KeyEmbedding)
	return t
}

// LogCovariance returns the tensor under the "log_covariance" key, or
// nil for models without a variance head.
func (o *Output) LogCovariance() ml.Tensor {
	t, _ := o.m.Get(KeyLogCovariance)
	return t
}

// Reconstruction returns the tensor under the "reconstruction" key, or
// nil.
func (o *Output) Reconstruction() ml.Tensor {
	t, _ := o.m.Get(KeyReconstruction)
	return t
}

// Keys yields the output keys in insertion order.
func (o *Output) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key) {
				return
			}
		}
	}
}

// Tensors returns the stored tensors in insertion order.
func (o *Output) Tensors() []ml.Tensor {
	ts := make([]ml.Tensor, 0, o.m.Len())
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		ts = append(ts, pair.Value)
	}

	return ts
}

func (o *Output) Len() int {
	return o.m.Len()
}
