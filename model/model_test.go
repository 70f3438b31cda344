package model

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/strata-ml/strata/fs"
)

func TestParseTag(t *testing.T) {
	cases := []struct {
		value string
		want  Tag
	}{
		{
			value: "weight",
			want:  Tag{name: "weight"},
		},
		{
			value: "weight,alt:w",
			want:  Tag{name: "weight", alternatives: []string{"w"}},
		},
		{
			value: "blk,pre:enc.",
			want:  Tag{name: "blk", prefix: "enc."},
		},
		{
			value: ",alt:bias",
			want:  Tag{name: "bias"},
		},
	}

	for _, tt := range cases {
		t.Run(tt.value, func(t *testing.T) {
			got := parseTag(tt.value)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(Tag{})); diff != "" {
				t.Errorf("parseTag(%q) returned unexpected values (-want +got):\n%s", tt.value, diff)
			}
		})
	}
}

func TestBuildTensorNames(t *testing.T) {
	cases := []struct {
		name string
		tags []Tag
		want [][]string
	}{
		{
			name: "simple",
			tags: []Tag{{name: "blk"}, {name: "0"}, {name: "conv"}, {name: "weight"}},
			want: [][]string{{"blk", "0", "conv", "weight"}},
		},
		{
			name: "alternatives",
			tags: []Tag{{name: "embd", alternatives: []string{"embedding"}}, {name: "bias"}},
			want: [][]string{{"embd", "bias"}, {"embedding", "bias"}},
		},
		{
			name: "unnamed middle",
			tags: []Tag{{name: "blk"}, {}, {name: "weight"}},
			want: [][]string{{"blk", "weight"}},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := buildTensorNames(tt.tags, "", "")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("buildTensorNames() returned unexpected values (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLevels(t *testing.T) {
	cases := []struct {
		name   string
		depths []int
		blocks int
		want   []int
		err    bool
	}{
		{name: "nil", depths: nil, blocks: 4, want: nil},
		{name: "single", depths: []int{2}, blocks: 4, want: []int{2}},
		{name: "all", depths: []int{1, 2, 3, 4}, blocks: 4, want: []int{1, 2, 3, 4}},
		{name: "dedup sorted", depths: []int{3, 1, 3}, blocks: 4, want: []int{1, 3}},
		{name: "zero", depths: []int{0}, blocks: 4, err: true},
		{name: "negative", depths: []int{-1}, blocks: 4, err: true},
		{name: "too deep", depths: []int{5}, blocks: 4, err: true},
		{name: "one bad rejects all", depths: []int{1, 2, 9}, blocks: 4, err: true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			levels, err := ParseLevels(tt.depths, tt.blocks)
			if tt.err {
				if !errors.Is(err, ErrInvalidLevel) {
					t.Fatalf("ParseLevels(%v, %d) error = %v, want ErrInvalidLevel", tt.depths, tt.blocks, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseLevels(%v, %d) returned error: %v", tt.depths, tt.blocks, err)
			}

			if diff := cmp.Diff(tt.want, levels.Values()); diff != "" {
				t.Errorf("ParseLevels(%v, %d) returned unexpected values (-want +got):\n%s", tt.depths, tt.blocks, diff)
			}
		})
	}
}

func TestLevelsContains(t *testing.T) {
	levels, err := ParseLevels([]int{1, 3}, 5)
	if err != nil {
		t.Fatal(err)
	}

	for depth, want := range map[int]bool{1: true, 2: false, 3: true, 5: false} {
		if got := levels.Contains(depth); got != want {
			t.Errorf("Contains(%d) = %v, want %v", depth, got, want)
		}
	}

	var none *Levels
	if none.Contains(1) {
		t.Error("nil Levels should not contain anything")
	}
}

func TestOutputOrder(t *testing.T) {
	out := NewOutput()
	out.Set(LayerKey(KeyEmbedding, 1), nil)
	out.Set(LayerKey(KeyEmbedding, 3), nil)
	out.Set(KeyEmbedding, nil)
	out.Set(KeyLogCovariance, nil)

	want := []string{"embedding_layer_1", "embedding_layer_3", "embedding", "log_covariance"}
	if diff := cmp.Diff(want, slices.Collect(out.Keys())); diff != "" {
		t.Errorf("Keys() returned unexpected order (-want +got):\n%s", diff)
	}

	if out.Len() != 4 {
		t.Errorf("Len() = %d, want 4", out.Len())
	}

	if _, ok := out.Get(KeyReconstruction); ok {
		t.Error("Get(reconstruction) should not be present for encoder output")
	}

	if got := len(out.Tensors()); got != 4 {
		t.Errorf("len(Tensors()) = %d, want 4", got)
	}
}

type testConfig struct {
	arch string
}

func (c testConfig) Architecture() string { return c.arch }

func (c testConfig) String(_ string, d ...string) string {
	if len(d) > 0 {
		return d[0]
	}
	return ""
}

func (c testConfig) Uint(_ string, d ...uint32) uint32 {
	if len(d) > 0 {
		return d[0]
	}
	return 0
}

func (c testConfig) Float(_ string, d ...float32) float32 {
	if len(d) > 0 {
		return d[0]
	}
	return 0
}

func (c testConfig) Bool(_ string, d ...bool) bool {
	if len(d) > 0 {
		return d[0]
	}
	return false
}

func (c testConfig) Strings(_ string, d ...[]string) []string {
	if len(d) > 0 {
		return d[0]
	}
	return nil
}

func (c testConfig) Ints(_ string, d ...[]int32) []int32 {
	if len(d) > 0 {
		return d[0]
	}
	return nil
}

func (c testConfig) Uints(_ string, d ...[]uint32) []uint32 {
	if len(d) > 0 {
		return d[0]
	}
	return nil
}

func (c testConfig) Floats(_ string, d ...[]float32) []float32 {
	if len(d) > 0 {
		return d[0]
	}
	return nil
}

func TestModelForArchSuggestion(t *testing.T) {
	models["test_encoder_suggest"] = func(fs.Config) (Model, error) { return nil, nil }
	t.Cleanup(func() { delete(models, "test_encoder_suggest") })

	_, err := modelForArch(testConfig{arch: "test_encoder_sugest"})
	if !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("modelForArch() error = %v, want ErrUnsupportedModel", err)
	}

	if !strings.Contains(err.Error(), `did you mean "test_encoder_suggest"`) {
		t.Errorf("error %q missing suggestion", err)
	}
}
