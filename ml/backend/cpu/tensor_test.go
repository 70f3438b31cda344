package cpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/strata-ml/strata/ml"
)

func testContext() *Context {
	return &Context{b: &Backend{threads: 2}}
}

func TestMulmat(t *testing.T) {
	ctx := testContext()

	a := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := ctx.FromFloats([]float32{7, 8, 9, 10, 11, 12}, 3, 2)

	got := a.Mulmat(ctx, b)

	if diff := cmp.Diff([]int{2, 2}, got.Shape()); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{58, 64, 139, 154}, got.Floats()); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestAddBroadcast(t *testing.T) {
	ctx := testContext()

	cases := []struct {
		name   string
		a, b   ml.Tensor
		expect []float32
	}{
		{
			name:   "bias row",
			a:      ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
			b:      ctx.FromFloats([]float32{10, 20, 30}, 3),
			expect: []float32{11, 22, 33, 14, 25, 36},
		},
		{
			name:   "channel bias",
			a:      ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 1, 2, 2, 2),
			b:      ctx.FromFloats([]float32{10, 20}, 2, 1, 1),
			expect: []float32{11, 12, 13, 14, 25, 26, 27, 28},
		},
		{
			name:   "same shape",
			a:      ctx.FromFloats([]float32{1, 2}, 2),
			b:      ctx.FromFloats([]float32{3, 4}, 2),
			expect: []float32{4, 6},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Add(ctx, tt.b)
			if diff := cmp.Diff(tt.expect, got.Floats()); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConv2D(t *testing.T) {
	ctx := testContext()

	input := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 1, 3, 3)
	kernel := ctx.FromFloats([]float32{1, 1, 1, 1}, 1, 1, 2, 2)

	t.Run("stride 1", func(t *testing.T) {
		got := kernel.Conv2D(ctx, input, 1, 1, 0, 0, 1, 1)
		if diff := cmp.Diff([]int{1, 1, 2, 2}, got.Shape()); diff != "" {
			t.Fatalf("shape mismatch (-want +got):\n%s", diff)
		}

		if diff := cmp.Diff([]float32{12, 16, 24, 28}, got.Floats()); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stride 2 padded", func(t *testing.T) {
		got := kernel.Conv2D(ctx, input, 2, 2, 1, 1, 1, 1)
		if diff := cmp.Diff([]int{1, 1, 2, 2}, got.Shape()); diff != "" {
			t.Fatalf("shape mismatch (-want +got):\n%s", diff)
		}

		if diff := cmp.Diff([]float32{1, 5, 11, 28}, got.Floats()); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestConv2DSpatialLadder(t *testing.T) {
	ctx := testContext()

	// the 64x64 downsampling path: 64 -> 31 -> 15 -> 8 -> 4
	kernel := ctx.Zeros(ml.DTypeF32, 1, 1, 5, 5)

	sizes := []int{64, 31, 15, 8, 4}
	paddings := []int{1, 1, 2, 2}

	x := ctx.Zeros(ml.DTypeF32, 2, 1, sizes[0], sizes[0])
	for i, p := range paddings {
		x = kernel.Conv2D(ctx, x, 2, 2, p, p, 1, 1)
		want := []int{2, 1, sizes[i+1], sizes[i+1]}
		if diff := cmp.Diff(want, x.Shape()); diff != "" {
			t.Fatalf("step %d: shape mismatch (-want +got):\n%s", i+1, diff)
		}
	}
}

func TestConvTranspose2D(t *testing.T) {
	ctx := testContext()

	input := ctx.FromFloats([]float32{1, 2, 3, 4}, 1, 1, 2, 2)
	kernel := ctx.FromFloats([]float32{1, 1, 1, 1}, 1, 1, 2, 2)

	got := kernel.ConvTranspose2D(ctx, input, 1, 1, 0, 0, 0, 0)
	if diff := cmp.Diff([]int{1, 1, 3, 3}, got.Shape()); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{1, 3, 2, 4, 10, 6, 3, 7, 4}, got.Floats()); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestConvTranspose2DSpatialLadder(t *testing.T) {
	ctx := testContext()

	// the 8x8 upsampling path: 8 -> 15 -> 31 -> 62 -> 64
	kernel := ctx.Zeros(ml.DTypeF32, 1, 1, 5, 5)

	steps := []struct {
		stride, padding, outputPadding, want int
	}{
		{2, 2, 0, 15},
		{2, 1, 0, 31},
		{2, 2, 1, 62},
		{1, 1, 0, 64},
	}

	x := ctx.Zeros(ml.DTypeF32, 2, 1, 8, 8)
	for i, s := range steps {
		x = kernel.ConvTranspose2D(ctx, x, s.stride, s.stride, s.padding, s.padding, s.outputPadding, s.outputPadding)
		want := []int{2, 1, s.want, s.want}
		if diff := cmp.Diff(want, x.Shape()); diff != "" {
			t.Fatalf("step %d: shape mismatch (-want +got):\n%s", i+1, diff)
		}
	}
}

func TestBatchNorm2D(t *testing.T) {
	ctx := testContext()

	x := ctx.FromFloats([]float32{1, 2, 3, 4}, 1, 2, 1, 2)
	weight := ctx.FromFloats([]float32{2, 1}, 2)
	bias := ctx.FromFloats([]float32{0, 10}, 2)
	mean := ctx.FromFloats([]float32{1, 3}, 2)
	variance := ctx.FromFloats([]float32{4, 1}, 2)

	got := x.BatchNorm2D(ctx, weight, bias, mean, variance, 0)
	if diff := cmp.Diff([]float32{0, 1, 10, 11}, got.Floats()); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestReshape(t *testing.T) {
	ctx := testContext()

	x := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	got := x.Reshape(ctx, 3, -1)
	if diff := cmp.Diff([]int{3, 2}, got.Shape()); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(x.Floats(), got.Floats()); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestActivations(t *testing.T) {
	ctx := testContext()

	x := ctx.FromFloats([]float32{-1, 0, 2}, 3)

	if diff := cmp.Diff([]float32{0, 0, 2}, x.RELU(ctx).Floats()); diff != "" {
		t.Errorf("relu mismatch (-want +got):\n%s", diff)
	}

	sig := x.Sigmoid(ctx).Floats()
	if sig[1] != 0.5 {
		t.Errorf("expected sigmoid(0) == 0.5, got %f", sig[1])
	}

	if sig[0] >= 0.5 || sig[2] <= 0.5 {
		t.Errorf("sigmoid not monotone: %v", sig)
	}
}

func TestDump(t *testing.T) {
	ctx := testContext()

	x := ctx.FromFloats([]float32{1.5, -2, 3, 4, 5, 6}, 2, 3)
	want := "[[ 1.5000, -2.0000,  3.0000],\n [ 4.0000,  5.0000,  6.0000]]"
	if diff := cmp.Diff(want, ml.Dump(ctx, x)); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}

	long := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 8)
	want = "[ 1.0000, ...,  8.0000]"
	if diff := cmp.Diff(want, ml.Dump(ctx, long, ml.DumpWithThreshold(4), ml.DumpWithEdgeItems(1))); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}
