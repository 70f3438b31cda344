package cpu

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/strata-ml/strata/ml"
)

func (t *Tensor) RELU(_ ml.Context) ml.Tensor {
	return t.unary(func(v float32) float32 { return max(v, 0) })
}

func (t *Tensor) Sigmoid(_ ml.Context) ml.Tensor {
	return t.unary(func(v float32) float32 { return float32(1 / (1 + math.Exp(float64(-v)))) })
}

// BatchNorm2D normalizes each channel with its running statistics and
// applies the affine transform. The receiver is (n, c, h, w); weight, bias,
// mean and variance are (c).
func (t *Tensor) BatchNorm2D(_ ml.Context, weight, bias, mean, variance ml.Tensor, eps float32) ml.Tensor {
	in := checkShape("batchnorm2d", t, 4)
	w := checkShape("batchnorm2d", weight, 1)
	b := checkShape("batchnorm2d", bias, 1)
	m := checkShape("batchnorm2d", mean, 1)
	v := checkShape("batchnorm2d", variance, 1)

	c := in.shape[1]
	if w.shape[0] != c || b.shape[0] != c || m.shape[0] != c || v.shape[0] != c {
		panic(fmt.Sprintf("cpu: batchnorm2d: parameters do not match %d channels", c))
	}

	scale := make([]float32, c)
	shift := make([]float32, c)
	for i := range c {
		scale[i] = w.data[i] / float32(math.Sqrt(float64(v.data[i]+eps)))
		shift[i] = b.data[i] - m.data[i]*scale[i]
	}

	out := &Tensor{dtype: ml.DTypeF32, shape: in.Shape(), data: make([]float32, len(in.data))}

	hw := in.shape[2] * in.shape[3]
	for n := range in.shape[0] {
		for i := range c {
			off := (n*c + i) * hw
			for j := off; j < off+hw; j++ {
				out.data[j] = in.data[j]*scale[i] + shift[i]
			}
		}
	}

	return out
}

// Conv2D applies the receiver as filters (f, c, kh, kw) over t2 (n, c, h, w).
// Each batch image is lowered to a column matrix and multiplied with the
// filter matrix; images are processed in parallel.
func (t *Tensor) Conv2D(ctx ml.Context, t2 ml.Tensor, s0, s1, p0, p1, d0, d1 int) ml.Tensor {
	w := checkShape("conv2d", t, 4)
	in := checkShape("conv2d", t2, 4)

	f, c, kh, kw := w.shape[0], w.shape[1], w.shape[2], w.shape[3]
	n, h, wd := in.shape[0], in.shape[2], in.shape[3]
	if in.shape[1] != c {
		panic(fmt.Sprintf("cpu: conv2d: filter channels %d do not match input channels %d", c, in.shape[1]))
	}

	oh := (h+2*p0-d0*(kh-1)-1)/s0 + 1
	ow := (wd+2*p1-d1*(kw-1)-1)/s1 + 1
	if oh <= 0 || ow <= 0 {
		panic(fmt.Sprintf("cpu: conv2d: invalid output size %dx%d", oh, ow))
	}

	k := c * kh * kw
	m := oh * ow

	out := &Tensor{dtype: ml.DTypeF32, shape: []int{n, f, oh, ow}, data: make([]float32, n*f*m)}
	filters := blas32.General{Rows: f, Cols: k, Stride: k, Data: w.data}

	var g errgroup.Group
	g.SetLimit(threads(ctx))
	for b := range n {
		g.Go(func() error {
			cols := make([]float32, k*m)
			for ci := range c {
				src := in.data[(b*c+ci)*h*wd:]
				for ky := range kh {
					iyBase := ky*d0 - p0
					for kx := range kw {
						ixBase := kx*d1 - p1
						base := ((ci*kh+ky)*kw + kx) * m
						for oy := range oh {
							iy := oy*s0 + iyBase
							if iy < 0 || iy >= h {
								continue
							}

							for ox := range ow {
								ix := ox*s1 + ixBase
								if ix >= 0 && ix < wd {
									cols[base+oy*ow+ox] = src[iy*wd+ix]
								}
							}
						}
					}
				}
			}

			blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
				filters,
				blas32.General{Rows: k, Cols: m, Stride: m, Data: cols},
				0,
				blas32.General{Rows: f, Cols: m, Stride: m, Data: out.data[b*f*m : (b+1)*f*m]})

			return nil
		})
	}

	g.Wait()
	return out
}

// ConvTranspose2D applies the receiver as transposed convolution filters
// (c, f, kh, kw) over t2 (n, c, h, w), scattering each input element into
// the output window it influences.
func (t *Tensor) ConvTranspose2D(ctx ml.Context, t2 ml.Tensor, s0, s1, p0, p1, op0, op1 int) ml.Tensor {
	w := checkShape("convtranspose2d", t, 4)
	in := checkShape("convtranspose2d", t2, 4)

	c, f, kh, kw := w.shape[0], w.shape[1], w.shape[2], w.shape[3]
	n, h, wd := in.shape[0], in.shape[2], in.shape[3]
	if in.shape[1] != c {
		panic(fmt.Sprintf("cpu: convtranspose2d: filter channels %d do not match input channels %d", c, in.shape[1]))
	}

	oh := (h-1)*s0 - 2*p0 + kh + op0
	ow := (wd-1)*s1 - 2*p1 + kw + op1
	if oh <= 0 || ow <= 0 {
		panic(fmt.Sprintf("cpu: convtranspose2d: invalid output size %dx%d", oh, ow))
	}

	out := &Tensor{dtype: ml.DTypeF32, shape: []int{n, f, oh, ow}, data: make([]float32, n*f*oh*ow)}

	var g errgroup.Group
	g.SetLimit(threads(ctx))
	for b := range n {
		g.Go(func() error {
			dst := out.data[b*f*oh*ow:]
			for ci := range c {
				src := in.data[(b*c+ci)*h*wd:]
				for fi := range f {
					wf := w.data[(ci*f+fi)*kh*kw:]
					od := dst[fi*oh*ow:]
					for iy := range h {
						oyBase := iy*s0 - p0
						for ix := range wd {
							v := src[iy*wd+ix]
							oxBase := ix*s1 - p1
							for ky := range kh {
								oy := oyBase + ky
								if oy < 0 || oy >= oh {
									continue
								}

								for kx := range kw {
									ox := oxBase + kx
									if ox >= 0 && ox < ow {
										od[oy*ow+ox] += v * wf[ky*kw+kx]
									}
								}
							}
						}
					}
				}
			}

			return nil
		})
	}

	g.Wait()
	return out
}

func threads(ctx ml.Context) int {
	if c, ok := ctx.(*Context); ok && c.b != nil {
		return c.b.threads
	}

	return runtime.NumCPU()
}
