package ml

// Context represents an execution context for tensor operations.
type Context interface {
	Empty(dtype DType, shape ...int) Tensor
	Zeros(dtype DType, shape ...int) Tensor
	FromFloats(s []float32, shape ...int) Tensor

	Forward(...Tensor) Context
	Compute(...Tensor)

	Close()

	// Input returns a context appropriate for creating tensors that are
	// inputs to the model
	Input() Context
}

// Tensor is a multi-dimensional array in row-major layout. Image batches
// use NCHW order. Operations allocate fresh tensors; no operation mutates
// its receiver or arguments.
type Tensor interface {
	Dim(n int) int
	Shape() []int
	DType() DType

	Bytes() []byte
	Floats() []float32

	FromFloats([]float32)

	// Add and friends broadcast t2 against the receiver following
	// trailing-dimension alignment.
	Add(ctx Context, t2 Tensor) Tensor
	Sub(ctx Context, t2 Tensor) Tensor
	Mul(ctx Context, t2 Tensor) Tensor
	Div(ctx Context, t2 Tensor) Tensor

	// Mulmat multiplies a (m, k) receiver with a (k, n) argument into a
	// (m, n) result.
	Mulmat(ctx Context, t2 Tensor) Tensor

	Scale(ctx Context, s float64) Tensor
	Exp(ctx Context) Tensor

	RELU(ctx Context) Tensor
	Sigmoid(ctx Context) Tensor

	// Conv2D applies the receiver as convolution filters of shape
	// (filters, channels, kh, kw) over t2 of shape (batch, channels, h, w)
	// with strides s0, s1, paddings p0, p1 and dilations d0, d1.
	Conv2D(ctx Context, t2 Tensor, s0, s1, p0, p1, d0, d1 int) Tensor

	// ConvTranspose2D applies the receiver as transposed convolution
	// filters of shape (channels, filters, kh, kw) over t2 with strides
	// s0, s1, paddings p0, p1 and output paddings op0, op1.
	ConvTranspose2D(ctx Context, t2 Tensor, s0, s1, p0, p1, op0, op1 int) Tensor

	// BatchNorm2D normalizes each channel of the receiver with the given
	// running statistics, then applies the affine weight and bias.
	BatchNorm2D(ctx Context, weight, bias, mean, variance Tensor, eps float32) Tensor

	Reshape(ctx Context, shape ...int) Tensor
}
