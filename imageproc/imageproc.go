// Package imageproc prepares images as model input tensors and renders
// reconstruction tensors back into images.
package imageproc

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// the experimental webp decoder does not register itself
func init() {
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
}

// Decode reads one image in any registered format: PNG, JPEG, GIF, BMP,
// TIFF or WebP.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return img, nil
}

// Prepare converts an image into model input: alpha composited over a
// white background, scaled so the short side equals size, center
// cropped to size x size, and laid out channel first in [0, 1].
func Prepare(img image.Image, size int) []float32 {
	return chw(centerCrop(resize(composite(img), size), size))
}

// composite flattens any alpha channel over a white background.
func composite(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)

	return dst
}

// resize scales the image preserving aspect ratio so that its short
// side equals size.
func resize(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := size, size
	if w < h {
		dh = h * size / w
	} else if h < w {
		dw = w * size / h
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	return dst
}

func centerCrop(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(x0, y0), draw.Src)

	return dst
}

// chw lays the pixels out channel first, scaled to [0, 1].
func chw(img *image.RGBA) []float32 {
	b := img.Bounds()
	plane := b.Dx() * b.Dy()

	vs := make([]float32, 3*plane)
	var i int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			vs[i] = float32(r>>8) / 255
			vs[plane+i] = float32(g>>8) / 255
			vs[2*plane+i] = float32(bl>>8) / 255
			i++
		}
	}

	return vs
}

// ToImage renders a CHW float32 tensor in [0, 1] as an image, clamping
// values outside the range.
func ToImage(data []float32, channels, height, width int) (*image.RGBA, error) {
	if channels != 3 || len(data) != channels*height*width {
		return nil, fmt.Errorf("cannot render %d floats as %dx%dx%d image", len(data), channels, height, width)
	}

	plane := height * width
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			i := y*width + x
			img.SetRGBA(x, y, color.RGBA{
				R: clampByte(data[i]),
				G: clampByte(data[plane+i]),
				B: clampByte(data[2*plane+i]),
				A: 255,
			})
		}
	}

	return img, nil
}

func clampByte(v float32) uint8 {
	return uint8(math.Round(float64(min(max(v, 0), 1)) * 255))
}
