package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestPrepare(t *testing.T) {
	data := encodePNG(t, 100, 80, color.NRGBA{R: 255, A: 255})

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	vs := Prepare(img, 64)
	if len(vs) != 3*64*64 {
		t.Fatalf("len = %d, want %d", len(vs), 3*64*64)
	}

	plane := 64 * 64
	for i := range plane {
		if vs[i] < 0.99 {
			t.Fatalf("red channel value %f at %d, want ~1", vs[i], i)
		}
		if vs[plane+i] > 0.01 || vs[2*plane+i] > 0.01 {
			t.Fatalf("green/blue should be ~0 at %d", i)
		}
	}
}

func TestPrepareComposite(t *testing.T) {
	// half transparent red over the white background lightens to pink
	data := encodePNG(t, 64, 64, color.NRGBA{R: 255, A: 128})

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	vs := Prepare(img, 64)
	plane := 64 * 64
	if g := vs[plane]; g < 0.4 || g > 0.6 {
		t.Errorf("green channel = %f, want ~0.5", g)
	}
}

func TestDecodeJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got := decoded.Bounds(); got.Dx() != 32 || got.Dy() != 32 {
		t.Errorf("bounds = %v, want 32x32", got)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected error for invalid data")
	}
}

func TestToImage(t *testing.T) {
	// 2x2 image: red, green, blue, white
	data := []float32{
		1, 0, 0, 1, // R
		0, 1, 0, 1, // G
		0, 0, 1, 1, // B
	}

	img, err := ToImage(data, 3, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	want := map[image.Point]color.RGBA{
		{0, 0}: {255, 0, 0, 255},
		{1, 0}: {0, 255, 0, 255},
		{0, 1}: {0, 0, 255, 255},
		{1, 1}: {255, 255, 255, 255},
	}
	for p, c := range want {
		if got := img.RGBAAt(p.X, p.Y); got != c {
			t.Errorf("pixel %v = %v, want %v", p, got, c)
		}
	}
}

func TestToImageClamps(t *testing.T) {
	img, err := ToImage([]float32{2, -1, 0.5, 0, 0, 0, 0, 0, 0, 0, 0, 0}, 3, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	if got := img.RGBAAt(0, 0).R; got != 255 {
		t.Errorf("clamped high = %d, want 255", got)
	}
	if got := img.RGBAAt(1, 0).R; got != 0 {
		t.Errorf("clamped low = %d, want 0", got)
	}
}

func TestToImageBadShape(t *testing.T) {
	if _, err := ToImage(make([]float32, 5), 3, 2, 2); err == nil {
		t.Fatal("expected error for short data")
	}

	if _, err := ToImage(make([]float32, 4), 1, 2, 2); err == nil {
		t.Fatal("expected error for single channel")
	}
}
