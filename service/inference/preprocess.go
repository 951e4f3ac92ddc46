package inference

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"

	"github.com/khaledhikmat/fire-go/ensemble"
)

// Preprocess resizes img to size x size and scales its RGB values to [0,1],
// channels last.
func Preprocess(img image.Image, size int) (ensemble.Frame, error) {
	if img == nil {
		return ensemble.Frame{}, fmt.Errorf("no image to preprocess")
	}
	if size <= 0 {
		return ensemble.Frame{}, fmt.Errorf("invalid frame size %d", size)
	}
	b := img.Bounds()
	if b.Empty() {
		return ensemble.Frame{}, fmt.Errorf("empty image")
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	rb := resized.Bounds()

	pixels := make([]float32, 0, size*size*3)
	for y := rb.Min.Y; y < rb.Max.Y; y++ {
		for x := rb.Min.X; x < rb.Max.X; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			pixels = append(pixels,
				float32(r>>8)/255.0,
				float32(g>>8)/255.0,
				float32(b>>8)/255.0,
			)
		}
	}

	return ensemble.Frame{
		Width:  rb.Dx(),
		Height: rb.Dy(),
		Pixels: pixels,
	}, nil
}
