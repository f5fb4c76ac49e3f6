package event

import (
	"fmt"
	"image"
	"image/color"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Per-channel tolerance (out of 255) below which two pixels count as equal.
// Absorbs re-encoding artifacts between the same artwork served as jpeg by
// one site and webp by another.
const pixelTolerance = 16

// CompareImages returns the perceptual mismatch percentage (0..100) between
// two locally cached images. Both images are scaled to a common size and
// compared pixel by pixel, ignoring the alpha channel.
func CompareImages(pathA, pathB string) (float64, error) {
	imgA, err := loadImage(pathA)
	if err != nil {
		return 100, err
	}
	imgB, err := loadImage(pathB)
	if err != nil {
		return 100, err
	}

	boundsA := imgA.Bounds()
	boundsB := imgB.Bounds()
	width := min(boundsA.Dx(), boundsB.Dx())
	height := min(boundsA.Dy(), boundsB.Dy())
	if width <= 0 || height <= 0 {
		return 100, fmt.Errorf("image has empty bounds: %s, %s", pathA, pathB)
	}

	scaledA := scaleTo(imgA, width, height)
	scaledB := scaleTo(imgB, width, height)

	mismatched := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !pixelsMatch(scaledA.RGBAAt(x, y), scaledB.RGBAAt(x, y)) {
				mismatched++
			}
		}
	}

	return float64(mismatched) / float64(width*height) * 100, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

func scaleTo(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Alpha channel is ignored on purpose.
func pixelsMatch(a, b color.RGBA) bool {
	return channelClose(a.R, b.R) && channelClose(a.G, b.G) && channelClose(a.B, b.B)
}

func channelClose(a, b uint8) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d <= pixelTolerance
}
