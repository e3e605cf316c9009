// Package debugview turns depth buffer readbacks into images for inspection.
package debugview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DepthImage maps depth 0..1 to black..white. The cleared background (1.0)
// is white. len(depth) must be w*h.
func DepthImage(depth []float32, w, h int) (*image.Gray, error) {
	if len(depth) != w*h {
		return nil, fmt.Errorf("depth image %dx%d: have %d samples", w, h, len(depth))
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := min(max(depth[y*w+x], 0), 1)
			img.SetGray(x, y, color.Gray{Y: uint8(d*255 + 0.5)})
		}
	}
	return img, nil
}

// StretchDepth rescales foreground samples (< 1) to span [0, 0.99] so that
// perspective-compressed depth stays visible. Background is kept at 1.
func StretchDepth(depth []float32) []float32 {
	lo, hi := float32(1), float32(0)
	for _, d := range depth {
		if d < 1 {
			lo, hi = min(lo, d), max(hi, d)
		}
	}
	out := make([]float32, len(depth))
	span := hi - lo
	for i, d := range depth {
		switch {
		case d >= 1:
			out[i] = 1
		case span <= 0:
			out[i] = 0
		default:
			out[i] = (d - lo) / span * 0.99
		}
	}
	return out
}

// Annotate stamps text in the top-left corner on a white label.
func Annotate(img draw.Image, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	label := image.Rect(0, 0, width+8, height+4).Intersect(img.Bounds())
	draw.Draw(img, label, image.White, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(4), Y: fixed.I(2) + metrics.Ascent},
	}
	d.DrawString(text)
}

func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
