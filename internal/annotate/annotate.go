package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Brownie44l1/hemacount/internal/model"
)

const (
	lineWidth   = 2
	labelOffset = 8
)

var palette = map[string]color.RGBA{
	"Platelets": {255, 215, 0, 255},
	"RBC":       {220, 53, 69, 255},
	"WBC":       {30, 144, 255, 255},
}

var fallback = color.RGBA{255, 255, 255, 255}

// ColorOf returns the drawing colour of a class.
func ColorOf(class string) color.RGBA {
	if c, ok := palette[class]; ok {
		return c
	}
	return fallback
}

// CSS renders c the way the browser overlay expects it.
func CSS(c color.RGBA) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Label is the caption drawn above a detection.
func Label(d model.Detection) string {
	return fmt.Sprintf("%s %.1f%%", d.Class, d.Confidence*100)
}

// Draw returns a copy of src with every detection outlined and captioned.
func Draw(src image.Image, dets []model.Detection) *image.NRGBA {
	dst := imaging.Clone(src)

	for _, d := range dets {
		c := ColorOf(d.Class)
		box := d.Box.Sub(src.Bounds().Min)
		outline(dst, box, c)
		caption(dst, box.Min.X, box.Min.Y-labelOffset, Label(d), c)
	}
	return dst
}

func outline(dst draw.Image, r image.Rectangle, c color.Color) {
	u := &image.Uniform{C: c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+lineWidth),
		image.Rect(r.Min.X, r.Max.Y-lineWidth, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+lineWidth, r.Max.Y),
		image.Rect(r.Max.X-lineWidth, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), u, image.Point{}, draw.Src)
	}
}

func caption(dst draw.Image, x, y int, text string, c color.Color) {
	face := basicfont.Face7x13
	if y < face.Ascent {
		y = face.Ascent
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// Encode renders img as JPEG.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile stores data at path. Readers of path never see a partial
// file: the data is written next to it and renamed into place.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".annotated-*.jpg")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move image into place: %w", err)
	}
	return nil
}
