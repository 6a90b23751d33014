package model

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

const padGray = 114

// letterboxed is a square model input holding the source image scaled to
// fit and centred on gray padding.
type letterboxed struct {
	img        *image.RGBA
	scale      float64
	padX, padY int
}

func letterbox(src image.Image, size int) letterboxed {
	b := src.Bounds()
	scale := math.Min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))

	resized := resize.Resize(uint(w), uint(h), src, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.RGBA{padGray, padGray, padGray, 255}}, image.Point{}, draw.Src)

	padX, padY := (size-w)/2, (size-h)/2
	draw.Draw(canvas, image.Rect(padX, padY, padX+w, padY+h), resized, resized.Bounds().Min, draw.Src)

	return letterboxed{img: canvas, scale: scale, padX: padX, padY: padY}
}

// fill writes the image as planar RGB scaled to [0,1].
func (l letterboxed) fill(dst []float32) {
	size := l.img.Bounds().Dx()
	plane := size * size
	pix := l.img.Pix
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			o := y*l.img.Stride + x*4
			i := y*size + x
			dst[i] = float32(pix[o]) / 255
			dst[plane+i] = float32(pix[o+1]) / 255
			dst[2*plane+i] = float32(pix[o+2]) / 255
		}
	}
}

// project maps model-space boxes back onto the source bounds.
func (l letterboxed) project(boxes []candidate, classes []string, bounds image.Rectangle) []Detection {
	out := make([]Detection, 0, len(boxes))
	for _, c := range boxes {
		r := image.Rect(
			l.toSource(c.x1, l.padX, bounds.Min.X, bounds.Max.X),
			l.toSource(c.y1, l.padY, bounds.Min.Y, bounds.Max.Y),
			l.toSource(c.x2, l.padX, bounds.Min.X, bounds.Max.X),
			l.toSource(c.y2, l.padY, bounds.Min.Y, bounds.Max.Y),
		)
		if r.Empty() {
			continue
		}
		out = append(out, Detection{
			Class:      classes[c.class],
			Confidence: c.score,
			Box:        r,
		})
	}
	return out
}

func (l letterboxed) toSource(v float32, pad, lo, hi int) int {
	p := int(math.Round((float64(v)-float64(pad))/l.scale)) + lo
	return min(max(p, lo), hi)
}
