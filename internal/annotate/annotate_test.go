package annotate

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/hemacount/internal/model"
)

func TestDrawOutlinesInClassColor(t *testing.T) {
	src := imaging.New(100, 100, color.Black)
	det := model.Detection{Class: "RBC", Confidence: 0.873, Box: image.Rect(20, 40, 60, 80)}

	out := Draw(src, []model.Detection{det})

	assert.Equal(t, color.NRGBA{220, 53, 69, 255}, out.NRGBAAt(30, 40))
	assert.Equal(t, color.NRGBA{220, 53, 69, 255}, out.NRGBAAt(20, 60))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(40, 60), "box interior stays untouched")
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, src.NRGBAAt(30, 40), "source is not modified")
}

func TestLabelAndColors(t *testing.T) {
	assert.Equal(t, "WBC 91.2%", Label(model.Detection{Class: "WBC", Confidence: 0.912}))
	assert.Equal(t, "rgb(255, 215, 0)", CSS(ColorOf("Platelets")))
	assert.Equal(t, "rgb(30, 144, 255)", CSS(ColorOf("WBC")))
	assert.Equal(t, "rgb(255, 255, 255)", CSS(ColorOf("Neutrophil")))
}

func TestEncodeAndWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "processed.jpg")

	data, err := Encode(imaging.New(16, 8, color.White))
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, data))

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 8), img.Bounds().Size())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
