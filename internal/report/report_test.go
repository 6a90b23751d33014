package report

import (
	"bytes"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []CellCount{{"Platelets", 4}, {"RBC", 120}, {"WBC", 7}}

func TestLatest(t *testing.T) {
	var l Latest
	_, ok := l.Get()
	assert.False(t, ok)

	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	l.Set(Analysis{Counts: sample, Image: []byte("jpeg"), At: at})

	got, ok := l.Get()
	require.True(t, ok)
	assert.Equal(t, sample, got.Counts)
	assert.Equal(t, at, got.At)
}

func TestChart(t *testing.T) {
	png, err := Chart(sample)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	png, err = Chart([]CellCount{{"RBC", 0}, {"WBC", 0}})
	require.NoError(t, err, "all-zero counts still chart")
	assert.NotEmpty(t, png)

	_, err = Chart(nil)
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	var smear bytes.Buffer
	require.NoError(t, imaging.Encode(&smear, imaging.New(64, 48, color.White), imaging.JPEG))

	var buf bytes.Buffer
	err := Write(&buf, Analysis{Counts: sample, Image: smear.Bytes(), At: time.Now()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteMissingImage(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Analysis{Counts: sample})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
