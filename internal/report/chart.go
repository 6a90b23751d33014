package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 400
	chartHeight = 300
)

// Chart renders the cell distribution as a PNG bar chart.
func Chart(counts []CellCount) ([]byte, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no counts to chart")
	}

	top := 1
	bars := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		bars = append(bars, chart.Value{Label: c.Class, Value: float64(c.Count)})
		top = max(top, c.Count)
	}

	graph := chart.BarChart{
		Title:    "Blood Cell Distribution",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Name:  "Count",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(top)},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
