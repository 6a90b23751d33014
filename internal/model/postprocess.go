package model

import "sort"

type candidate struct {
	x1, y1, x2, y2 float32
	score          float32
	class          int
}

func (c candidate) area() float32 {
	return (c.x2 - c.x1) * (c.y2 - c.y1)
}

func iou(a, b candidate) float32 {
	ix1, iy1 := max(a.x1, b.x1), max(a.y1, b.y1)
	ix2, iy2 := min(a.x2, b.x2), min(a.y2, b.y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	union := a.area() + b.area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// decode reads a [4+classes, n] feature-major output: cx, cy, w, h rows
// followed by one score row per class.
func decode(out []float32, classes, n int, threshold float32) []candidate {
	var res []candidate
	for i := 0; i < n; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := out[(4+c)*n+i]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}

		cx, cy, w, h := out[i], out[n+i], out[2*n+i], out[3*n+i]
		res = append(res, candidate{
			x1:    cx - w/2,
			y1:    cy - h/2,
			x2:    cx + w/2,
			y2:    cy + h/2,
			score: bestScore,
			class: best,
		})
	}
	return res
}

// nonMaxSuppression keeps the best-scoring box of each overlapping group
// within a class.
func nonMaxSuppression(cands []candidate, threshold float32) []candidate {
	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].score > sorted[j].score
	})

	kept := make([]candidate, 0, len(sorted))
	for _, c := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && iou(k, c) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}
