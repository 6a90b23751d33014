package client

import "fmt"

// Count keys reported by the prediction service.
const (
	KeyRBC       = "RBC"
	KeyWBC       = "WBC"
	KeyPlatelets = "Platelets"
)

// Counts is the per-category tally of one processed image. Keys the
// service leaves out decode as zero.
type Counts struct {
	RBC       int `json:"RBC"`
	WBC       int `json:"WBC"`
	Platelets int `json:"Platelets"`
}

// Result is the body of a successful /predict call.
type Result struct {
	Image  string  `json:"image"`
	Counts *Counts `json:"counts"`
}

func (r *Result) validate() error {
	if r.Image == "" {
		return fmt.Errorf("missing image reference")
	}
	if r.Counts == nil {
		return fmt.Errorf("missing counts")
	}
	for key, n := range map[string]int{KeyRBC: r.Counts.RBC, KeyWBC: r.Counts.WBC, KeyPlatelets: r.Counts.Platelets} {
		if n < 0 {
			return fmt.Errorf("negative %s count %d", key, n)
		}
	}
	return nil
}
