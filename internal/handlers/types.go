package handlers

// BoxResponse is a detection as drawn on the returned image.
type BoxResponse struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	W          int     `json:"w"`
	H          int     `json:"h"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Color      string  `json:"color"`
}

type PredictionResponse struct {
	Counts map[string]int `json:"counts"`
	Boxes  []BoxResponse  `json:"boxes"`
	Image  string         `json:"image"`
}

type errorResponse struct {
	Error string `json:"error"`
}
