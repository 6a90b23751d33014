package model

import "image"

// Metadata describes an exported detector.
type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// Detection is one object found in the source image, in source pixels.
type Detection struct {
	Class      string
	Confidence float32
	Box        image.Rectangle
}

// Thresholds control which raw candidates survive postprocessing.
type Thresholds struct {
	Confidence float32
	IoU        float32
}
