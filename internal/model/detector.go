package model

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	ort "github.com/yalue/onnxruntime_go"
)

// Detector runs a YOLO-style ONNX model over blood smear images.
type Detector struct {
	Metadata   Metadata
	thresholds Thresholds

	// the session reads and writes the shared tensors in place
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// LoadMetadata reads and checks the model's metadata file.
func LoadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if metadata.InputName == "" {
		metadata.InputName = "images"
	}
	if metadata.OutputName == "" {
		metadata.OutputName = "output0"
	}
	if err := metadata.validate(); err != nil {
		return Metadata{}, fmt.Errorf("invalid metadata: %w", err)
	}
	return metadata, nil
}

func (m Metadata) validate() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("no classes")
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("image_size must be positive")
	}
	if len(m.InputShape) != 4 || m.InputShape[1] != 3 ||
		m.InputShape[2] != int64(m.ImageSize) || m.InputShape[3] != int64(m.ImageSize) {
		return fmt.Errorf("input_shape %v does not match a 3x%dx%d image", m.InputShape, m.ImageSize, m.ImageSize)
	}
	if len(m.OutputShape) != 3 || m.OutputShape[1] != int64(4+len(m.Classes)) {
		return fmt.Errorf("output_shape %v does not carry 4 box values and %d class scores", m.OutputShape, len(m.Classes))
	}
	return nil
}

// NewDetector initializes onnxruntime and loads the model. libPath may be
// empty to use the platform's default shared library.
func NewDetector(modelPath, metadataPath, libPath string, thresholds Thresholds) (*Detector, error) {
	metadata, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Detector{
		Metadata:     metadata,
		thresholds:   thresholds,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (d *Detector) Classes() []string {
	return d.Metadata.Classes
}

// Detect returns the detections in img after thresholding and NMS.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	lb := letterbox(img, d.Metadata.ImageSize)

	d.mu.Lock()
	defer d.mu.Unlock()

	lb.fill(d.inputTensor.GetData())
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	candidates := int(d.Metadata.OutputShape[2])
	raw := decode(d.outputTensor.GetData(), len(d.Metadata.Classes), candidates, d.thresholds.Confidence)
	kept := nonMaxSuppression(raw, d.thresholds.IoU)

	return lb.project(kept, d.Metadata.Classes, img.Bounds()), nil
}

func (d *Detector) Close() error {
	var result *multierror.Error
	if d.inputTensor != nil {
		result = multierror.Append(result, d.inputTensor.Destroy())
	}
	if d.outputTensor != nil {
		result = multierror.Append(result, d.outputTensor.Destroy())
	}
	if d.session != nil {
		result = multierror.Append(result, d.session.Destroy())
	}
	result = multierror.Append(result, ort.DestroyEnvironment())
	return result.ErrorOrNil()
}
