package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"math"
	"net/http"
	"path"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/hemacount/internal/annotate"
	"github.com/Brownie44l1/hemacount/internal/model"
	"github.com/Brownie44l1/hemacount/internal/report"
)

const (
	processedName = "processed.jpg"
	noReport      = "No report available. Please analyze an image first."
)

type Detector interface {
	Classes() []string
	Detect(img image.Image) ([]model.Detection, error)
}

type Options struct {
	// OutputDir receives the annotated image.
	OutputDir string
	// OutputURL is the public path OutputDir is served under.
	OutputURL     string
	MaxUploadSize int64
	Registerer    prometheus.Registerer
	Logger        log.FieldLogger
}

type Handler struct {
	detector Detector
	latest   *report.Latest
	opts     Options
	metrics  *metrics
	log      log.FieldLogger
	now      func() time.Time
}

func NewHandler(detector Detector, opts Options) *Handler {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Handler{
		detector: detector,
		latest:   &report.Latest{},
		opts:     opts,
		metrics:  newMetrics(opts.Registerer),
		log:      opts.Logger,
		now:      time.Now,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// Predict takes a multipart upload in the "image" field, counts the cells
// on it and answers with the counts, the boxes and the annotated image path.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(h.opts.MaxUploadSize); err != nil {
		h.fail(w, "bad_request", "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.fail(w, "bad_request", "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	logger := h.log.WithFields(log.Fields{"file": header.Filename, "size": header.Size})

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		logger.WithError(err).Info("rejected undecodable upload")
		h.fail(w, "bad_request", "Invalid image format. Supported: JPEG, PNG, GIF", http.StatusBadRequest)
		return
	}

	started := time.Now()
	dets, err := h.detector.Detect(img)
	h.metrics.inference.Observe(time.Since(started).Seconds())
	if err != nil {
		logger.WithError(err).Error("prediction failed")
		h.fail(w, "error", "Prediction failed", http.StatusInternalServerError)
		return
	}

	annotated, err := annotate.Encode(annotate.Draw(img, dets))
	if err != nil {
		logger.WithError(err).Error("failed to encode annotated image")
		h.fail(w, "error", "Failed to store result", http.StatusInternalServerError)
		return
	}
	if err := annotate.WriteFile(filepath.Join(h.opts.OutputDir, processedName), annotated); err != nil {
		logger.WithError(err).Error("failed to store annotated image")
		h.fail(w, "error", "Failed to store result", http.StatusInternalServerError)
		return
	}

	resp, rows := h.summarize(dets, img.Bounds().Min)
	resp.Image = path.Join(h.opts.OutputURL, processedName)

	h.latest.Set(report.Analysis{Counts: rows, Image: annotated, At: h.now()})
	for class, n := range resp.Counts {
		h.metrics.cells.WithLabelValues(class).Add(float64(n))
	}
	h.metrics.predictions.WithLabelValues("ok").Inc()

	logger.WithFields(log.Fields{
		"detections": len(dets),
		"took":       time.Since(started).String(),
	}).Info("image analyzed")

	respondJSON(w, resp, http.StatusOK)
}

// summarize counts detections per class, every known class starting at zero.
func (h *Handler) summarize(dets []model.Detection, origin image.Point) (PredictionResponse, []report.CellCount) {
	classes := h.detector.Classes()
	counts := make(map[string]int, len(classes))
	for _, c := range classes {
		counts[c] = 0
	}

	boxes := make([]BoxResponse, 0, len(dets))
	for _, d := range dets {
		counts[d.Class]++
		b := d.Box.Sub(origin)
		boxes = append(boxes, BoxResponse{
			X:          b.Min.X,
			Y:          b.Min.Y,
			W:          b.Dx(),
			H:          b.Dy(),
			Label:      d.Class,
			Confidence: math.Round(float64(d.Confidence)*1000) / 10,
			Color:      annotate.CSS(annotate.ColorOf(d.Class)),
		})
	}

	rows := make([]report.CellCount, 0, len(classes))
	for _, c := range classes {
		rows = append(rows, report.CellCount{Class: c, Count: counts[c]})
	}
	return PredictionResponse{Counts: counts, Boxes: boxes}, rows
}

// DownloadReport streams the PDF report of the latest analysis.
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	analysis, ok := h.latest.Get()
	if !ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(noReport))
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, analysis); err != nil {
		h.log.WithError(err).Error("failed to build report")
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
	w.Write(buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, outcome, message string, status int) {
	h.metrics.predictions.WithLabelValues(outcome).Inc()
	respondJSON(w, errorResponse{Error: message}, status)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
