package ui

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/hemacount/internal/client"
)

const (
	MsgNoFile = "Please upload an image first"
	MsgFailed = "Error processing image"
)

type Predictor interface {
	Predict(ctx context.Context, filename string, r io.Reader) (*client.Result, error)
}

type Controller struct {
	page      Page
	urls      ObjectURLs
	predictor Predictor
	now       func() time.Time
	log       log.FieldLogger

	// latest is the token of the most recent upload; older responses are dropped.
	latest atomic.Uint64

	mu      sync.Mutex
	preview string
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func WithLogger(l log.FieldLogger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

func NewController(page Page, urls ObjectURLs, predictor Predictor, opts ...Option) *Controller {
	c := &Controller{
		page:      page,
		urls:      urls,
		predictor: predictor,
		now:       time.Now,
		log:       log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Preview shows the selected file without uploading it. With nothing
// selected it does nothing.
func (c *Controller) Preview() {
	file, ok := c.page.SelectedFile()
	if !ok {
		return
	}

	url := c.urls.Create(file)

	c.mu.Lock()
	prev := c.preview
	c.preview = url
	c.page.ShowImage(url)
	c.mu.Unlock()

	if prev != "" {
		c.urls.Revoke(prev)
	}
}

// Upload sends the selected file to the prediction service and shows the
// annotated image and counts it returns. It blocks until the response
// arrives; callers on an event loop should use StartUpload instead.
func (c *Controller) Upload(ctx context.Context) {
	if run, ok := c.StartUpload(); ok {
		run(ctx)
	}
}

// StartUpload runs the selection check synchronously. With nothing selected
// it alerts before returning and reports false. Otherwise it returns the
// network part of the upload, which may run on another goroutine.
func (c *Controller) StartUpload() (func(ctx context.Context), bool) {
	file, ok := c.page.SelectedFile()
	if !ok {
		c.page.Alert(MsgNoFile)
		return nil, false
	}
	token := c.latest.Add(1)
	return func(ctx context.Context) {
		c.upload(ctx, file, token)
	}, true
}

func (c *Controller) upload(ctx context.Context, file File, token uint64) {
	res, err := c.submit(ctx, file)

	c.mu.Lock()
	if token != c.latest.Load() {
		c.mu.Unlock()
		c.log.WithField("token", token).Debug("dropping superseded prediction response")
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.log.WithFields(log.Fields{
			"file": file.Name(),
			"kind": client.KindOf(err).String(),
		}).WithError(err).Warn("prediction failed")
		c.page.Alert(MsgFailed)
		return
	}

	c.page.ShowImage(cacheBusted(res.Image, c.now()))
	c.page.SetCounts(
		strconv.Itoa(res.Counts.RBC),
		strconv.Itoa(res.Counts.WBC),
		strconv.Itoa(res.Counts.Platelets),
	)
	prev := c.preview
	c.preview = ""
	c.mu.Unlock()

	if prev != "" {
		c.urls.Revoke(prev)
	}
}

// Close releases the live preview reference, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	prev := c.preview
	c.preview = ""
	c.mu.Unlock()

	if prev != "" {
		c.urls.Revoke(prev)
	}
}

func (c *Controller) submit(ctx context.Context, file File) (*client.Result, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return c.predictor.Predict(ctx, file.Name(), rc)
}

func cacheBusted(ref string, at time.Time) string {
	sep := "?"
	if strings.Contains(ref, "?") {
		sep = "&"
	}
	return ref + sep + "t=" + strconv.FormatInt(at.UnixMilli(), 10)
}
