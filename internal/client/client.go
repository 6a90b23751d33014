package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const (
	PredictPath = "/predict"
	FormField   = "image"
)

// Client submits images to the prediction service.
type Client struct {
	http *resty.Client
}

type Option func(*resty.Client)

func WithLogger(l *log.Logger) Option {
	return func(rc *resty.Client) {
		rc.SetLogger(l)
	}
}

// New returns a client for the service rooted at baseURL. No timeout is set:
// a request lives as long as the transport lets it.
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(0).
		SetLogger(log.StandardLogger())
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// Predict uploads the file as the single "image" part of a multipart form
// and decodes the service's answer. Non-2xx responses are failures even when
// their body would parse.
func (c *Client) Predict(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader(FormField, filename, r).
		Post(PredictPath)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, &Error{
			Kind:   KindStatus,
			Status: resp.StatusCode(),
			Err:    fmt.Errorf("%s", http.StatusText(resp.StatusCode())),
		}
	}

	var result Result
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &Error{Kind: KindSchema, Status: resp.StatusCode(), Err: err}
	}
	if err := result.validate(); err != nil {
		return nil, &Error{Kind: KindSchema, Status: resp.StatusCode(), Err: err}
	}

	return &result, nil
}
