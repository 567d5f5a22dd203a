// Package inference talks to the external model-serving process. Each model
// is reached with one JSON POST; failures are returned as *ModelError and
// never retried.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	xhttp "RiskScore/pkg/http"
)

// ErrNotConfigured is returned when no model service URL is set.
var ErrNotConfigured = errors.New("model service not configured")

// ModelError reports a failed model invocation.
type ModelError struct {
	Model  string
	Status int // HTTP status from the model service, 0 if none
	Err    error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s model: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// HTTPServiceBase holds the client and base URL shared by the model clients.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a client for the model service at baseURL.
func NewHTTPServiceBase(baseURL string, timeout time.Duration, opts ...xhttp.ClientOption) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(opts...),
	}
}

// Configured reports whether a base URL is set.
func (b *HTTPServiceBase) Configured() bool {
	return b != nil && b.baseURL != ""
}

// Ping checks that the model service answers its health route.
func (b *HTTPServiceBase) Ping(ctx context.Context) error {
	if !b.Configured() {
		return ErrNotConfigured
	}
	return b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    b.baseURL + "/healthz",
	}, nil)
}

// PostJSON posts payload to path under baseURL and decodes the JSON reply
// into dest. Errors come back as *ModelError tagged with model.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, model, path string, payload, dest interface{}) error {
	if !b.Configured() {
		return &ModelError{Model: model, Err: ErrNotConfigured}
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		me := &ModelError{Model: model, Err: fmt.Errorf("post %s: %w", path, err)}
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			me.Status = se.Code
		}
		return me
	}
	return nil
}
