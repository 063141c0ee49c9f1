// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

// Package inference calls the remote model-serving endpoint for object
// detection and next-item prediction.
//
// Both models speak the same envelope:
//
//	POST {endpoint}/v1/projects/{project}/models/{model}:predict
//	{"instances": [...]}  ->  {"predictions": [...]} | {"error": ...}
//
// A response that carries an error field or cannot be parsed yields
// ErrNoPrediction. Client timeouts yield ErrPredictTimeout so callers can
// retry them; any other transport failure is returned as is.
package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2/google"

	"github.com/tomtom215/cartsense/internal/eventprocessor"
)

// Auth modes.
const (
	AuthGoogle = "google"
	AuthNone   = "none"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

var (
	// ErrNoPrediction means the endpoint answered without a usable prediction.
	ErrNoPrediction = errors.New("inference: no prediction")

	// ErrPredictTimeout means the request timed out before a response arrived.
	ErrPredictTimeout = errors.New("inference: request timed out")
)

// Config configures the endpoint client.
type Config struct {
	Endpoint      string        `koanf:"endpoint" validate:"required,url"`
	Project       string        `koanf:"project" validate:"required"`
	DetectModel   string        `koanf:"detect_model" validate:"required"`
	SequenceModel string        `koanf:"sequence_model" validate:"required"`
	Auth          string        `koanf:"auth" validate:"oneof=google none"`
	Timeout       time.Duration `koanf:"timeout" validate:"min=0"`
}

// DefaultConfig returns defaults for everything except the endpoint and project.
func DefaultConfig() Config {
	return Config{
		DetectModel:   "cart-detector",
		SequenceModel: "next-item",
		Auth:          AuthGoogle,
		Timeout:       30 * time.Second,
	}
}

// Client calls the prediction endpoint. It is safe for concurrent use.
//
// Each model has its own breaker so a stalling sequence model cannot take
// detection down with it.
type Client struct {
	http     *http.Client
	cfg      Config
	detect   *gobreaker.CircuitBreaker[any]
	sequence *gobreaker.CircuitBreaker[any]
}

// NewClient builds a Client. With Auth "google" requests carry an OAuth2
// bearer token from Application Default Credentials.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var hc *http.Client
	switch cfg.Auth {
	case AuthGoogle, "":
		authed, err := google.DefaultClient(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("google default credentials: %w", err)
		}
		hc = authed
	case AuthNone:
		hc = &http.Client{}
	default:
		return nil, fmt.Errorf("unknown inference auth %q", cfg.Auth)
	}
	return NewClientWithHTTP(cfg, hc), nil
}

// NewClientWithHTTP builds a Client on an existing http.Client. The
// client's Timeout is overridden by cfg.Timeout when that is set.
func NewClientWithHTTP(cfg Config, hc *http.Client) *Client {
	if cfg.Timeout > 0 {
		clone := *hc
		clone.Timeout = cfg.Timeout
		hc = &clone
	}
	return &Client{
		http: hc,
		cfg:  cfg,
		detect: eventprocessor.NewCircuitBreaker(
			eventprocessor.DefaultCircuitBreakerConfig("inference-detect"),
			func(err error) bool { return err == nil || errors.Is(err, ErrNoPrediction) },
		),
		// Next-item timeouts are retried without limit by the engine; an
		// open breaker would turn them into hard failures.
		sequence: eventprocessor.NewCircuitBreaker(
			eventprocessor.DefaultCircuitBreakerConfig("inference-sequence"),
			func(err error) bool {
				return err == nil || errors.Is(err, ErrNoPrediction) || errors.Is(err, ErrPredictTimeout)
			},
		),
	}
}

func (c *Client) predictURL(model string) string {
	return fmt.Sprintf("%s/v1/projects/%s/models/%s:predict",
		strings.TrimRight(c.cfg.Endpoint, "/"),
		url.PathEscape(c.cfg.Project),
		url.PathEscape(model))
}

type predictRequest struct {
	Instances []interface{} `json:"instances"`
}

type predictResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
	Error       json.RawMessage   `json:"error"`
}

// predict posts one instance through cb and returns the first prediction.
func (c *Client) predict(ctx context.Context, cb *gobreaker.CircuitBreaker[any], model string, instance interface{}) (json.RawMessage, error) {
	res, err := cb.Execute(func() (any, error) {
		return c.doPredict(ctx, model, instance)
	})
	if err != nil {
		return nil, err
	}
	raw, ok := res.(json.RawMessage)
	if !ok {
		return nil, fmt.Errorf("inference: unexpected result type %T", res)
	}
	return raw, nil
}

func (c *Client) doPredict(ctx context.Context, model string, instance interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(predictRequest{Instances: []interface{}{instance}})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL(model), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(ctx, model, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("predict %s: server returned %s", model, resp.Status)
	}

	var decoded predictResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %s: decode response: %v", ErrNoPrediction, model, err)
	}
	if len(decoded.Error) > 0 && string(decoded.Error) != "null" {
		return nil, fmt.Errorf("%w: %s: %s", ErrNoPrediction, model, decoded.Error)
	}
	if len(decoded.Predictions) == 0 {
		return nil, fmt.Errorf("%w: %s: empty predictions (status %d)", ErrNoPrediction, model, resp.StatusCode)
	}
	return decoded.Predictions[0], nil
}

// classifyTransportError maps client timeouts to ErrPredictTimeout. A
// cancelled parent context is returned unchanged.
func classifyTransportError(ctx context.Context, model string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrPredictTimeout, model, err)
	}
	return fmt.Errorf("predict %s: %w", model, err)
}
