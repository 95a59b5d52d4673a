// Package backend is the gateway's client for the hospital REST backend.
//
// Every method takes the request context; the upstream token of the session
// carried by that context is sent as the bearer token. Answers are
// classified into the apperr taxonomy: 404 becomes a NotFoundError, 401 and
// 403 an UnauthorizedError, anything else that is not 2xx (and any transport
// failure) a BackendError. Requests are never retried.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/platform/apperr"
	"github.com/ehr/patientflow/internal/platform/session"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the hospital backend.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		logger: logger.With().Str("component", "backend").Logger(),
	}
}

// call describes a single backend request.
type call struct {
	op     string
	method string
	path   string
	params map[string]string
	query  map[string]string
	body   interface{}
	result interface{}

	// resource and id name the addressed entity in not-found errors.
	resource string
	id       string
}

func (c *Client) do(ctx context.Context, cl call) error {
	r := c.http.R().SetContext(ctx)
	if s, ok := session.FromContext(ctx); ok && s.UpstreamToken() != "" {
		r.SetAuthToken(s.UpstreamToken())
	}
	if len(cl.params) > 0 {
		r.SetPathParams(cl.params)
	}
	if len(cl.query) > 0 {
		r.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		r.SetBody(cl.body)
	}
	if cl.result != nil {
		r.SetResult(cl.result)
	}

	start := time.Now()
	resp, err := r.Execute(cl.method, cl.path)
	if err != nil {
		c.logger.Error().Err(err).Str("op", cl.op).Msg("backend request failed")
		return &apperr.BackendError{Op: cl.op, Err: err}
	}

	c.logger.Debug().
		Str("op", cl.op).
		Int("status", resp.StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	return classify(cl, resp.StatusCode(), resp.Body())
}

func classify(cl call, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return apperr.NotFound(cl.resource, cl.id)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Unauthorized(fmt.Sprintf("backend rejected %s", cl.op))
	default:
		return &apperr.BackendError{Op: cl.op, Status: status, Err: upstreamMessage(body)}
	}
}

// upstreamMessage extracts the backend's {"message": ...} or {"error": ...}
// text when there is one.
func upstreamMessage(body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	switch {
	case payload.Message != "":
		return errors.New(payload.Message)
	case payload.Error != "":
		return errors.New(payload.Error)
	}
	return nil
}
