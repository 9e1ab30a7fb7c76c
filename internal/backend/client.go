package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"image-studio-client/internal/apperr"
)

// TokenSource supplies the bearer credential. *session.Store implements it.
type TokenSource interface {
	Token() (string, error)
}

type Client struct {
	baseURL        string
	tokens         TokenSource
	httpClient     *http.Client
	requestTimeout time.Duration
	processTimeout time.Duration
	logger         *slog.Logger
}

type Options struct {
	RequestTimeout time.Duration
	ProcessTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

func NewClient(baseURL string, tokens TokenSource, opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.ProcessTimeout <= 0 {
		opts.ProcessTimeout = 60 * time.Second
	}
	if opts.HTTPClient == nil {
		// Deadlines come from per-request contexts so the process call can
		// outlive the default timeout.
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		tokens:         tokens,
		httpClient:     opts.HTTPClient,
		requestTimeout: opts.RequestTimeout,
		processTimeout: opts.ProcessTimeout,
		logger:         opts.Logger,
	}
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	anonymous   bool
	timeout     time.Duration
	accept      []int
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do executes r and decodes a successful response into out (when non-nil).
// It returns the HTTP status for callers that care about the exact code.
func (c *Client) do(ctx context.Context, r request, out any) (int, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.baseURL + "/" + strings.TrimPrefix(r.path, "/")
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, r.body)
	if err != nil {
		return 0, &apperr.TransportError{Op: r.op, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if !r.anonymous {
		token, err := c.tokens.Token()
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", "op", r.op, "request_id", requestID, "err", err)
		msg := ""
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "request timed out"
		}
		return 0, &apperr.TransportError{Op: r.op, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &apperr.TransportError{Op: r.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("backend request",
		"op", r.op,
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if !accepted(resp.StatusCode, r.accept) {
		return resp.StatusCode, statusError(r.op, resp.StatusCode, body)
	}

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, &apperr.TransportError{
				Op:         r.op,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("failed to decode response: %w", err),
			}
		}
	}
	return resp.StatusCode, nil
}

func accepted(status int, accept []int) bool {
	if len(accept) == 0 {
		return status >= 200 && status < 300
	}
	for _, code := range accept {
		if status == code {
			return true
		}
	}
	return false
}

// statusError maps a failed response onto the error taxonomy, surfacing the
// backend's own message when it sent one.
func statusError(op string, status int, body []byte) error {
	msg := backendMessage(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg == "" {
			msg = "session expired or invalid, please log in again"
		}
		return &apperr.AuthError{Message: msg}
	case http.StatusNotFound, http.StatusConflict:
		return &apperr.NotFoundError{Op: op, StatusCode: status, Message: msg}
	default:
		return &apperr.TransportError{Op: op, StatusCode: status, Message: msg}
	}
}

func backendMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var errText string
	if err := json.Unmarshal(payload.Error, &errText); err == nil {
		return errText
	}
	var errObj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &errObj); err == nil {
		return errObj.Message
	}
	return ""
}
