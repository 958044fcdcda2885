package transport

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"policy-onboarding/internal/log"
)

// HTTP is a Transport backed by a fasthttp client.
type HTTP struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

var _ Transport = (*HTTP)(nil)

const maxErrorMessage = 512

func NewHTTP(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTP {
	return NewHTTPWithClient(&fasthttp.Client{
		Name:                "policy-onboarding",
		MaxConnsPerHost:     100,
		MaxIdleConnDuration: 90 * time.Second,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
	}, baseURL, timeout, logger)
}

// NewHTTPWithClient uses the supplied client, e.g. one dialing an
// in-memory listener.
func NewHTTPWithClient(
	client *fasthttp.Client, baseURL string, timeout time.Duration,
	logger *slog.Logger,
) *HTTP {
	return &HTTP{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

func (t *HTTP) Request(
	ctx context.Context, method, path string, body any,
) (*Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(t.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if key, ok := IdempotencyKey(ctx); ok {
		req.Header.Set("Idempotency-Key", key)
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(b)
	}

	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout || timeout == 0 {
			timeout = left
		}
	}

	start := time.Now()
	var err error
	if timeout > 0 {
		err = t.client.DoTimeout(req, resp, timeout)
	} else {
		err = t.client.Do(req, resp)
	}
	dur := time.Since(start)
	if err != nil {
		t.logger.Error("Backend request failed",
			slog.String("operation", Operation(ctx)),
			slog.String("method", method),
			slog.String("path", path),
			slog.Duration("duration", dur),
			log.Error(err))
		return nil, err
	}

	status := resp.StatusCode()
	respBody := append([]byte(nil), resp.Body()...)
	if status < 200 || status > 299 {
		t.logger.Warn("Backend returned error status",
			slog.String("operation", Operation(ctx)),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status_code", status),
			slog.Duration("duration", dur))
		return nil, &StatusError{
			Method:  method,
			Path:    path,
			Status:  status,
			Message: errorMessage(respBody),
		}
	}

	t.logger.Debug("Backend request completed",
		slog.String("operation", Operation(ctx)),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status_code", status),
		slog.Duration("duration", dur))
	return &Response{Status: status, Body: respBody}, nil
}

// errorMessage prefers a "message" or "error" field from a JSON body and
// falls back to the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	return truncate(msg, maxErrorMessage)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
