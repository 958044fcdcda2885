package transport

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"policy-onboarding/internal/model"
)

type (
	// Transport sends one request to the backend. Non-2xx answers come back
	// as *StatusError, never as a Response.
	Transport interface {
		Request(ctx context.Context, method, path string, body any) (*Response, error)
	}

	// Response is a successful backend answer.
	Response struct {
		Status int
		Body   json.RawMessage
	}

	// StatusError is a non-2xx backend answer.
	StatusError struct {
		Method  string
		Path    string
		Status  int
		Message string
	}
)

var ErrMissingID = errors.New("response carries no id")

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// ID returns the "id" field of a created entity.
func (r *Response) ID() (model.ID, error) {
	var out struct {
		ID model.ID `json:"id"`
	}
	if err := r.Decode(&out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", ErrMissingID
	}
	return out.ID, nil
}

type idempotencyKey struct{}

// WithIdempotencyKey attaches a key that the transport forwards so the
// backend can recognise a resubmitted create.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// IdempotencyKey returns the key attached by WithIdempotencyKey.
func IdempotencyKey(ctx context.Context) (string, bool) {
	k, ok := ctx.Value(idempotencyKey{}).(string)
	return k, ok && k != ""
}

type operation struct{}

// WithOperation names the call for logging, e.g. "dependent[2]".
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operation{}, name)
}

func Operation(ctx context.Context) string {
	name, _ := ctx.Value(operation{}).(string)
	return name
}
