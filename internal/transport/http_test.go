package transport_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"policy-onboarding/internal/log"
	"policy-onboarding/internal/model"
	"policy-onboarding/internal/transport"
)

type seen struct {
	method string
	path   string
	key    string
	body   map[string]any
}

func serve(
	t *testing.T, h fasthttp.RequestHandler,
) *transport.HTTP {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	return transport.NewHTTPWithClient(
		client, "http://backend/api/", 2*time.Second, log.Discard(),
	)
}

func TestRequestCreated(t *testing.T) {
	calls := make(chan seen, 1)
	tr := serve(t, func(ctx *fasthttp.RequestCtx) {
		var body map[string]any
		_ = json.Unmarshal(ctx.PostBody(), &body)
		calls <- seen{
			method: string(ctx.Method()),
			path:   string(ctx.Path()),
			key:    string(ctx.Request.Header.Peek("Idempotency-Key")),
			body:   body,
		}
		ctx.SetStatusCode(fasthttp.StatusCreated)
		ctx.SetBodyString(`{"id": 101, "name": "Thandi"}`)
	})

	ctx := transport.WithIdempotencyKey(context.Background(), "sess:client")
	resp, err := tr.Request(ctx, "POST", "/clients", map[string]string{"name": "Thandi"})
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusCreated, resp.Status)

	id, err := resp.ID()
	require.NoError(t, err)
	assert.Equal(t, model.ID("101"), id)

	got := <-calls
	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "/api/clients", got.path)
	assert.Equal(t, "sess:client", got.key)
	assert.Equal(t, "Thandi", got.body["name"])
}

func TestRequestErrorStatus(t *testing.T) {
	tr := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusUnprocessableEntity)
		ctx.SetBodyString(`{"message": "idNumber already registered"}`)
	})

	resp, err := tr.Request(context.Background(), "POST", "/clients", nil)
	assert.Nil(t, resp)

	var se *transport.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, fasthttp.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, "idNumber already registered", se.Message)
	assert.Equal(t, "/clients", se.Path)
}

func TestRequestPlainTextError(t *testing.T) {
	tr := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
		ctx.SetBodyString("upstream down\n")
	})

	_, err := tr.Request(context.Background(), "GET", "/agents", nil)
	var se *transport.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "upstream down", se.Message)
}

func TestRequestLongErrorKeepsRunes(t *testing.T) {
	tr := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("x" + strings.Repeat("é", 600))
	})

	_, err := tr.Request(context.Background(), "GET", "/agents", nil)
	var se *transport.StatusError
	require.ErrorAs(t, err, &se)
	assert.LessOrEqual(t, len(se.Message), 512)
	assert.True(t, utf8.ValidString(se.Message))
	assert.True(t, strings.HasSuffix(se.Message, "é"))
}

func TestResponseIDVariants(t *testing.T) {
	r := &transport.Response{Body: []byte(`{"id":"cl-9"}`)}
	id, err := r.ID()
	require.NoError(t, err)
	assert.Equal(t, model.ID("cl-9"), id)

	r = &transport.Response{Body: []byte(`{"name":"x"}`)}
	_, err = r.ID()
	assert.ErrorIs(t, err, transport.ErrMissingID)
}
