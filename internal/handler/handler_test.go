package handler_test

import (
	"context"
	"net"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"policy-onboarding/internal/handler"
	"policy-onboarding/internal/jsonpatch"
	"policy-onboarding/internal/log"
	"policy-onboarding/internal/model"
	"policy-onboarding/internal/orchestrator"
	"policy-onboarding/internal/refdata"
	"policy-onboarding/internal/transport"
	"policy-onboarding/internal/wizard"
)

type (
	creatorFunc func(orchestrator.Submission) *orchestrator.Result

	client struct {
		t *testing.T
		c *fasthttp.Client
	}
)

func (f creatorFunc) Create(
	_ context.Context, sub orchestrator.Submission,
) *orchestrator.Result {
	return f(sub)
}

func okCreator(sub orchestrator.Submission) *orchestrator.Result {
	return &orchestrator.Result{PolicyNumber: sub.Policy.PolicyNumber}
}

func failingCreator(orchestrator.Submission) *orchestrator.Result {
	return &orchestrator.Result{
		FailedStep: orchestrator.StepPolicy,
		Err: &orchestrator.TransportError{
			Step: orchestrator.StepPolicy,
			Err:  &transport.StatusError{Method: "POST", Path: "/policies", Status: 503},
		},
	}
}

func serve(t *testing.T, creator creatorFunc) *client {
	t.Helper()
	repo := refdata.Default()
	srv := handler.New(func() (*wizard.Machine, error) {
		return wizard.New(wizard.Options{
			RefData: repo,
			Creator: creator,
			Now: func() time.Time {
				return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
			},
		})
	}, repo, log.Discard())

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, srv.Handle) }()
	t.Cleanup(func() { _ = ln.Close() })

	return &client{t: t, c: &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}}
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("http://onboarding" + path)
	req.Header.SetMethod(method)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}
	require.NoError(c.t, c.c.DoTimeout(req, resp, 2*time.Second))
	if out != nil && len(resp.Body()) > 0 {
		require.NoError(c.t, json.Unmarshal(resp.Body(), out))
	}
	return resp.StatusCode()
}

func (c *client) start() wizard.Snapshot {
	c.t.Helper()
	var snap wizard.Snapshot
	require.Equal(c.t, fasthttp.StatusCreated, c.do("POST", "/sessions", nil, &snap))
	require.NotEmpty(c.t, snap.ID)
	return snap
}

var applicant = map[string]any{"applicant": map[string]any{
	"name":     "Thandi Mokoena",
	"idNumber": "8001015009087",
	"phone":    "082 123 4567",
	"address":  "12 Main Road, Durban",
}}

func TestHealthAndReference(t *testing.T) {
	c := serve(t, okCreator)

	var health map[string]string
	assert.Equal(t, fasthttp.StatusOK, c.do("GET", "/healthz", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var types []refdata.PolicyType
	assert.Equal(t, fasthttp.StatusOK, c.do("GET", "/reference/policy-types", nil, &types))
	assert.Len(t, types, 3)

	var agents []refdata.Agent
	assert.Equal(t, fasthttp.StatusOK, c.do("GET", "/reference/agents", nil, &agents))
	assert.Len(t, agents, 2)

	assert.Equal(t, fasthttp.StatusNotFound, c.do("GET", "/reference/banks", nil, nil))
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, c.do("POST", "/healthz", nil, nil))
}

func TestAdvanceRoundTrip(t *testing.T) {
	c := serve(t, okCreator)
	snap := c.start()
	base := "/sessions/" + snap.ID

	var got handler.ActionResponse
	require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/advance", applicant, &got))
	assert.Equal(t, wizard.StepChildren, got.View.View.Step)
	assert.Equal(t, "1980-01-01", got.View.Summary.Applicant.DateOfBirth)
	assert.Contains(t, got.Changes, jsonpatch.Op{
		Op: jsonpatch.OpReplace, Path: "/view/step", Value: "children",
	})

	var again wizard.Snapshot
	require.Equal(t, fasthttp.StatusOK, c.do("GET", base, nil, &again))
	assert.Equal(t, wizard.StepChildren, again.View.Step)
}

func TestValidationFailure(t *testing.T) {
	c := serve(t, okCreator)
	snap := c.start()

	var got handler.ErrorResponse
	status := c.do("POST", "/sessions/"+snap.ID+"/advance",
		map[string]any{"applicant": map[string]any{"name": "Thandi"}}, &got)
	assert.Equal(t, fasthttp.StatusUnprocessableEntity, status)
	_, ok := got.FieldErrors.Field("applicant.idNumber")
	assert.True(t, ok)
	require.NotNil(t, got.View)
	assert.Equal(t, wizard.StepMainMember, got.View.View.Step)
	assert.NotEmpty(t, got.View.FieldErrors)
}

func TestIllegalActionsAndMissingSession(t *testing.T) {
	c := serve(t, okCreator)
	snap := c.start()
	base := "/sessions/" + snap.ID

	assert.Equal(t, fasthttp.StatusConflict, c.do("POST", base+"/back", nil, nil))
	assert.Equal(t, fasthttp.StatusConflict, c.do("POST", base+"/skip", nil, nil))
	assert.Equal(t, fasthttp.StatusConflict, c.do("POST", base+"/subview",
		map[string]string{"subView": "add_beneficiary"}, nil))
	assert.Equal(t, fasthttp.StatusBadRequest, c.do("POST", base+"/dependents",
		"not an object", nil))
	assert.Equal(t, fasthttp.StatusNotFound, c.do("POST", base+"/fly", nil, nil))
	assert.Equal(t, fasthttp.StatusNotFound, c.do("GET", "/sessions/nope", nil, nil))
	assert.Equal(t, fasthttp.StatusNotFound, c.do("POST", "/sessions/nope/back", nil, nil))

	assert.Equal(t, fasthttp.StatusNoContent, c.do("DELETE", base, nil, nil))
	assert.Equal(t, fasthttp.StatusNotFound, c.do("GET", base, nil, nil))
}

func TestDependentsAndQuote(t *testing.T) {
	c := serve(t, okCreator)
	snap := c.start()
	base := "/sessions/" + snap.ID
	require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/advance", applicant, nil))

	var got handler.ActionResponse
	require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/dependents",
		model.Dependent{Name: "Lwazi", IDNumber: "1503125800088", Relationship: model.RelChild},
		&got))
	require.NotNil(t, got.Index)
	assert.Equal(t, 0, *got.Index)
	require.Len(t, got.View.Summary.Dependents, 1)
	assert.Equal(t, "2015-03-12", got.View.Summary.Dependents[0].DateOfBirth)

	var quote map[string]any
	require.Equal(t, fasthttp.StatusOK,
		c.do("GET", base+"/quote?policyTypeId=funeral-basic&frequency=annually", nil, &quote))
	assert.InDelta(t, (99.0+15.0)*12, quote["premium"], 0.001)

	var errResp handler.ErrorResponse
	assert.Equal(t, fasthttp.StatusUnprocessableEntity, c.do("POST", base+"/dependents",
		model.Dependent{Name: "Sipho", Relationship: model.RelSpouse}, &errResp))

	assert.Equal(t, fasthttp.StatusNotFound, c.do("DELETE", base+"/dependents/4", nil, nil))
	assert.Equal(t, fasthttp.StatusBadRequest, c.do("DELETE", base+"/dependents/x", nil, nil))
	require.Equal(t, fasthttp.StatusOK, c.do("DELETE", base+"/dependents/0", nil, &got))
	assert.Empty(t, got.View.Summary.Dependents)
}

func TestSubmitFailureMapsToBadGateway(t *testing.T) {
	c := serve(t, failingCreator)
	snap := c.start()
	base := "/sessions/" + snap.ID

	require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/advance", applicant, nil))
	for range 3 {
		require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/skip", nil, nil))
	}
	require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/beneficiaries",
		model.Beneficiary{Name: "Sipho", Relationship: model.RelSpouse, Percentage: 100}, nil))
	require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/advance", nil, nil))
	require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/advance", map[string]any{
		"paymentMethod": "pay_at_store",
		"payment":       map[string]any{"preferredStore": "Shoprite Umlazi"},
	}, nil))
	require.Equal(t, fasthttp.StatusOK, c.do("POST", base+"/advance", nil, nil))

	var got handler.ErrorResponse
	status := c.do("POST", base+"/submit", map[string]any{"policy": map[string]any{
		"policyTypeId": "funeral-basic", "premium": 99, "frequency": "monthly",
	}}, &got)
	assert.Equal(t, fasthttp.StatusBadGateway, status)
	assert.Equal(t, orchestrator.StepPolicy, got.FailedStep)
	require.NotNil(t, got.View)
	assert.Equal(t, wizard.StepPolicyDetails, got.View.View.Step)
}
