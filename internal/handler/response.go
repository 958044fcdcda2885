package handler

import (
	"errors"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"policy-onboarding/internal/collection"
	"policy-onboarding/internal/jsonpatch"
	"policy-onboarding/internal/log"
	"policy-onboarding/internal/model"
	"policy-onboarding/internal/orchestrator"
	"policy-onboarding/internal/wizard"
)

type (
	// ErrorResponse is the body of every non-2xx answer.
	ErrorResponse struct {
		Status      int                    `json:"status"`
		Message     string                 `json:"message"`
		FieldErrors model.ValidationErrors `json:"fieldErrors,omitempty"`
		FailedStep  string                 `json:"failedStep,omitempty"`
		View        *wizard.Snapshot       `json:"view,omitempty"`
	}

	// ActionResponse is the body of a successful session action. Changes
	// is the patch from the previous view to this one.
	ActionResponse struct {
		View    wizard.Snapshot `json:"view"`
		Changes []jsonpatch.Op  `json:"changes"`
		Index   *int            `json:"index,omitempty"`
	}
)

var (
	errSessionNotFound = errors.New("session not found")
	errNotFound        = errors.New("not found")
	errBadRequest      = errors.New("bad request")
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	var verrs model.ValidationErrors
	var terr *orchestrator.TransportError
	var ierr *orchestrator.IntegrityError
	switch {
	case errors.As(err, &verrs):
		return fasthttp.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrNotAllowed), errors.Is(err, wizard.ErrTerminal):
		return fasthttp.StatusConflict
	case errors.As(err, &terr):
		return fasthttp.StatusBadGateway
	case errors.As(err, &ierr):
		return fasthttp.StatusInternalServerError
	case errors.Is(err, errSessionNotFound), errors.Is(err, errNotFound),
		errors.Is(err, collection.ErrIndexOutOfRange):
		return fasthttp.StatusNotFound
	case errors.Is(err, errBadRequest):
		return fasthttp.StatusBadRequest
	}
	return fasthttp.StatusInternalServerError
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.Error(`{"status":500,"message":"encoding failed"}`,
			fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(b)
}

func (s *Server) writeError(
	ctx *fasthttp.RequestCtx, err error, view *wizard.Snapshot,
) {
	status := statusFor(err)
	resp := ErrorResponse{Status: status, Message: err.Error(), View: view}

	var verrs model.ValidationErrors
	var terr *orchestrator.TransportError
	var ierr *orchestrator.IntegrityError
	switch {
	case errors.As(err, &verrs):
		resp.Message = "validation failed"
		resp.FieldErrors = verrs
	case errors.As(err, &terr):
		resp.FailedStep = terr.Step
	case errors.As(err, &ierr):
		resp.FailedStep = ierr.Step
	}

	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("Request failed",
			slog.String("path", string(ctx.Path())),
			slog.Int("status", status), log.Error(err))
	}
	writeJSON(ctx, status, resp)
}
