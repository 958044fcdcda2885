package handler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"policy-onboarding/internal/jsonpatch"
	"policy-onboarding/internal/log"
	"policy-onboarding/internal/model"
	"policy-onboarding/internal/refdata"
	"policy-onboarding/internal/wizard"
)

type (
	// Factory starts a new wizard session.
	Factory func() (*wizard.Machine, error)

	// Server exposes wizard sessions and reference data over HTTP.
	Server struct {
		newMachine Factory
		refdata    refdata.Repository
		sessions   *sessions
		logger     *slog.Logger
	}

	// action mutates a locked machine. A non-nil index is echoed back to
	// the client, e.g. the position of an added dependent.
	action func(ctx *fasthttp.RequestCtx, m *wizard.Machine) (*int, error)

	subViewRequest struct {
		SubView wizard.SubView `json:"subView"`
	}

	quoteResponse struct {
		PolicyTypeID string          `json:"policyTypeId"`
		Frequency    model.Frequency `json:"frequency"`
		Premium      float64         `json:"premium"`
	}
)

func New(
	factory Factory, repo refdata.Repository, logger *slog.Logger,
) *Server {
	return &Server{
		newMachine: factory,
		refdata:    repo,
		sessions:   newSessions(),
		logger:     logger,
	}
}

// Handle routes a request. It is a fasthttp.RequestHandler.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	segs := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")
	method := string(ctx.Method())

	switch {
	case len(segs) == 1 && segs[0] == "healthz":
		s.only(ctx, method, fasthttp.MethodGet, func() {
			writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
		})
	case len(segs) == 2 && segs[0] == "reference":
		s.only(ctx, method, fasthttp.MethodGet, func() { s.reference(ctx, segs[1]) })
	case len(segs) == 1 && segs[0] == "sessions":
		s.only(ctx, method, fasthttp.MethodPost, func() { s.create(ctx) })
	case len(segs) == 2 && segs[0] == "sessions":
		s.session(ctx, method, segs[1])
	case len(segs) == 3 && segs[0] == "sessions":
		s.sessionAction(ctx, method, segs[1], segs[2])
	case len(segs) == 4 && segs[0] == "sessions":
		s.only(ctx, method, fasthttp.MethodDelete, func() {
			s.removeAt(ctx, segs[1], segs[2], segs[3])
		})
	default:
		s.writeError(ctx, fmt.Errorf("%w: %s", errNotFound, ctx.Path()), nil)
	}
}

func (s *Server) only(
	ctx *fasthttp.RequestCtx, got, want string, fn func(),
) {
	if got != want {
		methodNotAllowed(ctx)
		return
	}
	fn()
}

func methodNotAllowed(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, ErrorResponse{
		Status:  fasthttp.StatusMethodNotAllowed,
		Message: "method not allowed",
	})
}

func (s *Server) reference(ctx *fasthttp.RequestCtx, name string) {
	switch name {
	case "policy-types":
		writeJSON(ctx, fasthttp.StatusOK, s.refdata.PolicyTypes())
	case "agents":
		writeJSON(ctx, fasthttp.StatusOK, s.refdata.Agents())
	default:
		s.writeError(ctx, fmt.Errorf("%w: reference list %q", errNotFound, name), nil)
	}
}

func (s *Server) create(ctx *fasthttp.RequestCtx) {
	m, err := s.newMachine()
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	s.sessions.put(m)
	s.logger.Info("Session started", log.SessionID(m.ID()))
	writeJSON(ctx, fasthttp.StatusCreated, m.Snapshot())
}

func (s *Server) session(ctx *fasthttp.RequestCtx, method, id string) {
	switch method {
	case fasthttp.MethodGet:
		sess, ok := s.sessions.get(id)
		if !ok {
			s.writeError(ctx, fmt.Errorf("%w: %s", errSessionNotFound, id), nil)
			return
		}
		sess.mu.Lock()
		snap := sess.machine.Snapshot()
		sess.mu.Unlock()
		writeJSON(ctx, fasthttp.StatusOK, snap)
	case fasthttp.MethodDelete:
		if !s.sessions.delete(id) {
			s.writeError(ctx, fmt.Errorf("%w: %s", errSessionNotFound, id), nil)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	default:
		methodNotAllowed(ctx)
	}
}

func (s *Server) sessionAction(
	ctx *fasthttp.RequestCtx, method, id, name string,
) {
	if name == "quote" {
		s.only(ctx, method, fasthttp.MethodGet, func() { s.quote(ctx, id) })
		return
	}

	var act action
	switch name {
	case "advance":
		act = func(ctx *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			var d model.Draft
			if err := decode(ctx, &d); err != nil {
				return nil, err
			}
			_, err := m.Advance(ctx, d)
			return nil, err
		}
	case "submit":
		act = func(ctx *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			var d model.Draft
			if err := decode(ctx, &d); err != nil {
				return nil, err
			}
			_, err := m.Submit(ctx, d)
			return nil, err
		}
	case "back":
		act = func(_ *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			_, err := m.Back()
			return nil, err
		}
	case "skip":
		act = func(_ *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			_, err := m.Skip()
			return nil, err
		}
	case "dependents":
		act = func(ctx *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			var d model.Dependent
			if err := decode(ctx, &d); err != nil {
				return nil, err
			}
			return index(m.AddDependent(d))
		}
	case "beneficiaries":
		act = func(ctx *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			var b model.Beneficiary
			if err := decode(ctx, &b); err != nil {
				return nil, err
			}
			return index(m.AddBeneficiary(b))
		}
	case "subview":
		act = func(ctx *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			var req subViewRequest
			if err := decode(ctx, &req); err != nil {
				return nil, err
			}
			if req.SubView == "" || req.SubView == wizard.SubViewNone {
				m.CloseSubView()
				return nil, nil
			}
			return nil, m.OpenSubView(req.SubView)
		}
	default:
		s.writeError(ctx, fmt.Errorf("%w: action %q", errNotFound, name), nil)
		return
	}

	s.only(ctx, method, fasthttp.MethodPost, func() { s.run(ctx, id, act) })
}

func (s *Server) removeAt(ctx *fasthttp.RequestCtx, id, list, rawIndex string) {
	i, err := strconv.Atoi(rawIndex)
	if err != nil {
		s.writeError(ctx, fmt.Errorf("%w: index %q", errBadRequest, rawIndex), nil)
		return
	}

	var act action
	switch list {
	case "dependents":
		act = func(_ *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			return nil, m.RemoveDependent(i)
		}
	case "beneficiaries":
		act = func(_ *fasthttp.RequestCtx, m *wizard.Machine) (*int, error) {
			return nil, m.RemoveBeneficiary(i)
		}
	default:
		s.writeError(ctx, fmt.Errorf("%w: list %q", errNotFound, list), nil)
		return
	}
	s.run(ctx, id, act)
}

func (s *Server) quote(ctx *fasthttp.RequestCtx, id string) {
	sess, ok := s.sessions.get(id)
	if !ok {
		s.writeError(ctx, fmt.Errorf("%w: %s", errSessionNotFound, id), nil)
		return
	}
	args := ctx.QueryArgs()
	resp := quoteResponse{
		PolicyTypeID: string(args.Peek("policyTypeId")),
		Frequency:    model.Frequency(args.Peek("frequency")),
	}
	if resp.Frequency == "" {
		resp.Frequency = model.FrequencyMonthly
	}

	sess.mu.Lock()
	premium, err := sess.machine.QuotePremium(resp.PolicyTypeID, resp.Frequency)
	sess.mu.Unlock()
	if err != nil {
		s.writeError(ctx, err, nil)
		return
	}
	resp.Premium = premium
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

// run applies act under the session lock and answers with the new view
// and the patch from the old one.
func (s *Server) run(ctx *fasthttp.RequestCtx, id string, act action) {
	sess, ok := s.sessions.get(id)
	if !ok {
		s.writeError(ctx, fmt.Errorf("%w: %s", errSessionNotFound, id), nil)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	before := sess.machine.Snapshot()
	idx, err := act(ctx, sess.machine)
	after := sess.machine.Snapshot()
	if err != nil {
		s.writeError(ctx, err, &after)
		return
	}

	changes, err := jsonpatch.Between(before, after)
	if err != nil {
		s.writeError(ctx, err, &after)
		return
	}
	if changes == nil {
		changes = []jsonpatch.Op{}
	}
	writeJSON(ctx, fasthttp.StatusOK, ActionResponse{
		View: after, Changes: changes, Index: idx,
	})
}

func decode(ctx *fasthttp.RequestCtx, v any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func index(i int, err error) (*int, error) {
	if err != nil {
		return nil, err
	}
	return &i, nil
}
