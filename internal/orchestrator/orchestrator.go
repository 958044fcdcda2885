package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"policy-onboarding/internal/log"
	"policy-onboarding/internal/model"
	"policy-onboarding/internal/rules"
	"policy-onboarding/internal/transport"
)

type (
	// Orchestrator creates the backend records of a completed application
	// in dependency order.
	Orchestrator struct {
		transport   transport.Transport
		concurrency int
		logger      *slog.Logger
	}

	// Submission is the accumulated session data to persist.
	Submission struct {
		SessionID     string
		Applicant     model.Applicant
		Dependents    []model.Dependent
		Beneficiaries []model.Beneficiary
		Payment       model.PaymentInstrument
		Policy        model.PolicyDraft
	}

	// Result reports how far a run got. On failure FailedStep names the
	// step and Err holds a *TransportError or *IntegrityError. CreatedIDs
	// holds every ID obtained, keyed by step name, so a caller can decide
	// how to resume.
	Result struct {
		RunID        string              `json:"runId"`
		FailedStep   string              `json:"failedStep,omitempty"`
		CreatedIDs   map[string]model.ID `json:"createdIds"`
		Completed    []string            `json:"completed"`
		PolicyNumber string              `json:"policyNumber,omitempty"`
		StartedAt    time.Time           `json:"startedAt"`
		Duration     time.Duration       `json:"duration"`
		Err          error               `json:"-"`
	}
)

const (
	StepClient            = "client"
	StepPaymentInstrument = "payment_instrument"
	StepPolicy            = "policy"

	PathClients            = "/clients"
	PathDependents         = "/dependents"
	PathPaymentInstruments = "/payment-instruments"
	PathPolicies           = "/policies"
	PathPolicyDependents   = "/policy-dependents"

	dependentKind = "dependent"
	linkKind      = "policy_dependent"

	DefaultConcurrency = 4
)

func DependentStep(i int) string { return fmt.Sprintf("dependent[%d]", i) }

func LinkStep(i int) string { return fmt.Sprintf("policy_dependent[%d]", i) }

func New(t transport.Transport, concurrency int, logger *slog.Logger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{transport: t, concurrency: concurrency, logger: logger}
}

// Create runs client → dependents → payment instrument → policy → policy
// dependent links. Dependents are created concurrently and joined before
// moving on. The first failure stops the run; nothing already created is
// rolled back and nothing is retried.
func (o *Orchestrator) Create(ctx context.Context, sub Submission) *Result {
	res := &Result{
		RunID:      uuid.NewString(),
		CreatedIDs: map[string]model.ID{},
		StartedAt:  time.Now(),
	}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	logger := o.logger.With(log.SessionID(sub.SessionID), slog.String("run_id", res.RunID))

	clientPayload := model.ClientRecord{
		Name:        sub.Applicant.Name,
		IDNumber:    sub.Applicant.IDNumber,
		DateOfBirth: sub.Applicant.DateOfBirth,
		Phone:       sub.Applicant.Phone,
		Email:       sub.Applicant.Email,
		Address:     sub.Applicant.Address,
	}
	clientID, err := o.create(ctx,
		IdempotencyKey(sub.SessionID, StepClient, Fingerprint(clientPayload)),
		StepClient, PathClients, clientPayload)
	if err != nil {
		return o.fail(logger, res, StepClient, clientPayload, err)
	}
	res.record(StepClient, clientID)

	dependentIDs, ok := o.createDependents(ctx, logger, res, clientID, sub.Dependents)
	if !ok {
		return res
	}

	if err := requireID(StepPaymentInstrument, "client id", clientID); err != nil {
		return o.fail(logger, res, StepPaymentInstrument, nil, err)
	}
	if sub.Payment == nil {
		return o.fail(logger, res, StepPaymentInstrument, nil, &IntegrityError{
			Step: StepPaymentInstrument, Missing: "payment instrument",
		})
	}
	paymentPayload := model.PaymentInstrumentRecord(clientID, sub.Payment)
	paymentID, err := o.create(ctx,
		IdempotencyKey(string(clientID), StepPaymentInstrument, Fingerprint(paymentPayload)),
		StepPaymentInstrument, PathPaymentInstruments, paymentPayload)
	if err != nil {
		return o.fail(logger, res, StepPaymentInstrument, paymentPayload, err)
	}
	res.record(StepPaymentInstrument, paymentID)

	policyNumber := sub.Policy.PolicyNumber
	if policyNumber == "" {
		policyNumber = NewPolicyNumber()
	}
	res.PolicyNumber = policyNumber
	if err := requireID(StepPolicy, "client id", clientID); err != nil {
		return o.fail(logger, res, StepPolicy, nil, err)
	}
	policyPayload := model.PolicyRecord{
		ClientID:      clientID,
		PolicyNumber:  policyNumber,
		PolicyTypeID:  sub.Policy.PolicyTypeID,
		Premium:       sub.Policy.Premium,
		Frequency:     sub.Policy.Frequency,
		CoverAmount:   sub.Policy.CoverAmount,
		AgentID:       sub.Policy.AgentID,
		Status:        model.PolicyStatusPending,
		Beneficiaries: sub.Beneficiaries,
	}
	policyID, err := o.create(ctx,
		IdempotencyKey(string(clientID), StepPolicy, Fingerprint(policyPayload)),
		StepPolicy, PathPolicies, policyPayload)
	if err != nil {
		return o.fail(logger, res, StepPolicy, policyPayload, err)
	}
	res.record(StepPolicy, policyID)

	for i, d := range sub.Dependents {
		step := LinkStep(i)
		if err := requireID(step, "policy id", policyID); err != nil {
			return o.fail(logger, res, step, nil, err)
		}
		link := model.PolicyDependentRecord{
			PolicyID:           policyID,
			DependentID:        dependentIDs[i],
			CoveragePercentage: rules.DefaultCoverage(d.Relationship),
		}
		key := IdempotencyKey(string(clientID), linkKind, Fingerprint(link))
		resp, err := o.request(ctx, key, step, PathPolicyDependents, link)
		if err != nil {
			return o.fail(logger, res, step, link, err)
		}
		id, _ := resp.ID()
		res.record(step, id)
	}

	logger.Info("Application persisted",
		slog.String("policy_number", policyNumber),
		log.EntityID(policyID),
		slog.Int("calls", len(res.Completed)))
	return res
}

// createDependents issues one create per dependent concurrently and waits
// for all of them. Calls already dispatched are not cancelled when the
// caller's context ends. When several fail, the lowest index is reported.
func (o *Orchestrator) createDependents(
	ctx context.Context, logger *slog.Logger, res *Result, clientID model.ID,
	deps []model.Dependent,
) ([]model.ID, bool) {
	ids := make([]model.ID, len(deps))
	errs := make([]error, len(deps))
	payloads := make([]model.DependentRecord, len(deps))
	dctx := context.WithoutCancel(ctx)
	if len(deps) > 0 {
		if err := requireID(DependentStep(0), "client id", clientID); err != nil {
			o.fail(logger, res, DependentStep(0), nil, err)
			return nil, false
		}
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, d := range deps {
		payloads[i] = model.DependentRecord{
			ClientID:     clientID,
			Name:         d.Name,
			IDNumber:     d.IDNumber,
			DateOfBirth:  d.DateOfBirth,
			Relationship: d.Relationship,
		}
		key := IdempotencyKey(string(clientID), dependentKind, entryRef(i, d, payloads[i]))
		g.Go(func() error {
			ids[i], errs[i] = o.create(dctx, key, DependentStep(i),
				PathDependents, payloads[i])
			return nil
		})
	}
	_ = g.Wait()

	for i := range deps {
		if errs[i] == nil {
			res.record(DependentStep(i), ids[i])
		}
	}
	for i := range deps {
		if errs[i] != nil {
			o.fail(logger, res, DependentStep(i), payloads[i], errs[i])
			return nil, false
		}
	}
	return ids, true
}

func (o *Orchestrator) create(
	ctx context.Context, key, step, path string, payload any,
) (model.ID, error) {
	resp, err := o.request(ctx, key, step, path, payload)
	if err != nil {
		return "", err
	}
	return resp.ID()
}

func (o *Orchestrator) request(
	ctx context.Context, key, step, path string, payload any,
) (*transport.Response, error) {
	ctx = transport.WithIdempotencyKey(ctx, key)
	ctx = transport.WithOperation(ctx, step)
	return o.transport.Request(ctx, http.MethodPost, path, payload)
}

func (o *Orchestrator) fail(
	logger *slog.Logger, res *Result, step string, payload any, err error,
) *Result {
	res.FailedStep = step
	var integrity *IntegrityError
	if errors.As(err, &integrity) {
		res.Err = err
	} else {
		res.Err = &TransportError{
			Step:    step,
			Payload: payload,
			Created: res.snapshot(),
			Err:     err,
		}
	}
	logger.Error("Application persistence stopped",
		log.Step(step),
		slog.Int("created", len(res.CreatedIDs)),
		log.Error(err))
	return res
}

// IdempotencyKey identifies one create: the client ID (or session ID
// before the client exists), the kind of record and a reference to its
// content. A resubmitted run replays the key of every unchanged record and
// gets a fresh key for anything edited in between.
func IdempotencyKey(base, kind, ref string) string {
	return base + ":" + kind + ":" + ref
}

// Fingerprint is a stable name-based UUID of the JSON form of v.
func Fingerprint(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, b).String()
}

// entryRef names one dependent entry. Entries are keyed by the identity
// the wizard gave them so that removing one does not shift the keys of
// the rest; an entry without one falls back to its position.
func entryRef(i int, d model.Dependent, payload model.DependentRecord) string {
	if d.Key != "" {
		return d.Key
	}
	return Fingerprint(struct {
		Index   int                   `json:"index"`
		Payload model.DependentRecord `json:"payload"`
	}{i, payload})
}

// NewPolicyNumber generates a policy number for drafts that carry none.
func NewPolicyNumber() string {
	return "POL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func (r *Result) OK() bool { return r.Err == nil }

func (r *Result) record(step string, id model.ID) {
	if id != "" {
		r.CreatedIDs[step] = id
	}
	r.Completed = append(r.Completed, step)
}

func (r *Result) snapshot() map[string]model.ID {
	out := make(map[string]model.ID, len(r.CreatedIDs))
	for k, v := range r.CreatedIDs {
		out[k] = v
	}
	return out
}

func requireID(step, what string, id model.ID) error {
	if id == "" {
		return &IntegrityError{Step: step, Missing: what}
	}
	return nil
}
