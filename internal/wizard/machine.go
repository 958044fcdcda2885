package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"policy-onboarding/internal/collection"
	"policy-onboarding/internal/idnumber"
	"policy-onboarding/internal/log"
	"policy-onboarding/internal/model"
	"policy-onboarding/internal/notify"
	"policy-onboarding/internal/orchestrator"
	"policy-onboarding/internal/refdata"
	"policy-onboarding/internal/rules"
)

type (
	// Creator persists a completed application.
	Creator interface {
		Create(ctx context.Context, sub orchestrator.Submission) *orchestrator.Result
	}

	// Options wires a Machine to its collaborators. Zero values fall back
	// to the split flow, default caps, discarding notifier and logger.
	Options struct {
		Flow      Flow
		Limits    rules.Limits
		Validator *rules.Validator
		RefData   refdata.Repository
		Creator   Creator
		Notifier  notify.Notifier
		Logger    *slog.Logger
		Now       func() time.Time
	}

	// Machine is one application session. It is not safe for concurrent
	// use; callers serialize actions per session.
	Machine struct {
		id        string
		steps     []Step
		pos       int
		subView   SubView
		limits    rules.Limits
		validator *rules.Validator
		refdata   refdata.Repository
		creator   Creator
		notifier  notify.Notifier
		logger    *slog.Logger
		now       func() time.Time

		applicant     model.Applicant
		dependents    *collection.Store[model.Dependent]
		beneficiaries *collection.Store[model.Beneficiary]
		paymentMethod model.PaymentMethod
		payment       model.PaymentInstrument
		policy        model.PolicyDraft
		policyNumber  string

		fieldErrors model.ValidationErrors
		result      *orchestrator.Result
	}
)

// New starts a session on the first step of the configured flow.
func New(opts Options) (*Machine, error) {
	if opts.Flow == "" {
		opts.Flow = FlowSplit
	}
	steps, err := opts.Flow.Steps()
	if err != nil {
		return nil, err
	}
	if opts.RefData == nil {
		return nil, fmt.Errorf("%w: reference data repository", ErrMissingDependency)
	}
	if opts.Creator == nil {
		return nil, fmt.Errorf("%w: creator", ErrMissingDependency)
	}
	if opts.Limits == nil {
		opts.Limits = rules.DefaultLimits()
	}
	if opts.Validator == nil {
		opts.Validator = rules.NewValidator()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	id := uuid.NewString()
	return &Machine{
		id:            id,
		steps:         steps,
		subView:       SubViewNone,
		limits:        opts.Limits,
		validator:     opts.Validator,
		refdata:       opts.RefData,
		creator:       opts.Creator,
		notifier:      opts.Notifier,
		logger:        opts.Logger.With(log.SessionID(id)),
		now:           opts.Now,
		dependents:    collection.New[model.Dependent](),
		beneficiaries: collection.New[model.Beneficiary](),
	}, nil
}

func (m *Machine) ID() string { return m.id }

func (m *Machine) State() Step { return m.steps[m.pos] }

func (m *Machine) View() View {
	return View{Step: m.State(), SubView: m.subView}
}

// FieldErrors returns the errors of the last blocked action.
func (m *Machine) FieldErrors() model.ValidationErrors {
	return append(model.ValidationErrors(nil), m.fieldErrors...)
}

// Result returns the outcome of the last submission attempt, if any.
func (m *Machine) Result() *orchestrator.Result { return m.result }

func (m *Machine) CanGoBack() bool {
	s := m.State()
	return s != StepMainMember && s != StepSubmitted
}

// CanAdvance reports whether Advance would pass the current step's
// validation. It does not submit anything.
func (m *Machine) CanAdvance(d model.Draft) bool {
	h, ok := registry[m.State()]
	if !ok {
		return false
	}
	return len(h.Validate(m, &d)) == 0
}

// Advance validates the current step against d and, if it passes, commits
// the step's data and moves on. A blocked transition returns
// model.ValidationErrors and leaves the session untouched. On the policy
// details step the application is submitted; if that fails the session
// stays on the step and the orchestrator's error is returned.
func (m *Machine) Advance(ctx context.Context, d model.Draft) (Step, error) {
	step := m.State()
	h, ok := registry[step]
	if !ok {
		return step, ErrTerminal
	}

	if errs := h.Validate(m, &d); len(errs) > 0 {
		m.fieldErrors = errs
		m.logger.Debug("Step blocked", log.Step(step), slog.Int("errors", len(errs)))
		return step, errs
	}

	m.fieldErrors = nil
	if step == StepPolicyDetails {
		if err := m.submit(ctx, &d.Policy); err != nil {
			return step, err
		}
	}

	h.Apply(m, &d)
	m.subView = SubViewNone
	m.pos++
	m.logger.Info("Step completed", log.Step(step), slog.String("next", string(m.State())))
	return m.State(), nil
}

// Submit advances from the policy details step, which submits the
// application.
func (m *Machine) Submit(ctx context.Context, d model.Draft) (Step, error) {
	if m.State() != StepPolicyDetails {
		return m.State(), m.notAllowed("submit")
	}
	return m.Advance(ctx, d)
}

// Back returns to the previous step without validating anything.
func (m *Machine) Back() (Step, error) {
	if !m.CanGoBack() {
		return m.State(), m.notAllowed("back")
	}
	m.pos--
	m.subView = SubViewNone
	m.fieldErrors = nil
	return m.State(), nil
}

// Skip leaves an optional step without adding anything.
func (m *Machine) Skip() (Step, error) {
	if !m.State().Optional() {
		return m.State(), m.notAllowed("skip")
	}
	m.pos++
	m.subView = SubViewNone
	m.fieldErrors = nil
	return m.State(), nil
}

// OpenSubView shows a sub-form on the current step, replacing any other.
func (m *Machine) OpenSubView(v SubView) error {
	if !m.State().Hosts(v) {
		return m.notAllowed("open " + string(v))
	}
	m.subView = v
	return nil
}

func (m *Machine) CloseSubView() { m.subView = SubViewNone }

// AddDependent validates d, fills its birth date from the id number and
// enforces the relationship caps before storing it. Returns the index of
// the new entry.
func (m *Machine) AddDependent(d model.Dependent) (int, error) {
	step := m.State()
	if !step.Optional() {
		return -1, m.notAllowed("add dependent")
	}

	d.Name = strings.TrimSpace(d.Name)
	d.IDNumber = strings.TrimSpace(d.IDNumber)
	d.DateOfBirth = strings.TrimSpace(d.DateOfBirth)
	errs := m.validator.Dependent(d)
	if len(errs) == 0 {
		errs = m.deriveDependentBirthDate(&d)
	}
	if len(errs) > 0 {
		return -1, m.block(errs)
	}

	if !step.Accepts(d.Relationship) {
		return -1, m.block(model.ValidationErrors{model.Invalid("relationship",
			model.CodeInvalidRelation,
			fmt.Sprintf("a %s cannot be added on the %s step", d.Relationship, step))})
	}
	if !rules.CapAllows(d.Relationship, m.counts(), m.limits) {
		return -1, m.block(model.ValidationErrors{model.Violation("relationship",
			model.CodeCapExceeded,
			fmt.Sprintf("no more than %d %s dependents allowed",
				m.limits[d.Relationship.Category()], d.Relationship.Category()))})
	}

	d.Key = uuid.NewString()
	idx := m.dependents.Add(d)
	m.fieldErrors = nil
	m.subView = SubViewNone
	m.logger.Debug("Dependent added",
		slog.String("relationship", string(d.Relationship)), slog.Int("index", idx))
	return idx, nil
}

func (m *Machine) RemoveDependent(i int) error {
	if !m.State().Optional() {
		return m.notAllowed("remove dependent")
	}
	if _, err := m.dependents.RemoveAt(i); err != nil {
		return err
	}
	return nil
}

// AddBeneficiary validates b and stores it. The percentage total is only
// checked when leaving the beneficiary step.
func (m *Machine) AddBeneficiary(b model.Beneficiary) (int, error) {
	if m.State() != StepBeneficiary {
		return -1, m.notAllowed("add beneficiary")
	}

	b.Name = strings.TrimSpace(b.Name)
	b.IDNumber = strings.TrimSpace(b.IDNumber)
	b.Phone = strings.TrimSpace(b.Phone)
	b.Address = strings.TrimSpace(b.Address)
	if errs := m.validator.Beneficiary(b); len(errs) > 0 {
		return -1, m.block(errs)
	}
	if phone, ok := rules.NormalizePhone(b.Phone); ok {
		b.Phone = phone
	}

	idx := m.beneficiaries.Add(b)
	m.fieldErrors = nil
	m.subView = SubViewNone
	return idx, nil
}

func (m *Machine) RemoveBeneficiary(i int) error {
	if m.State() != StepBeneficiary {
		return m.notAllowed("remove beneficiary")
	}
	if _, err := m.beneficiaries.RemoveAt(i); err != nil {
		return err
	}
	return nil
}

func (m *Machine) Applicant() model.Applicant { return m.applicant }

func (m *Machine) Dependents() []model.Dependent { return m.dependents.Items() }

func (m *Machine) Beneficiaries() []model.Beneficiary { return m.beneficiaries.Items() }

// submit reuses one generated policy number across retries so the backend
// sees the same policy each attempt.
func (m *Machine) submit(ctx context.Context, p *model.PolicyDraft) error {
	if p.PolicyNumber == "" {
		if m.policyNumber == "" {
			m.policyNumber = orchestrator.NewPolicyNumber()
		}
		p.PolicyNumber = m.policyNumber
	}

	res := m.creator.Create(ctx, orchestrator.Submission{
		SessionID:     m.id,
		Applicant:     m.applicant,
		Dependents:    m.dependents.Items(),
		Beneficiaries: m.beneficiaries.Items(),
		Payment:       m.payment,
		Policy:        *p,
	})
	m.result = res
	if !res.OK() {
		m.notifier.Notify(notify.KindError, "Application not submitted",
			fmt.Sprintf("Creating %s failed: %v", res.FailedStep, res.Err))
		m.logger.Warn("Submission failed",
			log.Step(res.FailedStep), log.Error(res.Err))
		return res.Err
	}

	m.notifier.Notify(notify.KindInfo, "Application submitted",
		fmt.Sprintf("Policy %s is pending activation", res.PolicyNumber))
	return nil
}

// deriveDependentBirthDate fills the birth date of a dependent with a valid
// id number and rejects a supplied date that disagrees with it.
func (m *Machine) deriveDependentBirthDate(d *model.Dependent) model.ValidationErrors {
	if d.IDNumber == "" {
		return nil
	}
	ident, err := idnumber.DecodeAt(d.IDNumber, m.now())
	if err != nil {
		return model.ValidationErrors{model.Invalid("idNumber",
			model.CodeInvalidIDNumber, "id number encodes an impossible birth date")}
	}
	dob := ident.DateOfBirth.Format(model.DateLayout)
	if d.DateOfBirth != "" && d.DateOfBirth != dob {
		return model.ValidationErrors{model.Invalid("dateOfBirth",
			model.CodeInvalidDate, "date of birth does not match the id number")}
	}
	d.DateOfBirth = dob
	return nil
}

func (m *Machine) counts() rules.Counts {
	return collection.CountByKey(m.dependents, func(d model.Dependent) model.Category {
		return d.Relationship.Category()
	})
}

func (m *Machine) block(errs model.ValidationErrors) error {
	m.fieldErrors = errs
	return errs
}

func (m *Machine) notAllowed(action string) error {
	return fmt.Errorf("%w: %s on %s", ErrNotAllowed, action, m.State())
}
