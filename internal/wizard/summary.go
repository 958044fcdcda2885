package wizard

import (
	"fmt"
	"math"

	"policy-onboarding/internal/model"
	"policy-onboarding/internal/orchestrator"
	"policy-onboarding/internal/rules"
)

type (
	// Summary is the review shown before policy details are entered.
	Summary struct {
		Applicant       model.Applicant     `json:"applicant"`
		Counts          rules.Counts        `json:"counts"`
		Dependents      []model.Dependent   `json:"dependents"`
		Beneficiaries   []model.Beneficiary `json:"beneficiaries"`
		PercentageTotal float64             `json:"percentageTotal"`
		PercentageValid bool                `json:"percentageValid"`
		PaymentMethod   model.PaymentMethod `json:"paymentMethod,omitempty"`
		Quotes          map[string]float64  `json:"quotes,omitempty"`
		Policy          model.PolicyDraft   `json:"policy"`
	}

	// Snapshot is the full session state rendered to the UI.
	Snapshot struct {
		ID          string                 `json:"id"`
		View        View                   `json:"view"`
		Steps       []Step                 `json:"steps"`
		CanGoBack   bool                   `json:"canGoBack"`
		Summary     Summary                `json:"summary"`
		FieldErrors model.ValidationErrors `json:"fieldErrors"`
		Result      *orchestrator.Result   `json:"result,omitempty"`
	}
)

// Summary tallies the session so far. Quotes holds the monthly premium of
// every known policy type for the current dependents.
func (m *Machine) Summary() Summary {
	list := m.beneficiaries.Items()
	s := Summary{
		Applicant:       m.applicant,
		Counts:          m.counts(),
		Dependents:      m.dependents.Items(),
		Beneficiaries:   list,
		PercentageTotal: m.beneficiaries.SumBy(func(b model.Beneficiary) float64 { return b.Percentage }),
		PercentageValid: rules.PercentageSumValid(list),
		PaymentMethod:   m.paymentMethod,
		Policy:          m.policy,
	}
	if pts := m.refdata.PolicyTypes(); len(pts) > 0 {
		s.Quotes = make(map[string]float64, len(pts))
		for _, pt := range pts {
			s.Quotes[pt.ID] = pt.MonthlyPremium(s.Counts)
		}
	}
	return s
}

// QuotePremium prices the policy type for the current dependents at the
// given payment frequency.
func (m *Machine) QuotePremium(policyTypeID string, f model.Frequency) (float64, error) {
	pt, ok := m.refdata.PolicyType(policyTypeID)
	if !ok {
		return 0, model.ValidationErrors{model.Invalid("policyTypeId",
			model.CodeUnknownPolicyType, fmt.Sprintf("unknown policy type %q", policyTypeID))}
	}
	mult, ok := f.Multiplier()
	if !ok {
		return 0, model.ValidationErrors{model.Invalid("frequency",
			model.CodeInvalidFrequency, fmt.Sprintf("unknown frequency %q", f))}
	}
	return math.Round(pt.MonthlyPremium(m.counts())*mult*100) / 100, nil
}

func (m *Machine) Snapshot() Snapshot {
	errs := m.fieldErrors
	if errs == nil {
		errs = model.ValidationErrors{}
	}
	return Snapshot{
		ID:          m.id,
		View:        m.View(),
		Steps:       append([]Step(nil), m.steps...),
		CanGoBack:   m.CanGoBack(),
		Summary:     m.Summary(),
		FieldErrors: errs,
		Result:      m.result,
	}
}
