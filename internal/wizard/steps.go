package wizard

import (
	"fmt"

	"policy-onboarding/internal/model"
)

type (
	Step    string
	SubView string
	Flow    string

	// View is the screen the UI shows: a step and at most one open
	// sub-form within it.
	View struct {
		Step    Step    `json:"step"`
		SubView SubView `json:"subView"`
	}
)

const (
	StepMainMember     Step = "main_member"
	StepChildren       Step = "children"
	StepSpouse         Step = "spouse"
	StepFamily         Step = "family"
	StepExtendedFamily Step = "extended_family"
	StepBeneficiary    Step = "beneficiary"
	StepPayment        Step = "payment"
	StepSummary        Step = "summary"
	StepPolicyDetails  Step = "policy_details"
	StepSubmitted      Step = "submitted"
)

const (
	SubViewNone           SubView = "none"
	SubViewAddDependent   SubView = "add_dependent"
	SubViewAddBeneficiary SubView = "add_beneficiary"
)

const (
	// FlowSplit asks for children, spouse and extended family separately
	FlowSplit Flow = "split"

	// FlowCombined asks for spouse and children on one family step
	FlowCombined Flow = "combined"
)

var flows = map[Flow][]Step{
	FlowSplit: {
		StepMainMember, StepChildren, StepSpouse, StepExtendedFamily,
		StepBeneficiary, StepPayment, StepSummary, StepPolicyDetails,
		StepSubmitted,
	},
	FlowCombined: {
		StepMainMember, StepFamily, StepExtendedFamily,
		StepBeneficiary, StepPayment, StepSummary, StepPolicyDetails,
		StepSubmitted,
	},
}

// dependentCategories lists the relationship categories each dependent
// step accepts.
var dependentCategories = map[Step][]model.Category{
	StepChildren:       {model.CategoryChild},
	StepSpouse:         {model.CategorySpouse},
	StepFamily:         {model.CategorySpouse, model.CategoryChild},
	StepExtendedFamily: {model.CategoryExtended},
}

// Steps returns the ordered steps of the flow, ending with StepSubmitted.
func (f Flow) Steps() ([]Step, error) {
	steps, ok := flows[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, f)
	}
	return append([]Step(nil), steps...), nil
}

// Optional steps may be skipped without entering anything.
func (s Step) Optional() bool {
	_, ok := dependentCategories[s]
	return ok
}

// Accepts reports whether a dependent of rel can be added on this step.
func (s Step) Accepts(rel model.Relationship) bool {
	for _, c := range dependentCategories[s] {
		if c == rel.Category() {
			return true
		}
	}
	return false
}

// Hosts reports whether the sub-form v can be opened on this step.
func (s Step) Hosts(v SubView) bool {
	switch v {
	case SubViewNone:
		return true
	case SubViewAddDependent:
		return s.Optional()
	case SubViewAddBeneficiary:
		return s == StepBeneficiary
	}
	return false
}
