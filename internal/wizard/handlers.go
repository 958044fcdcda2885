package wizard

import (
	"fmt"
	"strings"

	"policy-onboarding/internal/idnumber"
	"policy-onboarding/internal/model"
	"policy-onboarding/internal/rules"
)

// stepHandler gates one step. Validate may normalize the draft in place
// (trimmed input, derived fields) but must not touch the machine; Apply
// commits the validated draft.
type stepHandler interface {
	Validate(m *Machine, d *model.Draft) model.ValidationErrors
	Apply(m *Machine, d *model.Draft)
}

type (
	mainMemberStep    struct{}
	dependentStep     struct{}
	beneficiaryStep   struct{}
	paymentStep       struct{}
	summaryStep       struct{}
	policyDetailsStep struct{}
)

var registry = map[Step]stepHandler{
	StepMainMember:     mainMemberStep{},
	StepChildren:       dependentStep{},
	StepSpouse:         dependentStep{},
	StepFamily:         dependentStep{},
	StepExtendedFamily: dependentStep{},
	StepBeneficiary:    beneficiaryStep{},
	StepPayment:        paymentStep{},
	StepSummary:        summaryStep{},
	StepPolicyDetails:  policyDetailsStep{},
}

func (mainMemberStep) Validate(m *Machine, d *model.Draft) model.ValidationErrors {
	a := &d.Applicant
	a.Name = strings.TrimSpace(a.Name)
	a.IDNumber = strings.TrimSpace(a.IDNumber)
	a.Email = strings.TrimSpace(a.Email)
	a.Address = strings.TrimSpace(a.Address)
	a.Phone = strings.TrimSpace(a.Phone)
	a.DateOfBirth = ""
	a.Gender = ""

	errs := m.validator.Applicant(*a).Prefix("applicant")
	if phone, ok := rules.NormalizePhone(a.Phone); ok {
		a.Phone = phone
	}
	if idnumber.Validate(a.IDNumber) {
		ident, err := idnumber.DecodeAt(a.IDNumber, m.now())
		if err != nil {
			errs = append(errs, model.Invalid("applicant.idNumber",
				model.CodeInvalidIDNumber, "id number encodes an impossible birth date"))
		} else {
			a.DateOfBirth = ident.DateOfBirth.Format(model.DateLayout)
			a.Gender = ident.Gender
		}
	}
	if a.DateOfBirth == "" {
		errs = append(errs, model.Invalid("applicant.dateOfBirth",
			model.CodeRequired, "date of birth is derived from a valid id number"))
	}
	return errs
}

func (mainMemberStep) Apply(m *Machine, d *model.Draft) {
	m.applicant = d.Applicant
}

func (dependentStep) Validate(*Machine, *model.Draft) model.ValidationErrors {
	return nil
}

func (dependentStep) Apply(*Machine, *model.Draft) {}

func (beneficiaryStep) Validate(m *Machine, _ *model.Draft) model.ValidationErrors {
	if m.beneficiaries.Len() == 0 {
		return model.ValidationErrors{model.Violation("beneficiaries",
			model.CodeNoBeneficiaries, "add at least one beneficiary")}
	}
	list := m.beneficiaries.Items()
	if !rules.PercentageSumValid(list) {
		return model.ValidationErrors{model.Violation("beneficiaries",
			model.CodePercentageSum,
			fmt.Sprintf("beneficiary percentages add up to %.2f, not 100",
				rules.PercentageTotal(list)))}
	}
	return nil
}

func (beneficiaryStep) Apply(*Machine, *model.Draft) {}

func (paymentStep) Validate(m *Machine, d *model.Draft) model.ValidationErrors {
	errs := m.validator.Payment(d.PaymentMethod, d.Payment)
	for i := range errs {
		if errs[i].Field != "paymentMethod" && errs[i].Field != "payment" {
			errs[i].Field = "payment." + errs[i].Field
		}
	}
	return errs
}

func (paymentStep) Apply(m *Machine, d *model.Draft) {
	m.paymentMethod = d.PaymentMethod
	m.payment = d.Payment
}

func (summaryStep) Validate(*Machine, *model.Draft) model.ValidationErrors {
	return nil
}

func (summaryStep) Apply(*Machine, *model.Draft) {}

func (policyDetailsStep) Validate(m *Machine, d *model.Draft) model.ValidationErrors {
	p := &d.Policy
	p.PolicyTypeID = strings.TrimSpace(p.PolicyTypeID)
	p.AgentID = strings.TrimSpace(p.AgentID)

	var errs model.ValidationErrors
	if p.PolicyTypeID == "" {
		errs = append(errs, model.Invalid("policy.policyTypeId",
			model.CodeRequired, "select a policy type"))
	} else if pt, ok := m.refdata.PolicyType(p.PolicyTypeID); !ok {
		errs = append(errs, model.Invalid("policy.policyTypeId",
			model.CodeUnknownPolicyType,
			fmt.Sprintf("unknown policy type %q", p.PolicyTypeID)))
	} else if p.CoverAmount == 0 {
		p.CoverAmount = pt.CoverAmount
	}
	if p.Premium <= 0 {
		errs = append(errs, model.Invalid("policy.premium",
			model.CodeInvalidPremium, "premium must be greater than 0"))
	}
	if _, ok := p.Frequency.Multiplier(); !ok {
		errs = append(errs, model.Invalid("policy.frequency",
			model.CodeInvalidFrequency, "select a payment frequency"))
	}
	if p.AgentID != "" {
		if _, ok := m.refdata.Agent(p.AgentID); !ok {
			errs = append(errs, model.Invalid("policy.agentId",
				model.CodeUnknownAgent, fmt.Sprintf("unknown agent %q", p.AgentID)))
		}
	}
	return errs
}

func (policyDetailsStep) Apply(m *Machine, d *model.Draft) {
	m.policy = d.Policy
}
