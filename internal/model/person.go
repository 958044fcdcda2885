package model

import "policy-onboarding/internal/idnumber"

type (
	Relationship string
	Category     string
)

const (
	RelSpouse         Relationship = "spouse"
	RelChild          Relationship = "child"
	RelParent         Relationship = "parent"
	RelSibling        Relationship = "sibling"
	RelExtendedFamily Relationship = "extended_family"
	RelOther          Relationship = "other"
)

const (
	CategorySpouse   Category = "spouse"
	CategoryChild    Category = "child"
	CategoryExtended Category = "extended_family"
)

// DateLayout is the wire format for every calendar date.
const DateLayout = "2006-01-02"

// Applicant is the main member applying for the policy.
type Applicant struct {
	Name        string          `json:"name" validate:"required,max=120"`
	IDNumber    string          `json:"idNumber" validate:"required,said"`
	DateOfBirth string          `json:"dateOfBirth,omitempty"`
	Gender      idnumber.Gender `json:"gender,omitempty"`
	Phone       string          `json:"phone" validate:"required,za_phone"`
	Email       string          `json:"email,omitempty" validate:"omitempty,email"`
	Address     string          `json:"address" validate:"required,max=250"`
}

// Dependent is a person covered by the policy besides the main member.
// Key identifies the entry within a session and is assigned when the
// dependent is added.
type Dependent struct {
	Key          string       `json:"key,omitempty"`
	Name         string       `json:"name" validate:"required,max=120"`
	IDNumber     string       `json:"idNumber,omitempty" validate:"omitempty,said"`
	DateOfBirth  string       `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Relationship Relationship `json:"relationship" validate:"required,relationship"`
}

// Beneficiary receives a share of the benefit. Percentages across all
// beneficiaries of a policy add up to 100.
type Beneficiary struct {
	Name         string       `json:"name" validate:"required,max=120"`
	IDNumber     string       `json:"idNumber,omitempty" validate:"omitempty,said"`
	Relationship Relationship `json:"relationship" validate:"required,relationship"`
	Percentage   float64      `json:"percentage" validate:"gt=0,lte=100,two_decimals"`
	Phone        string       `json:"phone,omitempty" validate:"omitempty,za_phone"`
	Address      string       `json:"address,omitempty" validate:"omitempty,max=250"`
}

func (r Relationship) Valid() bool {
	switch r {
	case RelSpouse, RelChild, RelParent, RelSibling, RelExtendedFamily, RelOther:
		return true
	}
	return false
}

// Category groups relationships for cap and coverage purposes.
func (r Relationship) Category() Category {
	switch r {
	case RelSpouse:
		return CategorySpouse
	case RelChild:
		return CategoryChild
	default:
		return CategoryExtended
	}
}
