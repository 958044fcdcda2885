package model

import "strings"

// ErrorKind separates plain input errors from business rule violations.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindBusinessRule ErrorKind = "business_rule"
)

const (
	CodeRequired          = "REQUIRED"
	CodeInvalidIDNumber   = "INVALID_ID_NUMBER"
	CodeInvalidPhone      = "INVALID_PHONE"
	CodeInvalidEmail      = "INVALID_EMAIL"
	CodeInvalidDate       = "INVALID_DATE"
	CodeInvalidField      = "INVALID_FIELD"
	CodeInvalidRelation   = "INVALID_RELATIONSHIP"
	CodeInvalidPercentage = "INVALID_PERCENTAGE"
	CodeCapExceeded       = "RELATIONSHIP_CAP_EXCEEDED"
	CodeNoBeneficiaries   = "BENEFICIARY_REQUIRED"
	CodePercentageSum     = "PERCENTAGE_SUM_NOT_100"
	CodePaymentMismatch   = "PAYMENT_METHOD_MISMATCH"
	CodeUnknownPolicyType = "UNKNOWN_POLICY_TYPE"
	CodeUnknownAgent      = "UNKNOWN_AGENT"
	CodeInvalidPremium    = "INVALID_PREMIUM"
	CodeInvalidFrequency  = "INVALID_FREQUENCY"
)

// FieldError is a single field-scoped problem reported back to the user.
type FieldError struct {
	Field   string    `json:"field"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// ValidationErrors blocks a step transition or a collection change. The
// caller recovers by editing the offending fields.
type ValidationErrors []FieldError

func Invalid(field, code, message string) FieldError {
	return FieldError{Field: field, Code: code, Message: message, Kind: KindValidation}
}

func Violation(field, code, message string) FieldError {
	return FieldError{Field: field, Code: code, Message: message, Kind: KindBusinessRule}
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) HasBusinessRule() bool {
	for _, fe := range v {
		if fe.Kind == KindBusinessRule {
			return true
		}
	}
	return false
}

// Field returns the first error reported for field, if any.
func (v ValidationErrors) Field(field string) (FieldError, bool) {
	for _, fe := range v {
		if fe.Field == field {
			return fe, true
		}
	}
	return FieldError{}, false
}

// Prefix scopes every field name under p, e.g. "applicant.idNumber".
func (v ValidationErrors) Prefix(p string) ValidationErrors {
	out := make(ValidationErrors, len(v))
	for i, fe := range v {
		fe.Field = p + "." + fe.Field
		out[i] = fe
	}
	return out
}
