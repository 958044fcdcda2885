package rules

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"policy-onboarding/internal/idnumber"
	"policy-onboarding/internal/model"
)

// Validator checks records against their struct tags and the payment field
// rules. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

var paymentFieldRules = map[string]string{
	"bankName":       "required,max=80",
	"accountNumber":  "required,numeric,min=6,max=16",
	"accountType":    "required,oneof=cheque savings transmission",
	"branchCode":     "required,numeric,len=6",
	"accountHolder":  "required,max=120",
	"debitDay":       "required,min=1,max=31",
	"grantNumber":    "required,numeric,min=10,max=13",
	"preferredStore": "required,max=80",
}

var tagCodes = map[string]string{
	"required":     model.CodeRequired,
	"said":         model.CodeInvalidIDNumber,
	"za_phone":     model.CodeInvalidPhone,
	"email":        model.CodeInvalidEmail,
	"datetime":     model.CodeInvalidDate,
	"relationship": model.CodeInvalidRelation,
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("said", func(fl validator.FieldLevel) bool {
		return idnumber.Validate(fl.Field().String())
	})
	_ = v.RegisterValidation("za_phone", func(fl validator.FieldLevel) bool {
		_, ok := NormalizePhone(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("relationship", func(fl validator.FieldLevel) bool {
		return model.Relationship(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("two_decimals", func(fl validator.FieldLevel) bool {
		return TwoDecimals(fl.Field().Float())
	})
	return &Validator{v: v}
}

func (v *Validator) Applicant(a model.Applicant) model.ValidationErrors {
	return v.structErrors(a)
}

func (v *Validator) Dependent(d model.Dependent) model.ValidationErrors {
	return v.structErrors(d)
}

func (v *Validator) Beneficiary(b model.Beneficiary) model.ValidationErrors {
	errs := v.structErrors(b)
	for i, fe := range errs {
		if fe.Field == "percentage" {
			errs[i].Code = model.CodeInvalidPercentage
			errs[i].Message = "percentage must be greater than 0 and at most 100 with at most two decimals"
		}
	}
	return errs
}

// Payment checks that p is the variant selected by method and that every
// required field is present and well formed. Missing fields are business
// rule violations; malformed ones are validation errors.
func (v *Validator) Payment(
	method model.PaymentMethod, p model.PaymentInstrument,
) model.ValidationErrors {
	if !method.Valid() {
		return model.ValidationErrors{model.Invalid(
			"paymentMethod", model.CodeRequired, "select a payment method",
		)}
	}
	if p != nil && p.Method() != method {
		return model.ValidationErrors{model.Violation(
			"payment", model.CodePaymentMismatch,
			fmt.Sprintf("payment details are for %s, not %s", p.Method(), method),
		)}
	}

	var values map[string]any
	if p != nil {
		values = p.Fields()
	}
	var errs model.ValidationErrors
	for _, field := range RequiredFieldsFor(method).Sorted() {
		value := values[field]
		if s, ok := value.(string); ok {
			value = strings.TrimSpace(s)
		}
		if isZero(value) {
			errs = append(errs, model.Violation(
				field, model.CodeRequired, field+" is required",
			))
			continue
		}
		if err := v.v.Var(value, paymentFieldRules[field]); err != nil {
			errs = append(errs, model.Invalid(
				field, model.CodeInvalidField, field+" is not valid",
			))
		}
	}
	return errs
}

func (v *Validator) structErrors(s any) model.ValidationErrors {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.ValidationErrors{model.Invalid("", model.CodeInvalidField, err.Error())}
	}
	out := make(model.ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, model.Invalid(fe.Field(), codeFor(fe.Tag()), messageFor(fe)))
	}
	return out
}

func codeFor(tag string) string {
	if code, ok := tagCodes[tag]; ok {
		return code
	}
	return model.CodeInvalidField
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "said":
		return "not a valid national identity number"
	case "za_phone":
		return "not a valid phone number"
	case "email":
		return "not a valid email address"
	case "datetime":
		return "date must be formatted YYYY-MM-DD"
	case "relationship":
		return fmt.Sprintf("unknown relationship %q", fe.Value())
	case "max":
		return fe.Field() + " is too long"
	}
	return fe.Field() + " is not valid"
}

func isZero(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case int:
		return t == 0
	}
	return false
}
