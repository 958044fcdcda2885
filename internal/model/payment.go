package model

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

type PaymentMethod string

const (
	MethodBank       PaymentMethod = "bank"
	MethodSassa      PaymentMethod = "sassa"
	MethodPayAtStore PaymentMethod = "pay_at_store"
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// PaymentInstrument is one of BankAccount, Sassa or PayAtStore.
type PaymentInstrument interface {
	Method() PaymentMethod
	// Fields exposes the variant's values keyed by wire name.
	Fields() map[string]any
	paymentInstrument()
}

type BankAccount struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountType   string `json:"accountType"`
	BranchCode    string `json:"branchCode"`
	AccountHolder string `json:"accountHolder"`
	DebitDay      int    `json:"debitDay"`
}

type Sassa struct {
	GrantNumber string `json:"grantNumber"`
}

type PayAtStore struct {
	PreferredStore string `json:"preferredStore"`
}

func (BankAccount) Method() PaymentMethod { return MethodBank }
func (Sassa) Method() PaymentMethod       { return MethodSassa }
func (PayAtStore) Method() PaymentMethod  { return MethodPayAtStore }

func (BankAccount) paymentInstrument() {}
func (Sassa) paymentInstrument()       {}
func (PayAtStore) paymentInstrument()  {}

func (b BankAccount) Fields() map[string]any {
	return map[string]any{
		"bankName":      b.BankName,
		"accountNumber": b.AccountNumber,
		"accountType":   b.AccountType,
		"branchCode":    b.BranchCode,
		"accountHolder": b.AccountHolder,
		"debitDay":      b.DebitDay,
	}
}

func (s Sassa) Fields() map[string]any {
	return map[string]any{"grantNumber": s.GrantNumber}
}

func (p PayAtStore) Fields() map[string]any {
	return map[string]any{"preferredStore": p.PreferredStore}
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodBank, MethodSassa, MethodPayAtStore:
		return true
	}
	return false
}

// DecodePaymentInstrument unmarshals raw into the variant selected by method.
// An empty payload yields a nil instrument.
func DecodePaymentInstrument(
	method PaymentMethod, raw json.RawMessage,
) (PaymentInstrument, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch method {
	case MethodBank:
		var b BankAccount
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case MethodSassa:
		var s Sassa
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case MethodPayAtStore:
		var p PayAtStore
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, method)
	}
}
