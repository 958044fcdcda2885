package model

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// ID is a server-assigned identifier. Backends answer with either JSON
// strings or numbers; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

const PolicyStatusPending = "pending"

// Backend entity shapes. The backend owns them; these mirror its payloads.
type (
	ClientRecord struct {
		ID          ID     `json:"id,omitempty"`
		Name        string `json:"name"`
		IDNumber    string `json:"idNumber"`
		DateOfBirth string `json:"dateOfBirth"`
		Phone       string `json:"phone"`
		Email       string `json:"email,omitempty"`
		Address     string `json:"address"`
	}

	DependentRecord struct {
		ID           ID           `json:"id,omitempty"`
		ClientID     ID           `json:"clientId"`
		Name         string       `json:"name"`
		IDNumber     string       `json:"idNumber,omitempty"`
		DateOfBirth  string       `json:"dateOfBirth,omitempty"`
		Relationship Relationship `json:"relationship"`
	}

	PolicyRecord struct {
		ID            ID            `json:"id,omitempty"`
		ClientID      ID            `json:"clientId"`
		PolicyNumber  string        `json:"policyNumber"`
		PolicyTypeID  string        `json:"policyTypeId"`
		Premium       float64       `json:"premium"`
		Frequency     Frequency     `json:"frequency"`
		CoverAmount   float64       `json:"coverAmount,omitempty"`
		AgentID       string        `json:"agentId,omitempty"`
		Status        string        `json:"status"`
		Beneficiaries []Beneficiary `json:"beneficiaries,omitempty"`
	}

	PolicyDependentRecord struct {
		PolicyID           ID      `json:"policyId"`
		DependentID        ID      `json:"dependentId"`
		CoveragePercentage float64 `json:"coveragePercentage"`
	}
)

// PaymentInstrumentRecord flattens the active variant next to the method.
func PaymentInstrumentRecord(clientID ID, p PaymentInstrument) map[string]any {
	rec := p.Fields()
	rec["clientId"] = clientID
	rec["method"] = p.Method()
	return rec
}
