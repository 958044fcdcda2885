package model

import json "github.com/goccy/go-json"

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

// PolicyDraft is the coverage the applicant selected.
type PolicyDraft struct {
	PolicyNumber string    `json:"policyNumber,omitempty"`
	PolicyTypeID string    `json:"policyTypeId"`
	Premium      float64   `json:"premium"`
	Frequency    Frequency `json:"frequency"`
	AgentID      string    `json:"agentId,omitempty"`
	CoverAmount  float64   `json:"coverAmount,omitempty"`
}

// Draft is what the UI submits with each advance: the form values of every
// single-record step. Only the portion owned by the current step is read.
type Draft struct {
	Applicant     Applicant         `json:"applicant"`
	PaymentMethod PaymentMethod     `json:"paymentMethod,omitempty"`
	Payment       PaymentInstrument `json:"payment,omitempty"`
	Policy        PolicyDraft       `json:"policy"`
}

type draftWire struct {
	Applicant     Applicant       `json:"applicant"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty"`
	Payment       json.RawMessage `json:"payment,omitempty"`
	Policy        PolicyDraft     `json:"policy"`
}

func (d *Draft) UnmarshalJSON(b []byte) error {
	var w draftWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var payment PaymentInstrument
	if w.PaymentMethod != "" {
		p, err := DecodePaymentInstrument(w.PaymentMethod, w.Payment)
		if err != nil {
			return err
		}
		payment = p
	}
	*d = Draft{
		Applicant:     w.Applicant,
		PaymentMethod: w.PaymentMethod,
		Payment:       payment,
		Policy:        w.Policy,
	}
	return nil
}

// Multiplier converts a monthly amount into the amount due per period.
func (f Frequency) Multiplier() (float64, bool) {
	switch f {
	case FrequencyMonthly:
		return 1, true
	case FrequencyQuarterly:
		return 3, true
	case FrequencyAnnually:
		return 12, true
	}
	return 0, false
}
