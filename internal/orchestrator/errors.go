package orchestrator

import (
	"fmt"

	"policy-onboarding/internal/model"
)

type (
	// TransportError is a create call that failed mid-run.
	TransportError struct {
		Step    string
		Payload any
		Created map[string]model.ID
		Err     error
	}

	// IntegrityError means a record was about to be created without the
	// ID it references. The wizard's guards make this unreachable; seeing
	// it is a bug.
	IntegrityError struct {
		Step    string
		Missing string
	}
)

func (e *TransportError) Error() string {
	return fmt.Sprintf("create %s failed after %d created records: %v",
		e.Step, len(e.Created), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation at %s: missing %s", e.Step, e.Missing)
}
