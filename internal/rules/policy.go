package rules

import (
	"math"
	"sort"

	"policy-onboarding/internal/model"
)

type (
	// Counts tallies dependents per relationship category.
	Counts map[model.Category]int

	// Limits caps dependents per relationship category. A category without
	// an entry is uncapped.
	Limits map[model.Category]int

	// FieldSet is a set of wire field names.
	FieldSet map[string]struct{}
)

// DefaultLimits returns the standard caps: one spouse, six children and ten
// extended family members.
func DefaultLimits() Limits {
	return Limits{
		model.CategorySpouse:   1,
		model.CategoryChild:    6,
		model.CategoryExtended: 10,
	}
}

// CapAllows reports whether one more dependent of rel fits under the limits.
func CapAllows(rel model.Relationship, counts Counts, limits Limits) bool {
	limit, ok := limits[rel.Category()]
	if !ok {
		return true
	}
	return counts[rel.Category()] < limit
}

// PercentageSumValid reports whether the allocations add up to exactly 100.
// An empty list is valid. Allocations are summed in basis points, so any
// share with more than two decimals makes the list invalid.
func PercentageSumValid(beneficiaries []model.Beneficiary) bool {
	if len(beneficiaries) == 0 {
		return true
	}
	var total int64
	for _, b := range beneficiaries {
		bp, ok := basisPoints(b.Percentage)
		if !ok {
			return false
		}
		total += bp
	}
	return total == 10000
}

// TwoDecimals reports whether pct has at most two decimal places.
func TwoDecimals(pct float64) bool {
	_, ok := basisPoints(pct)
	return ok
}

// PercentageTotal sums the allocations.
func PercentageTotal(beneficiaries []model.Beneficiary) float64 {
	var total float64
	for _, b := range beneficiaries {
		total += b.Percentage
	}
	return total
}

// DefaultCoverage is the share of the benefit a dependent of rel receives
// when linked to a policy.
func DefaultCoverage(rel model.Relationship) float64 {
	switch rel.Category() {
	case model.CategorySpouse:
		return 100
	case model.CategoryChild:
		return 75
	default:
		return 50
	}
}

var requiredFields = map[model.PaymentMethod][]string{
	model.MethodBank: {
		"bankName", "accountNumber", "accountType",
		"branchCode", "accountHolder", "debitDay",
	},
	model.MethodSassa:      {"grantNumber"},
	model.MethodPayAtStore: {"preferredStore"},
}

// RequiredFieldsFor returns the mandatory fields of the variant used by
// method. Unknown methods have no fields.
func RequiredFieldsFor(method model.PaymentMethod) FieldSet {
	fs := FieldSet{}
	for _, f := range requiredFields[method] {
		fs[f] = struct{}{}
	}
	return fs
}

func (fs FieldSet) Has(name string) bool {
	_, ok := fs[name]
	return ok
}

// Sorted returns the names in lexical order.
func (fs FieldSet) Sorted() []string {
	out := make([]string, 0, len(fs))
	for f := range fs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// basisPoints converts pct to hundredths of a percent. ok is false when
// pct carries a fraction of a basis point.
func basisPoints(pct float64) (int64, bool) {
	scaled := pct * 100
	bp := math.Round(scaled)
	return int64(bp), math.Abs(scaled-bp) < 1e-6
}
