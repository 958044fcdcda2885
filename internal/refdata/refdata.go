package refdata

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"golang.org/x/sync/errgroup"

	"policy-onboarding/internal/model"
	"policy-onboarding/internal/transport"
)

type (
	// Repository serves the read-only reference lists the wizard consults.
	Repository interface {
		PolicyTypes() []PolicyType
		Agents() []Agent
		PolicyType(id string) (PolicyType, bool)
		Agent(id string) (Agent, bool)
	}

	// PolicyType is a product the applicant can choose. Premiums are
	// monthly; Rates adds a monthly amount per covered dependent.
	PolicyType struct {
		ID          string                     `json:"id"`
		Name        string                     `json:"name"`
		BasePremium float64                    `json:"basePremium"`
		CoverAmount float64                    `json:"coverAmount"`
		Rates       map[model.Category]float64 `json:"rates,omitempty"`
	}

	Agent struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Code string `json:"code,omitempty"`
	}

	// Catalog is an immutable Repository.
	Catalog struct {
		policyTypes []PolicyType
		agents      []Agent
		typeByID    map[string]PolicyType
		agentByID   map[string]Agent
	}
)

const (
	PolicyTypesPath = "/policy-types"
	AgentsPath      = "/agents"
)

var _ Repository = (*Catalog)(nil)

// Static builds a Catalog from fixed lists.
func Static(policyTypes []PolicyType, agents []Agent) *Catalog {
	c := &Catalog{
		policyTypes: append([]PolicyType(nil), policyTypes...),
		agents:      append([]Agent(nil), agents...),
		typeByID:    make(map[string]PolicyType, len(policyTypes)),
		agentByID:   make(map[string]Agent, len(agents)),
	}
	for _, pt := range c.policyTypes {
		c.typeByID[pt.ID] = pt
	}
	for _, a := range c.agents {
		c.agentByID[a.ID] = a
	}
	return c
}

// Fetch loads both lists from the backend concurrently. Call it once at
// startup and share the resulting Catalog.
func Fetch(ctx context.Context, t transport.Transport) (*Catalog, error) {
	var policyTypes []PolicyType
	var agents []Agent

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fetchList(ctx, t, PolicyTypesPath, &policyTypes)
	})
	g.Go(func() error {
		return fetchList(ctx, t, AgentsPath, &agents)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Static(policyTypes, agents), nil
}

func fetchList(ctx context.Context, t transport.Transport, path string, out any) error {
	resp, err := t.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Catalog) PolicyTypes() []PolicyType {
	return append([]PolicyType(nil), c.policyTypes...)
}

func (c *Catalog) Agents() []Agent {
	return append([]Agent(nil), c.agents...)
}

func (c *Catalog) PolicyType(id string) (PolicyType, bool) {
	pt, ok := c.typeByID[id]
	return pt, ok
}

func (c *Catalog) Agent(id string) (Agent, bool) {
	a, ok := c.agentByID[id]
	return a, ok
}

// MonthlyPremium is the base premium plus the per-dependent rates, rounded
// to cents.
func (pt PolicyType) MonthlyPremium(counts map[model.Category]int) float64 {
	total := pt.BasePremium
	for cat, n := range counts {
		total += pt.Rates[cat] * float64(n)
	}
	return math.Round(total*100) / 100
}

// Default is the built-in product list used when the backend is not the
// reference data source.
func Default() *Catalog {
	return Static(
		[]PolicyType{
			{
				ID: "funeral-basic", Name: "Funeral Basic",
				BasePremium: 99, CoverAmount: 10000,
				Rates: map[model.Category]float64{
					model.CategorySpouse:   35,
					model.CategoryChild:    15,
					model.CategoryExtended: 45,
				},
			},
			{
				ID: "funeral-plus", Name: "Funeral Plus",
				BasePremium: 189, CoverAmount: 30000,
				Rates: map[model.Category]float64{
					model.CategorySpouse:   65,
					model.CategoryChild:    25,
					model.CategoryExtended: 80,
				},
			},
			{
				ID: "family-premier", Name: "Family Premier",
				BasePremium: 349, CoverAmount: 60000,
				Rates: map[model.Category]float64{
					model.CategorySpouse:   120,
					model.CategoryChild:    40,
					model.CategoryExtended: 150,
				},
			},
		},
		[]Agent{
			{ID: "ag-001", Name: "Nomsa Dlamini", Code: "ND01"},
			{ID: "ag-002", Name: "Pieter van Wyk", Code: "PW02"},
		},
	)
}
