package nl2sql

import "context"

const (
	providerName = "rules"
	modelName    = "keyword-table"
)

type Request struct {
	NaturalLanguage string `json:"natural_language"`
	// Explain asks for the plan explanation alongside the SQL.
	Explain bool `json:"explain,omitempty"`
}

type Result struct {
	SQL         string       `json:"sql"`
	Provider    string       `json:"provider"`
	Model       string       `json:"model"`
	Plan        Plan         `json:"plan"`
	Explanation *Explanation `json:"explanation,omitempty"`
}

// Translator turns a question into SQL. The rule engine is the only
// implementation; callers depend on the interface.
type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

var _ Translator = (*Engine)(nil)

func (e *Engine) Translate(ctx context.Context, req Request) (Result, error) {
	plan, err := e.ProcessQuery(ctx, req.NaturalLanguage)
	if err != nil {
		return Result{}, err
	}
	result := Result{SQL: plan.SQL, Provider: providerName, Model: modelName, Plan: plan}
	if req.Explain {
		explanation := e.ExplainQuery(plan)
		result.Explanation = &explanation
	}
	return result, nil
}
