package model

// FinancialProfile is the backend-held snapshot of financial facts. The
// backend owns all inference; the client replaces this wholesale on every
// profile update event and never edits it field by field.
type FinancialProfile struct {
	Assets         map[string]interface{} `json:"assets,omitempty"`
	Liabilities    map[string]interface{} `json:"liabilities,omitempty"`
	Insurance      map[string]interface{} `json:"insurance,omitempty"`
	Income         map[string]interface{} `json:"income,omitempty"`
	Goals          []GoalRecord           `json:"goals,omitempty"`
	RiskTolerance  string                 `json:"risk_tolerance,omitempty"`
	Superannuation map[string]interface{} `json:"superannuation,omitempty"`
}

// CollectedData maps an interview node/section name to the fields gathered
// under it so far. Nodes are merged incrementally and pruned only on a
// session clear.
type CollectedData map[string]map[string]interface{}
