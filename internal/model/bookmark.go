package model

import "time"

// Bookmark is a user-saved reference to a previously rendered visualization.
// Entirely client-owned: no backend counterpart, outlives the session.
type Bookmark struct {
	Id          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	ChartType   string                 `json:"chart_type,omitempty"`
	ChartData   []interface{}          `json:"chart_data,omitempty"`
	ChartConfig map[string]interface{} `json:"chart_config,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
