package model

import "time"

// GoalRecord is a backend-inferred or user-confirmed financial objective.
type GoalRecord struct {
	Id          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Priority    int        `json:"priority,omitempty"`    // qualified goals: display sort key
	Confidence  float64    `json:"confidence,omitempty"`  // possible goals only
	DeducedFrom string     `json:"deduced_from,omitempty"` // possible goals only
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Amount      float64    `json:"amount,omitempty"`
}

// GoalState is a snapshot, not a log. It is replaced wholesale on every
// goal update event.
type GoalState struct {
	QualifiedGoals []GoalRecord `json:"qualified_goals"`
	PossibleGoals  []GoalRecord `json:"possible_goals"`
	RejectedGoals  []string     `json:"rejected_goals"`
}
