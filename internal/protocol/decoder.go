package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vecta-client/internal/model"
)

// ErrUnknownFrameType marks a frame whose type discriminator is not part of
// the protocol. Callers log and discard; the connection stays open.
var ErrUnknownFrameType = errors.New("unknown frame type")

// inboundFrame is the superset wire shape. Every payload field is optional;
// the discriminator decides which ones are read.
type inboundFrame struct {
	Type      string     `json:"type"`
	Timestamp *time.Time `json:"timestamp,omitempty"`

	SessionId string `json:"session_id,omitempty"`

	Content    string `json:"content,omitempty"`
	IsComplete bool   `json:"is_complete,omitempty"`

	Message string `json:"message,omitempty"`

	QualifiedGoals []model.GoalRecord `json:"qualified_goals,omitempty"`
	PossibleGoals  []model.GoalRecord `json:"possible_goals,omitempty"`
	RejectedGoals  []string           `json:"rejected_goals,omitempty"`
	Goal           *model.GoalRecord  `json:"goal,omitempty"`

	Profile *model.FinancialProfile `json:"profile,omitempty"`
	Delta   map[string]interface{}  `json:"delta,omitempty"`

	Node   string                 `json:"node,omitempty"`
	Fields map[string]interface{} `json:"fields,omitempty"`

	Filename      string   `json:"filename,omitempty"`
	Status        string   `json:"status,omitempty"`
	ExtractionId  string   `json:"extraction_id,omitempty"`
	DocumentType  string   `json:"document_type,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
	Prompt        string   `json:"prompt,omitempty"`

	Title     string                 `json:"title,omitempty"`
	ChartType string                 `json:"chart_type,omitempty"`
	Data      []interface{}          `json:"data,omitempty"`
	Config    map[string]interface{} `json:"config,omitempty"`

	Actions []model.ActionButton `json:"actions,omitempty"`

	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`
}

func (f *inboundFrame) timestamp() time.Time {
	if f.Timestamp != nil {
		return *f.Timestamp
	}
	return time.Time{}
}

// Decode parses one raw text frame into a typed event. Malformed JSON and
// unknown discriminators come back as errors, never panics, so a bad frame
// cannot take the channel down.
func Decode(raw []byte) (Event, error) {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame missing type discriminator: %w", ErrUnknownFrameType)
	}

	switch f.Type {
	case TypeConnectionEstablished:
		return ConnectionEstablished{SessionId: f.SessionId, Timestamp: f.timestamp()}, nil

	case TypeChatResponse:
		return ChatChunk{Content: f.Content, IsComplete: f.IsComplete, Timestamp: f.timestamp()}, nil

	case TypeError:
		return ErrorEvent{Message: f.Message, Timestamp: f.timestamp()}, nil

	case TypeGoalUpdate:
		return GoalUpdate{
			State: model.GoalState{
				QualifiedGoals: f.QualifiedGoals,
				PossibleGoals:  f.PossibleGoals,
				RejectedGoals:  f.RejectedGoals,
			},
			Timestamp: f.timestamp(),
		}, nil

	case TypeProfileUpdate:
		ev := ProfileUpdate{Delta: f.Delta, Timestamp: f.timestamp()}
		if f.Profile != nil {
			ev.Profile = *f.Profile
		}
		return ev, nil

	case TypeCollectedData:
		return CollectedDataUpdate{Node: f.Node, Fields: f.Fields, Timestamp: f.timestamp()}, nil

	case TypeDocumentProcessing:
		return DocumentProcessing{
			Filename:  f.Filename,
			Status:    f.Status,
			Message:   f.Message,
			Timestamp: f.timestamp(),
		}, nil

	case TypeDocumentExtraction:
		return DocumentExtraction{
			ExtractionId: f.ExtractionId,
			DocumentType: f.DocumentType,
			Fields:       f.Fields,
			Message:      f.Message,
			Timestamp:    f.timestamp(),
		}, nil

	case TypeUploadPrompt:
		return UploadPrompt{
			Prompt:        f.Prompt,
			DocumentTypes: f.DocumentTypes,
			Timestamp:     f.timestamp(),
		}, nil

	case TypeVisualization:
		return Visualization{
			Payload: model.VisualizationPayload{
				Title:     f.Title,
				ChartType: f.ChartType,
				Data:      f.Data,
				Config:    f.Config,
			},
			Message:   f.Message,
			Timestamp: f.timestamp(),
		}, nil

	case TypeUIActions:
		return UIActions{Actions: f.Actions, Message: f.Message, Timestamp: f.timestamp()}, nil

	case TypeGoalQualification:
		ev := GoalQualification{Message: f.Message, Timestamp: f.timestamp()}
		if f.Goal != nil {
			ev.Goal = *f.Goal
		}
		return ev, nil

	case TypeScenarioQuestion:
		return ScenarioQuestion{
			Scenario:  model.ScenarioPayload{Question: f.Question, Options: f.Options},
			Timestamp: f.timestamp(),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, f.Type)
	}
}
