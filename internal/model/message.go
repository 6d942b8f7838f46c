package model

import (
	"time"
)

// MessageType discriminates the renderable units in the conversation log.
type MessageType string

const (
	MessageTypeUser               MessageType = "user"
	MessageTypeAssistant          MessageType = "assistant"
	MessageTypeSystem             MessageType = "system"
	MessageTypeError              MessageType = "error"
	MessageTypeProfileUpdate      MessageType = "profile_update"
	MessageTypeDocumentProcessing MessageType = "document_processing"
	MessageTypeDocumentExtraction MessageType = "document_extraction"
	MessageTypeUploadPrompt       MessageType = "document_upload_prompt"
	MessageTypeVisualization      MessageType = "visualization"
	MessageTypeUIActions          MessageType = "ui_actions"
	MessageTypeGoalQualification  MessageType = "goal_qualification"
	MessageTypeScenarioQuestion   MessageType = "scenario_question"
)

// ChatMessage is one entry in the conversation log. The log is append-only;
// the only in-place mutation allowed is the content of the single message
// with IsStreaming set, until the stream accumulator finalizes it.
type ChatMessage struct {
	Id          string      `json:"id"`
	Type        MessageType `json:"type"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
	IsStreaming bool        `json:"is_streaming,omitempty"`

	// Type-specific payloads; nil for kinds that don't carry them.
	ProfileDelta  map[string]interface{} `json:"profile_delta,omitempty"`
	Extraction    *ExtractionPayload     `json:"extraction,omitempty"`
	UploadPrompt  *UploadPromptPayload   `json:"upload_prompt,omitempty"`
	Visualization *VisualizationPayload  `json:"visualization,omitempty"`
	Actions       []ActionButton         `json:"actions,omitempty"`
	Goal          *GoalRecord            `json:"goal,omitempty"`
	Scenario      *ScenarioPayload       `json:"scenario,omitempty"`
}

// ExtractionPayload carries the result of a backend document extraction run
// awaiting user confirmation.
type ExtractionPayload struct {
	ExtractionId string                 `json:"extraction_id"`
	DocumentType string                 `json:"document_type,omitempty"`
	Fields       map[string]interface{} `json:"fields,omitempty"`
}

// UploadPromptPayload asks the user to upload one of the suggested documents.
type UploadPromptPayload struct {
	Prompt        string   `json:"prompt,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
}

// VisualizationPayload is a chart pushed by the backend. Config and Data are
// kept opaque; the client only stores and replays them.
type VisualizationPayload struct {
	Title     string                 `json:"title,omitempty"`
	ChartType string                 `json:"chart_type,omitempty"`
	Data      []interface{}          `json:"data,omitempty"`
	Config    map[string]interface{} `json:"config,omitempty"`
}

// ActionButton is one backend-suggested quick action.
type ActionButton struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
}

// ScenarioPayload is a what-if question with structured answer options.
type ScenarioPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}
