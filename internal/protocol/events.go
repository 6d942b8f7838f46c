package protocol

import (
	"time"

	"vecta-client/internal/model"
)

// Frame type discriminators used on the realtime channel.
const (
	TypeConnectionEstablished = "connection_established"
	TypeChatResponse          = "chat_response"
	TypeError                 = "error"
	TypeGoalUpdate            = "goal_update"
	TypeProfileUpdate         = "profile_update"
	TypeCollectedData         = "collected_data_update"
	TypeDocumentProcessing    = "document_processing"
	TypeDocumentExtraction    = "document_extraction"
	TypeUploadPrompt          = "document_upload_prompt"
	TypeVisualization         = "visualization"
	TypeUIActions             = "ui_actions"
	TypeGoalQualification     = "goal_qualification"
	TypeScenarioQuestion      = "scenario_question"

	// Outbound frame types.
	TypeUserMessage     = "user_message"
	TypeDocumentUpload  = "document_upload"
	TypeDocumentConfirm = "document_confirm"
)

// Event is one classified inbound frame. The set of implementations is
// closed; dispatch sites switch exhaustively over them so a new frame kind
// has to be handled explicitly rather than falling into a default branch.
type Event interface {
	FrameType() string
}

type ConnectionEstablished struct {
	SessionId string
	Timestamp time.Time
}

// ChatChunk is one partial-content frame of a streamed assistant reply.
// Content may be empty when IsComplete acts as a pure terminator.
type ChatChunk struct {
	Content    string
	IsComplete bool
	Timestamp  time.Time
}

type ErrorEvent struct {
	Message   string
	Timestamp time.Time
}

type GoalUpdate struct {
	State     model.GoalState
	Timestamp time.Time
}

type ProfileUpdate struct {
	Profile   model.FinancialProfile
	Delta     map[string]interface{}
	Timestamp time.Time
}

type CollectedDataUpdate struct {
	Node      string
	Fields    map[string]interface{}
	Timestamp time.Time
}

type DocumentProcessing struct {
	Filename  string
	Status    string
	Message   string
	Timestamp time.Time
}

type DocumentExtraction struct {
	ExtractionId string
	DocumentType string
	Fields       map[string]interface{}
	Message      string
	Timestamp    time.Time
}

type UploadPrompt struct {
	Prompt        string
	DocumentTypes []string
	Timestamp     time.Time
}

type Visualization struct {
	Payload   model.VisualizationPayload
	Message   string
	Timestamp time.Time
}

type UIActions struct {
	Actions   []model.ActionButton
	Message   string
	Timestamp time.Time
}

type GoalQualification struct {
	Goal      model.GoalRecord
	Message   string
	Timestamp time.Time
}

type ScenarioQuestion struct {
	Scenario  model.ScenarioPayload
	Timestamp time.Time
}

func (ConnectionEstablished) FrameType() string { return TypeConnectionEstablished }
func (ChatChunk) FrameType() string             { return TypeChatResponse }
func (ErrorEvent) FrameType() string            { return TypeError }
func (GoalUpdate) FrameType() string            { return TypeGoalUpdate }
func (ProfileUpdate) FrameType() string         { return TypeProfileUpdate }
func (CollectedDataUpdate) FrameType() string   { return TypeCollectedData }
func (DocumentProcessing) FrameType() string    { return TypeDocumentProcessing }
func (DocumentExtraction) FrameType() string    { return TypeDocumentExtraction }
func (UploadPrompt) FrameType() string          { return TypeUploadPrompt }
func (Visualization) FrameType() string         { return TypeVisualization }
func (UIActions) FrameType() string             { return TypeUIActions }
func (GoalQualification) FrameType() string     { return TypeGoalQualification }
func (ScenarioQuestion) FrameType() string      { return TypeScenarioQuestion }
