package model

// SessionStatus is the connection status indicator surfaced to the UI.
type SessionStatus string

const (
	StatusConnecting   SessionStatus = "connecting"
	StatusConnected    SessionStatus = "connected"
	StatusDisconnected SessionStatus = "disconnected"
	StatusError        SessionStatus = "error"
)

// PendingExtraction is the single-slot "waiting for a yes/no on this
// extraction" state. A newer extraction prompt supersedes it.
type PendingExtraction struct {
	ExtractionId string                 `json:"extraction_id"`
	DocumentType string                 `json:"document_type,omitempty"`
	Fields       map[string]interface{} `json:"fields,omitempty"`
}

// PendingUploadPrompt is the single-slot "waiting for an upload" state.
type PendingUploadPrompt struct {
	Prompt        string   `json:"prompt,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
}
