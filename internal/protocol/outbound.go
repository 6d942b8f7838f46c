package protocol

import (
	"encoding/json"
	"time"
)

// UserMessageFrame is the outbound user chat message.
type UserMessageFrame struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DocumentUploadFrame notifies the backend that a document landed in storage
// and is ready for extraction.
type DocumentUploadFrame struct {
	Type         string    `json:"type"`
	S3URL        string    `json:"s3_url"`
	DocumentType string    `json:"document_type"`
	Filename     string    `json:"filename"`
	Timestamp    time.Time `json:"timestamp"`
}

// DocumentConfirmFrame answers a pending extraction with an accept/reject and
// optional field corrections.
type DocumentConfirmFrame struct {
	Type         string                 `json:"type"`
	ExtractionId string                 `json:"extraction_id"`
	Confirmed    bool                   `json:"confirmed"`
	Corrections  map[string]interface{} `json:"corrections,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
}

func EncodeUserMessage(content string, now time.Time) ([]byte, error) {
	return json.Marshal(UserMessageFrame{
		Type:      TypeUserMessage,
		Content:   content,
		Timestamp: now,
	})
}

func EncodeDocumentUpload(s3URL, documentType, filename string, now time.Time) ([]byte, error) {
	return json.Marshal(DocumentUploadFrame{
		Type:         TypeDocumentUpload,
		S3URL:        s3URL,
		DocumentType: documentType,
		Filename:     filename,
		Timestamp:    now,
	})
}

func EncodeDocumentConfirm(extractionId string, confirmed bool, corrections map[string]interface{}, now time.Time) ([]byte, error) {
	return json.Marshal(DocumentConfirmFrame{
		Type:         TypeDocumentConfirm,
		ExtractionId: extractionId,
		Confirmed:    confirmed,
		Corrections:  corrections,
		Timestamp:    now,
	})
}
