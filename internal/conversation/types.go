// Package conversation defines conversation domain types and rules.
package conversation

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Analysis category constants recorded on interpretations.
const (
	AnalysisSingleFile    = "single_file"
	AnalysisMultipleFiles = "multiple_files"
)

// Content is a message body. It is either plain text or an opaque structured
// payload that is replayed to the provider in its serialized form.
type Content struct {
	text       string
	structured json.RawMessage
}

// TextContent creates plain text content.
func TextContent(text string) Content {
	return Content{text: text}
}

// StructuredContent creates content from an opaque JSON payload.
// A JSON string payload is unwrapped into plain text.
func StructuredContent(raw json.RawMessage) Content {
	var c Content
	if err := c.UnmarshalJSON(raw); err != nil {
		return Content{text: string(raw)}
	}
	return c
}

// IsStructured reports whether the content carries a structured payload.
func (c Content) IsStructured() bool {
	return len(c.structured) > 0
}

// Raw returns the structured payload, or nil for text content.
func (c Content) Raw() json.RawMessage {
	return c.structured
}

// Text returns the textual form used when the content is replayed:
// the text itself, or the compact JSON serialization of a structured payload.
func (c Content) Text() string {
	if c.IsStructured() {
		return string(c.structured)
	}
	return c.text
}

// MarshalJSON encodes text as a JSON string and structured payloads verbatim.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsStructured() {
		return c.structured, nil
	}
	return json.Marshal(c.text)
}

// UnmarshalJSON accepts either a JSON string or any other JSON value.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = Content{text: s}
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return err
	}
	*c = Content{structured: json.RawMessage(compact.Bytes())}
	return nil
}

// Message is one transcript entry. Messages are append-only once written.
type Message struct {
	Role     string   `json:"role"`
	Content  Content  `json:"content"`
	FileURLs []string `json:"fileUrls,omitempty"`
}

// NormalizeRole maps any role onto user or assistant.
func NormalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), RoleAssistant) {
		return RoleAssistant
	}
	return RoleUser
}

// Conversation is the persisted transcript of one chat.
// Messages are kept in insertion order, which is chronological order.
type Conversation struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Messages          []Message `json:"messages"`
	ContinuationToken string    `json:"continuationToken,omitempty"`
	Revision          int64     `json:"revision"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UsageRecord holds the per-user scan counters.
type UsageRecord struct {
	UserID         string    `json:"userId"`
	DisplayName    string    `json:"userName,omitempty"`
	LastScanDate   string    `json:"lastScanDate"`
	ScansToday     int       `json:"scansToday"`
	CompletedScans int       `json:"completedScans"`
	ScansRemaining int       `json:"scansRemaining"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// AnalysisArtifact records the result of one media-bearing turn.
type AnalysisArtifact struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"userId"`
	URLs                 []string  `json:"urls"`
	InterpretationResult string    `json:"interpretationResult"`
	PromptMessage        string    `json:"promptMessage"`
	ConversationID       string    `json:"conversationId"`
	FilesCount           int       `json:"filesCount"`
	AnalysisType         string    `json:"analysisType"`
	CreatedAt            time.Time `json:"createdAt"`
}

// AnalysisTypeFor returns the analysis category for a media count.
func AnalysisTypeFor(filesCount int) string {
	if filesCount == 1 {
		return AnalysisSingleFile
	}
	return AnalysisMultipleFiles
}

// Turn is one inbound chat request. It is not modified once received.
type Turn struct {
	// CallerID is the authenticated identity; it never comes from the body.
	CallerID string `json:"-"`

	UserID                 string    `json:"userId"`
	UserMessage            string    `json:"userMessage" validate:"notblank"`
	FileURLs               []string  `json:"fileUrls" validate:"max=10,dive,required"`
	ConversationID         string    `json:"conversationId,omitempty"`
	IncludePreviousHistory bool      `json:"includePreviousHistory"`
	History                []Message `json:"history,omitempty"`
	Language               string    `json:"language,omitempty"`
}

// HasMedia reports whether the turn attaches at least one media item.
func (t Turn) HasMedia() bool {
	return len(t.FileURLs) > 0
}

// ChatResponse is the result returned to the caller for a completed turn.
type ChatResponse struct {
	Success              bool      `json:"success"`
	Message              string    `json:"message"`
	InterpretationResult string    `json:"interpretationResult"`
	PromptMessage        string    `json:"promptMessage"`
	FilesCount           int       `json:"filesCount"`
	CreatedAt            time.Time `json:"createdAt"`
	ConversationID       string    `json:"conversationId"`
}

// MediaFile is a media reference sent by the legacy multi-file entry point.
type MediaFile struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Type     string `json:"type"`
	MimeType string `json:"mimeType,omitempty"`
}

// LegacyAnalysisRequest is the body of the legacy multi-file entry point.
type LegacyAnalysisRequest struct {
	UserID         string      `json:"userId"`
	ConversationID string      `json:"conversationId,omitempty"`
	UserMessage    string      `json:"userMessage"`
	Language       string      `json:"language,omitempty"`
	MediaFiles     []MediaFile `json:"mediaFiles"`
}

// Turn adapts the legacy request into a turn that loads stored history.
func (r LegacyAnalysisRequest) Turn() Turn {
	urls := make([]string, 0, len(r.MediaFiles))
	for _, f := range r.MediaFiles {
		urls = append(urls, strings.TrimSpace(f.URL))
	}
	return Turn{
		UserID:                 r.UserID,
		UserMessage:            r.UserMessage,
		FileURLs:               urls,
		ConversationID:         r.ConversationID,
		IncludePreviousHistory: true,
		History:                []Message{},
		Language:               r.Language,
	}
}
