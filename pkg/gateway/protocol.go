// Package gateway implements the Live Session Gateway (SPEC_FULL.md
// §4.7): one WebSocket connection per client, each running zero or
// more concurrent agent-loop turns, plus a cross-pod incident-update
// broadcast fed by PostgreSQL LISTEN/NOTIFY.
package gateway

import "encoding/json"

// ClientMessage is the discriminated-union shape for every
// client → server frame (§6).
type ClientMessage struct {
	Type string `json:"type,omitempty"` // "init", "control"

	// init
	UserID string `json:"user_id,omitempty"`

	// control
	Action    string `json:"action,omitempty"` // "cancel"
	SessionID string `json:"session_id,omitempty"`

	// confirmation_response
	ConfirmationID string `json:"confirmation_id,omitempty"`
	Approved       bool   `json:"approved,omitempty"`

	// query (Type is empty for a bare query frame, per §6's literal schema)
	Query              string            `json:"query,omitempty"`
	Model              string            `json:"model,omitempty"`
	Mode               string            `json:"mode,omitempty"`
	ProviderPreference []string          `json:"provider_preference,omitempty"`
	Attachments        []ClientAttachment `json:"attachments,omitempty"`
	DirectToolCall     *DirectToolCall   `json:"direct_tool_call,omitempty"`
	UIState            json.RawMessage   `json:"ui_state,omitempty"`
}

// ClientAttachment mirrors agentloop.Attachment on the wire.
type ClientAttachment struct {
	Filename     string `json:"filename"`
	FileType     string `json:"file_type"`
	FileData     string `json:"file_data,omitempty"`
	ServerPath   string `json:"server_path,omitempty"`
	IsServerPath bool   `json:"is_server_path,omitempty"`
}

// DirectToolCall bypasses the agent loop entirely when set and allowed
// by mode (§4.7).
type DirectToolCall struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
}

// isQuery reports whether msg is a query frame rather than a
// control/init/confirmation_response frame — queries carry no Type.
func (m *ClientMessage) isQuery() bool {
	return m.Type == "" && (m.Query != "" || m.DirectToolCall != nil)
}

// ServerFrame is the discriminated-union shape for every
// server → client frame (§6). All frames carry session_id when applicable.
type ServerFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data"`
	IsComplete bool  `json:"isComplete,omitempty"`
}

type statusData struct {
	Status string `json:"status"` // "START", "END"
}

type messageData struct {
	Text      string `json:"text"`
	IsChunk   bool   `json:"is_chunk,omitempty"`
	Streaming bool   `json:"streaming,omitempty"`
}

type toolCallData struct {
	ToolName   string         `json:"tool_name"`
	Input      map[string]any `json:"input"`
	Status     string         `json:"status"`
	Timestamp  int64          `json:"timestamp"`
	ToolCallID string         `json:"tool_call_id"`
}

type toolResultData struct {
	ToolName  string `json:"tool_name"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
}

type confirmationRequestData struct {
	ConfirmationID string `json:"confirmation_id"`
	ToolName       string `json:"tool_name"`
	Message        string `json:"message"`
}

type usageInfoData struct {
	TotalCost float64 `json:"total_cost"`
}

type errorData struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
	Code      string `json:"code,omitempty"`
}
