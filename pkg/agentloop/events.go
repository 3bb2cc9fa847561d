package agentloop

// EventType enumerates the Engine's output stream event kinds (§4.1 Outputs).
type EventType string

const (
	EventToken               EventType = "token"
	EventToolCall            EventType = "tool_call"
	EventToolResult          EventType = "tool_result"
	EventMessage             EventType = "message"
	EventStatus              EventType = "status"
	EventConfirmationRequest EventType = "confirmation_request"
	EventUsageInfo           EventType = "usage_info"
)

// ToolCallStatus mirrors the lifecycle values carried on tool_call/tool_result events.
type ToolCallStatus string

const (
	ToolStatusRunning   ToolCallStatus = "running"
	ToolStatusCompleted ToolCallStatus = "completed"
	ToolStatusError     ToolCallStatus = "error"
)

// StatusValue is the payload of a status event.
type StatusValue string

const StatusEnd StatusValue = "END"

// Event is one item in the Engine's output stream. Exactly one of the
// payload fields is meaningful, selected by Type; this mirrors the
// discriminated-union wire shape in §6 rather than using Go's lack of
// sum types as an excuse to scatter event kinds across separate channels.
type Event struct {
	Type EventType

	Text string // EventToken / EventMessage

	ToolCallID string         // EventToolCall / EventToolResult
	ToolName   string         // EventToolCall / EventToolResult
	ToolInput  map[string]any // EventToolCall
	ToolOutput string         // EventToolResult
	ToolStatus ToolCallStatus // EventToolCall / EventToolResult

	Status StatusValue // EventStatus

	ConfirmationID string // EventConfirmationRequest
	Message        string // EventConfirmationRequest

	TotalCost float64 // EventUsageInfo

	Timestamp int64
}
