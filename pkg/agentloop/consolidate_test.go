package agentloop

import "testing"

func TestContainsPlaceholder_DetectsKnownTokens(t *testing.T) {
	messages := []Message{
		{Role: "assistant", Content: "Run this against <project-id> in us-central1"},
	}
	if !ContainsPlaceholder(messages) {
		t.Error("expected placeholder token to be detected")
	}
}

func TestContainsPlaceholder_CleanMessageNotFlagged(t *testing.T) {
	messages := []Message{
		{Role: "assistant", Content: "Run this against tarsy-prod-42 in us-central1"},
	}
	if ContainsPlaceholder(messages) {
		t.Error("did not expect a placeholder token to be detected")
	}
}

func TestExtractLastToolFailure_ReturnsMostRecentFailure(t *testing.T) {
	messages := []Message{
		{Role: "tool", Content: `{"success":true,"tool_name":"k8s_get_pods"}`},
		{Role: "tool", Content: `{"success":false,"tool_name":"k8s_delete_pod","message":"forbidden","final_command":"kubectl delete pod x"}`},
	}
	failure := ExtractLastToolFailure(messages)
	if failure == "" {
		t.Fatal("expected a non-empty failure summary")
	}
}

func TestExtractLastToolFailure_NoFailuresReturnsEmpty(t *testing.T) {
	messages := []Message{
		{Role: "tool", Content: `{"success":true}`},
	}
	if got := ExtractLastToolFailure(messages); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestConsolidateTurn_DedupesAssistantByExactContent(t *testing.T) {
	messages := []Message{
		{Role: "assistant", Content: "Checking pod status"},
		{Role: "assistant", Content: "Checking pod status"},
	}
	out := ConsolidateTurn(messages)
	if len(out) != 1 {
		t.Fatalf("expected 1 message after dedup, got %d", len(out))
	}
}

func TestConsolidateTurn_LaterToolCallMessageReplacesOverlappingEarlier(t *testing.T) {
	messages := []Message{
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_1", Name: "k8s_get_pods"}}},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_1", Name: "k8s_get_pods", Args: map[string]any{"namespace": "prod"}}}},
	}
	out := ConsolidateTurn(messages)
	if len(out) != 1 {
		t.Fatalf("expected 1 message after overlap replacement, got %d", len(out))
	}
	if out[0].ToolCalls[0].Args["namespace"] != "prod" {
		t.Errorf("expected the more complete later message to survive, got %+v", out[0])
	}
}

func TestConsolidateTurn_DedupesToolResultsByCallIDAndCommand(t *testing.T) {
	messages := []Message{
		{Role: "tool", ToolCallID: "call_1", Content: `{"final_command":"kubectl get pods"}`},
		{Role: "tool", ToolCallID: "call_1", Content: `{"final_command":"kubectl get pods"}`},
	}
	out := ConsolidateTurn(messages)
	if len(out) != 1 {
		t.Fatalf("expected 1 tool message after dedup, got %d", len(out))
	}
}

func TestConsolidateTurn_PreservesDistinctParallelToolCalls(t *testing.T) {
	messages := []Message{
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_1", Name: "k8s_get_pods"}}},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_2", Name: "aws_s3_list_buckets"}}},
	}
	out := ConsolidateTurn(messages)
	if len(out) != 2 {
		t.Fatalf("expected both parallel tool calls preserved, got %d", len(out))
	}
}
