package toolcatalog

import (
	"context"
	"encoding/json"
	"testing"
)

func echoTool(name string, requiresConfirm bool, modes ...Mode) *Tool {
	return &Tool{
		Name:                 name,
		Domain:               "test",
		AllowedModes:         modes,
		RequiresConfirmation: requiresConfirm,
		Execute: func(ctx *Context, args map[string]any) (string, error) {
			return successResult(map[string]any{"args": args}), nil
		},
	}
}

func newTestContext(mode Mode) *Context {
	return &Context{Context: context.Background(), UserID: "u1", SessionID: "s1", Mode: mode}
}

func TestInvoke_ModeEnforcement_AskModeRejectsMutatingTool(t *testing.T) {
	c := New()
	c.Register(echoTool("deploy_thing", false, ModeAgent))

	result, err := c.Invoke(newTestContext(ModeAsk), "deploy_thing", nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("result not valid JSON: %v", err)
	}
	if parsed["error"] != true || parsed["code"] != ErrCodeReadOnlyMode {
		t.Errorf("expected READ_ONLY_MODE error result, got %v", parsed)
	}
}

func TestInvoke_AgentModeAllowsMutatingTool(t *testing.T) {
	c := New()
	c.Register(echoTool("deploy_thing", false, ModeAgent))

	result, err := c.Invoke(newTestContext(ModeAgent), "deploy_thing", map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	var parsed map[string]any
	_ = json.Unmarshal([]byte(result), &parsed)
	if parsed["ok"] != true {
		t.Errorf("expected ok result, got %v", parsed)
	}
}

func TestInvoke_UnknownToolReturnsErrorResult(t *testing.T) {
	c := New()
	result, err := c.Invoke(newTestContext(ModeAgent), "does_not_exist", nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	var parsed map[string]any
	_ = json.Unmarshal([]byte(result), &parsed)
	if parsed["error"] != true {
		t.Errorf("expected error result for unknown tool, got %v", parsed)
	}
}

func TestInvoke_RequiresConfirmationDeniedReturnsCancelledShape(t *testing.T) {
	c := New()
	c.Register(echoTool("risky_tool", true, ModeAgent))

	ctx := newTestContext(ModeAgent)
	ctx.Confirm = func(toolName, message string) (bool, bool) { return false, false }

	result, err := c.Invoke(ctx, "risky_tool", nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	var parsed map[string]any
	_ = json.Unmarshal([]byte(result), &parsed)
	if parsed["cancelled"] != true {
		t.Errorf("expected cancelled result, got %v", parsed)
	}
}

func TestInvoke_RequiresConfirmationApprovedExecutes(t *testing.T) {
	c := New()
	c.Register(echoTool("risky_tool", true, ModeAgent))

	ctx := newTestContext(ModeAgent)
	ctx.Confirm = func(toolName, message string) (bool, bool) { return true, false }

	result, err := c.Invoke(ctx, "risky_tool", nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	var parsed map[string]any
	_ = json.Unmarshal([]byte(result), &parsed)
	if parsed["ok"] != true {
		t.Errorf("expected ok result after approval, got %v", parsed)
	}
}

func TestInvoke_PanicBecomesErrorResult(t *testing.T) {
	c := New()
	c.Register(&Tool{
		Name:         "panicky",
		AllowedModes: []Mode{ModeAgent},
		Execute: func(ctx *Context, args map[string]any) (string, error) {
			panic("boom")
		},
	})

	result, err := c.Invoke(newTestContext(ModeAgent), "panicky", nil)
	if err != nil {
		t.Fatalf("Invoke() should not return a Go error for a tool panic: %v", err)
	}
	var parsed map[string]any
	_ = json.Unmarshal([]byte(result), &parsed)
	if parsed["error"] != true {
		t.Errorf("expected error-shape result for a panicking tool, got %v", parsed)
	}
}
