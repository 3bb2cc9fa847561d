// Package toolcatalog implements the Tool Catalog & Mode Access
// Controller (SPEC_FULL.md §4.3): a registry of named, schema-described
// operations the agent loop can invoke, each declaring its argument
// schema, confirmation policy, and mode allowance.
package toolcatalog

import (
	"context"
	"encoding/json"
	"fmt"
)

// Mode is the per-turn policy controlling whether mutating tools are
// permitted.
type Mode string

const (
	ModeAgent Mode = "agent"
	ModeAsk   Mode = "ask"
)

// ErrCodeReadOnlyMode is the uniform error code returned when a
// mutating tool is invoked in ask mode.
const ErrCodeReadOnlyMode = "READ_ONLY_MODE"

// Context carries the implicit execution context every tool function
// receives alongside its cleaned arguments.
type Context struct {
	context.Context
	UserID             string
	SessionID          string
	Mode               Mode
	ProviderPreference []string

	// Confirm, when the tool declares RequiresConfirmation, blocks until
	// the user approves/denies/cancels. Returns approved=false with
	// cancelled=true if the request was cancelled rather than denied.
	Confirm func(toolName, message string) (approved bool, cancelled bool)
}

// ExecuteFunc runs one tool invocation and returns its JSON-string
// result, per the canonical shapes in §4.3 / §6.
type ExecuteFunc func(ctx *Context, args map[string]any) (string, error)

// Tool is one catalog entry.
type Tool struct {
	Name                 string
	Domain               string // aws, k8s, bitbucket, iac, pipeline, tailscale, ...
	Description          string
	Schema               map[string]any
	RequiresConfirmation bool
	AllowedModes         []Mode
	Execute              ExecuteFunc
}

func (t *Tool) allowsMode(m Mode) bool {
	for _, am := range t.AllowedModes {
		if am == m {
			return true
		}
	}
	return false
}

// Catalog holds the registered tools, keyed by name.
type Catalog struct {
	tools map[string]*Tool
}

// New returns an empty catalog; call Register or Build* helpers to populate it.
func New() *Catalog {
	return &Catalog{tools: make(map[string]*Tool)}
}

// Register adds a tool to the catalog, overwriting any prior entry with the same name.
func (c *Catalog) Register(t *Tool) {
	c.tools[t.Name] = t
}

// Get returns a tool by name.
func (c *Catalog) Get(name string) (*Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// All returns every registered tool, for building the provider-facing
// ToolSpec list passed to the model.
func (c *Catalog) All() []*Tool {
	out := make([]*Tool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	return out
}

// successResult / errorResult / cancelledResult build the canonical
// JSON-string tool-result shapes from §4.3 / §6.
func successResult(fields map[string]any) string {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["ok"] = true
	b, _ := json.Marshal(fields)
	return string(b)
}

func errorResult(code, message string) string {
	b, _ := json.Marshal(map[string]any{"error": true, "code": code, "message": message})
	return string(b)
}

func cancelledResult() string {
	b, _ := json.Marshal(map[string]any{"success": true, "cancelled": true, "message": "Operation cancelled by user"})
	return string(b)
}

// Invoke runs a named tool: enforces mode access, routes through
// confirmation when required, and wraps the execute function so a
// panic becomes an error-shape result rather than crashing the turn
// (§4.1 step 3: "wrap any uncaught exception as an error tool result").
func (c *Catalog) Invoke(ctx *Context, name string, args map[string]any) (result string, err error) {
	t, ok := c.tools[name]
	if !ok {
		return errorResult("UNKNOWN_TOOL", fmt.Sprintf("no such tool: %s", name)), nil
	}
	if !t.allowsMode(ctx.Mode) {
		return errorResult(ErrCodeReadOnlyMode, fmt.Sprintf("%s is not permitted in %s mode", name, ctx.Mode)), nil
	}

	if t.RequiresConfirmation && ctx.Confirm != nil {
		approved, cancelled := ctx.Confirm(name, fmt.Sprintf("Approve %s?", name))
		if cancelled || !approved {
			return cancelledResult(), nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = errorResult("TOOL_PANIC", fmt.Sprintf("%v", r))
			err = nil
		}
	}()

	out, execErr := t.Execute(ctx, args)
	if execErr != nil {
		return errorResult("TOOL_EXECUTION_ERROR", execErr.Error()), nil
	}
	return out, nil
}
