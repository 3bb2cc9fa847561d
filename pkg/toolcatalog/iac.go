package toolcatalog

import (
	"bytes"
	"fmt"
	"os/exec"
)

// RegisterIaCTools adds the iac.* domain: Terraform plan/apply/destroy
// against a working directory. Plan is read-only; apply and destroy
// mutate infrastructure and require confirmation, per §4.3's explicit
// call-out of "Infrastructure-as-Code plan/apply/destroy".
func RegisterIaCTools(c *Catalog) {
	c.Register(&Tool{
		Name:        "iac_plan",
		Domain:      "iac",
		Description: "Run terraform plan in a working directory.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"working_dir": map[string]any{"type": "string"},
			},
			"required": []string{"working_dir"},
		},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:      iacTool("plan", false),
	})

	c.Register(&Tool{
		Name:                 "iac_apply",
		Domain:               "iac",
		Description:          "Run terraform apply in a working directory.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"working_dir": map[string]any{"type": "string"},
			},
			"required": []string{"working_dir"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              iacTool("apply", true),
	})

	c.Register(&Tool{
		Name:                 "iac_destroy",
		Domain:               "iac",
		Description:          "Run terraform destroy in a working directory.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"working_dir": map[string]any{"type": "string"},
			},
			"required": []string{"working_dir"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              iacTool("destroy", true),
	})
}

// iacTool builds an ExecuteFunc for the named terraform subcommand;
// mutating commands pass -auto-approve since confirmation already
// happened at the Confirmation Broker.
func iacTool(action string, mutating bool) ExecuteFunc {
	return func(ctx *Context, args map[string]any) (string, error) {
		dir, _ := args["working_dir"].(string)
		if dir == "" {
			return "", fmt.Errorf("working_dir is required")
		}
		cmdArgs := []string{action}
		if mutating {
			cmdArgs = append(cmdArgs, "-auto-approve")
		}
		cmd := exec.CommandContext(ctx, "terraform", cmdArgs...)
		cmd.Dir = dir
		var stdout, stderr bytes.Buffer
		cmd.Stdout, cmd.Stderr = &stdout, &stderr
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("terraform %s: %w: %s", action, err, stderr.String())
		}
		return successResult(map[string]any{"command": "terraform " + action, "output": stdout.String()}), nil
	}
}
