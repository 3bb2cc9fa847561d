package toolcatalog

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// RegisterK8sTools adds the k8s.* tool domain. Kubernetes operations
// shell out to kubectl rather than using a client-go informer stack,
// mirroring how the source treats cloud CLIs as the portable surface
// across clusters the platform doesn't otherwise have credentials for.
func RegisterK8sTools(c *Catalog) {
	c.Register(&Tool{
		Name:        "k8s_get_pods",
		Domain:      "k8s",
		Description: "List pods in a namespace.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"namespace": map[string]any{"type": "string"},
			},
			"required": []string{"namespace"},
		},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:      k8sGetPods,
	})

	c.Register(&Tool{
		Name:        "k8s_describe_pod",
		Domain:      "k8s",
		Description: "Describe a pod.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"namespace": map[string]any{"type": "string"},
				"pod":       map[string]any{"type": "string"},
			},
			"required": []string{"namespace", "pod"},
		},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:      k8sDescribePod,
	})

	c.Register(&Tool{
		Name:        "k8s_logs",
		Domain:      "k8s",
		Description: "Fetch recent logs for a pod.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"namespace": map[string]any{"type": "string"},
				"pod":       map[string]any{"type": "string"},
				"container": map[string]any{"type": "string"},
				"tail":      map[string]any{"type": "integer"},
			},
			"required": []string{"namespace", "pod"},
		},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:      k8sLogs,
	})

	c.Register(&Tool{
		Name:                 "k8s_delete_pod",
		Domain:               "k8s",
		Description:          "Delete a pod (forces a restart under its controller).",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"namespace": map[string]any{"type": "string"},
				"pod":       map[string]any{"type": "string"},
			},
			"required": []string{"namespace", "pod"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              k8sDeletePod,
	})
}

func runKubectl(ctx *Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "kubectl", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("kubectl %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

func k8sGetPods(ctx *Context, args map[string]any) (string, error) {
	ns, _ := args["namespace"].(string)
	if ns == "" {
		return "", fmt.Errorf("namespace is required")
	}
	out, err := runKubectl(ctx, "get", "pods", "-n", ns, "-o", "wide")
	if err != nil {
		return "", err
	}
	return successResult(map[string]any{"command": "kubectl get pods -n " + ns, "output": out}), nil
}

func k8sDescribePod(ctx *Context, args map[string]any) (string, error) {
	ns, _ := args["namespace"].(string)
	pod, _ := args["pod"].(string)
	if ns == "" || pod == "" {
		return "", fmt.Errorf("namespace and pod are required")
	}
	out, err := runKubectl(ctx, "describe", "pod", pod, "-n", ns)
	if err != nil {
		return "", err
	}
	return successResult(map[string]any{"command": fmt.Sprintf("kubectl describe pod %s -n %s", pod, ns), "output": out}), nil
}

func k8sLogs(ctx *Context, args map[string]any) (string, error) {
	ns, _ := args["namespace"].(string)
	pod, _ := args["pod"].(string)
	if ns == "" || pod == "" {
		return "", fmt.Errorf("namespace and pod are required")
	}
	tail := "200"
	if t, ok := args["tail"].(float64); ok && t > 0 {
		tail = fmt.Sprintf("%d", int(t))
	}
	kargs := []string{"logs", pod, "-n", ns, "--tail", tail}
	if container, ok := args["container"].(string); ok && container != "" {
		kargs = append(kargs, "-c", container)
	}
	out, err := runKubectl(ctx, kargs...)
	if err != nil {
		return "", err
	}
	return successResult(map[string]any{"command": "kubectl " + strings.Join(kargs, " "), "output": out}), nil
}

func k8sDeletePod(ctx *Context, args map[string]any) (string, error) {
	ns, _ := args["namespace"].(string)
	pod, _ := args["pod"].(string)
	if ns == "" || pod == "" {
		return "", fmt.Errorf("namespace and pod are required")
	}
	out, err := runKubectl(ctx, "delete", "pod", pod, "-n", ns)
	if err != nil {
		return "", err
	}
	return successResult(map[string]any{"command": fmt.Sprintf("kubectl delete pod %s -n %s", pod, ns), "output": out}), nil
}
