package toolcatalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// RegisterPipelineTools adds the pipeline.* domain: CI/CD status reads
// and stop/trigger mutations against a Jenkins-compatible REST API,
// the same ingestion source spec.md names for deploy events.
func RegisterPipelineTools(c *Catalog) {
	c.Register(&Tool{
		Name:        "pipeline_status",
		Domain:      "pipeline",
		Description: "Fetch the status of a pipeline job.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job": map[string]any{"type": "string"},
			},
			"required": []string{"job"},
		},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:      pipelineStatus,
	})

	c.Register(&Tool{
		Name:                 "pipeline_trigger",
		Domain:               "pipeline",
		Description:          "Trigger a pipeline job build.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job": map[string]any{"type": "string"},
			},
			"required": []string{"job"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              pipelineTrigger,
	})

	c.Register(&Tool{
		Name:                 "pipeline_stop",
		Domain:               "pipeline",
		Description:          "Stop a running pipeline job build.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job":    map[string]any{"type": "string"},
				"build":  map[string]any{"type": "integer"},
			},
			"required": []string{"job", "build"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              pipelineStop,
	})
}

func pipelineBaseURL() string {
	if v := os.Getenv("PIPELINE_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8090"
}

func pipelineDo(ctx *Context, method, path string, body io.Reader) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, method, pipelineBaseURL()+path, body)
	if err != nil {
		return nil, err
	}
	if token := os.Getenv("PIPELINE_API_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("pipeline API: HTTP %d: %s", resp.StatusCode, string(data))
	}
	var parsed map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &parsed)
	}
	return parsed, nil
}

func pipelineStatus(ctx *Context, args map[string]any) (string, error) {
	job, _ := args["job"].(string)
	if job == "" {
		return "", fmt.Errorf("job is required")
	}
	resp, err := pipelineDo(ctx, http.MethodGet, "/job/"+job+"/api/json", nil)
	if err != nil {
		return "", err
	}
	return successResult(map[string]any{"job": job, "status": resp}), nil
}

func pipelineTrigger(ctx *Context, args map[string]any) (string, error) {
	job, _ := args["job"].(string)
	if job == "" {
		return "", fmt.Errorf("job is required")
	}
	if _, err := pipelineDo(ctx, http.MethodPost, "/job/"+job+"/build", bytes.NewReader(nil)); err != nil {
		return "", err
	}
	return successResult(map[string]any{"job": job, "triggered": true}), nil
}

func pipelineStop(ctx *Context, args map[string]any) (string, error) {
	job, _ := args["job"].(string)
	build, _ := args["build"].(float64)
	if job == "" || build == 0 {
		return "", fmt.Errorf("job and build are required")
	}
	path := fmt.Sprintf("/job/%s/%d/stop", job, int(build))
	if _, err := pipelineDo(ctx, http.MethodPost, path, bytes.NewReader(nil)); err != nil {
		return "", err
	}
	return successResult(map[string]any{"job": job, "build": int(build), "stopped": true}), nil
}
