package toolcatalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// RegisterBitbucketTools adds the bitbucket.* tool domain: repository
// reads plus PR/branch mutations gated by confirmation. No dedicated
// Bitbucket SDK exists in the dependency pack, so this speaks the REST
// API directly over net/http, the same way the runbook package fetches
// GitHub content (see pkg/runbook/github.go) — an ecosystem gap, not a
// stdlib shortcut; see DESIGN.md.
func RegisterBitbucketTools(c *Catalog) {
	c.Register(&Tool{
		Name:        "bitbucket_get_file",
		Domain:      "bitbucket",
		Description: "Read a file's contents from a Bitbucket repository at a ref.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workspace": map[string]any{"type": "string"},
				"repo":      map[string]any{"type": "string"},
				"path":      map[string]any{"type": "string"},
				"ref":       map[string]any{"type": "string"},
			},
			"required": []string{"workspace", "repo", "path"},
		},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:      bitbucketGetFile,
	})

	c.Register(&Tool{
		Name:                 "bitbucket_merge_pr",
		Domain:               "bitbucket",
		Description:          "Merge an open pull request.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workspace": map[string]any{"type": "string"},
				"repo":      map[string]any{"type": "string"},
				"pr_id":     map[string]any{"type": "integer"},
			},
			"required": []string{"workspace", "repo", "pr_id"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              bitbucketMergePR,
	})

	c.Register(&Tool{
		Name:                 "bitbucket_delete_branch",
		Domain:               "bitbucket",
		Description:          "Delete a branch.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workspace": map[string]any{"type": "string"},
				"repo":      map[string]any{"type": "string"},
				"branch":    map[string]any{"type": "string"},
			},
			"required": []string{"workspace", "repo", "branch"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              bitbucketDeleteBranch,
	})
}

const bitbucketAPIBase = "https://api.bitbucket.org/2.0"

func bitbucketRequest(ctx *Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if token := os.Getenv("BITBUCKET_API_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func bitbucketGetFile(ctx *Context, args map[string]any) (string, error) {
	workspace, _ := args["workspace"].(string)
	repo, _ := args["repo"].(string)
	path, _ := args["path"].(string)
	ref, _ := args["ref"].(string)
	if ref == "" {
		ref = "main"
	}
	if workspace == "" || repo == "" || path == "" {
		return "", fmt.Errorf("workspace, repo, and path are required")
	}

	url := fmt.Sprintf("%s/repositories/%s/%s/src/%s/%s", bitbucketAPIBase, workspace, repo, ref, path)
	resp, err := bitbucketRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("bitbucket get file: HTTP %d: %s", resp.StatusCode, string(content))
	}
	return successResult(map[string]any{"path": path, "content": string(content)}), nil
}

func bitbucketMergePR(ctx *Context, args map[string]any) (string, error) {
	workspace, _ := args["workspace"].(string)
	repo, _ := args["repo"].(string)
	prID, _ := args["pr_id"].(float64)
	if workspace == "" || repo == "" || prID == 0 {
		return "", fmt.Errorf("workspace, repo, and pr_id are required")
	}

	url := fmt.Sprintf("%s/repositories/%s/%s/pullrequests/%d/merge", bitbucketAPIBase, workspace, repo, int(prID))
	resp, err := bitbucketRequest(ctx, http.MethodPost, url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("bitbucket merge PR: HTTP %d: %s", resp.StatusCode, string(body))
	}
	var parsed map[string]any
	_ = json.Unmarshal(body, &parsed)
	return successResult(map[string]any{"pr_id": int(prID), "merged": true, "response": parsed}), nil
}

func bitbucketDeleteBranch(ctx *Context, args map[string]any) (string, error) {
	workspace, _ := args["workspace"].(string)
	repo, _ := args["repo"].(string)
	branch, _ := args["branch"].(string)
	if workspace == "" || repo == "" || branch == "" {
		return "", fmt.Errorf("workspace, repo, and branch are required")
	}

	url := fmt.Sprintf("%s/repositories/%s/%s/refs/branches/%s", bitbucketAPIBase, workspace, repo, branch)
	resp, err := bitbucketRequest(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("bitbucket delete branch: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return successResult(map[string]any{"branch": branch, "deleted": true}), nil
}
