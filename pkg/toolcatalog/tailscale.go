package toolcatalog

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// RegisterTailscaleTools adds the tailscale.* domain: device listing
// and device removal (a mutating, confirmation-gated operation) via
// the Tailscale API.
func RegisterTailscaleTools(c *Catalog) {
	c.Register(&Tool{
		Name:        "tailscale_list_devices",
		Domain:      "tailscale",
		Description: "List devices in the tailnet.",
		Schema:      map[string]any{"type": "object", "properties": map[string]any{}},
		AllowedModes: []Mode{ModeAsk, ModeAgent},
		Execute:     tailscaleListDevices,
	})

	c.Register(&Tool{
		Name:                 "tailscale_remove_device",
		Domain:               "tailscale",
		Description:          "Remove a device from the tailnet.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"device_id": map[string]any{"type": "string"},
			},
			"required": []string{"device_id"},
		},
		RequiresConfirmation: true,
		AllowedModes:         []Mode{ModeAgent},
		Execute:              tailscaleRemoveDevice,
	})
}

const tailscaleAPIBase = "https://api.tailscale.com/api/v2"

func tailscaleRequest(ctx *Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, tailscaleAPIBase+path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(os.Getenv("TAILSCALE_API_KEY"), "")
	return http.DefaultClient.Do(req)
}

func tailscaleListDevices(ctx *Context, args map[string]any) (string, error) {
	tailnet := os.Getenv("TAILSCALE_TAILNET")
	if tailnet == "" {
		tailnet = "-"
	}
	resp, err := tailscaleRequest(ctx, http.MethodGet, "/tailnet/"+tailnet+"/devices")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("tailscale list devices: HTTP %d: %s", resp.StatusCode, string(data))
	}
	var parsed map[string]any
	_ = json.Unmarshal(data, &parsed)
	return successResult(map[string]any{"devices": parsed}), nil
}

func tailscaleRemoveDevice(ctx *Context, args map[string]any) (string, error) {
	deviceID, _ := args["device_id"].(string)
	if deviceID == "" {
		return "", fmt.Errorf("device_id is required")
	}
	resp, err := tailscaleRequest(ctx, http.MethodDelete, "/device/"+deviceID)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("tailscale remove device: HTTP %d: %s", resp.StatusCode, string(data))
	}
	return successResult(map[string]any{"device_id": deviceID, "removed": true}), nil
}
