package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/clusterdns/zoned/internal/zonestore"
)

// applyRequest is the JSON body POSTed to a peer's internal apply route.
type applyRequest struct {
	Action string         `json:"action"`
	Domain string         `json:"domain"`
	Zone   *zonestore.Zone `json:"zone,omitempty"`
}

type applyResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type fetchRequest struct {
	Domain string `json:"domain"`
}

type fetchResponse struct {
	OK   bool            `json:"ok"`
	Zone *zonestore.Zone `json:"zone,omitempty"`
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("replication: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("replication: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("replication: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("replication: peer returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("replication: decode response: %w", err)
		}
	}
	return nil
}
