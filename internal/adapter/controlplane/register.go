package controlplane

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/semmidev/phylax-agent/internal/domain"
)

type registerRequest struct {
	Hostname string `json:"hostname"`
	OSType   string `json:"os_type"`
}

type registerResponse struct {
	AccessToken string `json:"access_token"`
}

// Register enrolls this host and returns the issued access token.
func (c *Client) Register(ctx context.Context, hostname, osType string) (string, error) {
	body, err := json.Marshal(registerRequest{Hostname: hostname, OSType: osType})
	if err != nil {
		return "", fmt.Errorf("encode register request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(registerPath), bytes.NewReader(body), false)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode register response: %v", domain.ErrTransport, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: server returned no access token", domain.ErrTransport)
	}
	return out.AccessToken, nil
}
