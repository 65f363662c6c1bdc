// Package controlplane talks to the backup server's HTTP API: registration,
// object storage and schedule retrieval.
package controlplane

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/semmidev/phylax-agent/internal/domain"
)

const (
	registerPath  = "/api/v1/clients/register"
	uploadPath    = "/api/v1/storage/upload"
	downloadPath  = "/api/v1/storage/download"
	listPath      = "/api/v1/storage/list"
	schedulesPath = "/api/v1/agent/my-schedules"
	channelPath   = "/api/v1/clients/ws"
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	AccessToken() string
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
}

func New(baseURL string, timeout time.Duration, tokens TokenSource) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}, nil
}

func (c *Client) endpoint(route string, segments ...string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + route
	u.RawPath = c.baseURL.EscapedPath() + route
	for _, s := range segments {
		u.Path += "/" + s
		u.RawPath += "/" + url.PathEscape(s)
	}
	return u.String()
}

// WebSocketURL is the command channel address derived from the server URL.
func (c *Client) WebSocketURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = c.baseURL.Path + channelPath
	u.RawPath = ""
	return u.String()
}

// AuthHeader returns the bearer header used for both HTTP and the channel.
func (c *Client) AuthHeader() (http.Header, error) {
	token := ""
	if c.tokens != nil {
		token = c.tokens.AccessToken()
	}
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader, auth bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if auth {
		h, err := c.AuthHeader()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", h.Get("Authorization"))
	}
	return req, nil
}

// do sends req and returns the response when its status is 2xx. The caller
// owns the body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s %s: HTTP %d: %s",
			domain.ErrTransport, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, target string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil, true)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrTransport, req.URL.Path, err)
	}
	return nil
}
