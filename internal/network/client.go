// Package network talks to the traffic simulation server.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-city/internal/logger"
)

// Server endpoints.
const (
	PathInit      = "init"
	PathGetAgents = "getAgents"
	PathUpdate    = "update"
	PathStream    = "stream"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// Client handles communication with the simulation server.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

// New creates a client for the server at baseURL. A zero timeout leaves
// requests unbounded.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: timeout},
		log:  logger.Named("network"),
	}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Init starts a simulation with n agents on a width x height grid.
func (c *Client) Init(ctx context.Context, n, width, height int) (*InitResponse, error) {
	var resp InitResponse
	body := InitRequest{NAgents: n, Width: width, Height: height}
	if err := c.do(ctx, http.MethodPost, PathInit, body, &resp); err != nil {
		return nil, err
	}
	c.log.Info("simulation initialized",
		zap.Int("agents", n),
		zap.String("message", resp.Message))
	return &resp, nil
}

// Snapshot fetches the current agent positions.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := c.do(ctx, http.MethodGet, PathGetAgents, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Advance runs one simulation step.
func (c *Client) Advance(ctx context.Context) (*UpdateResponse, error) {
	var resp UpdateResponse
	if err := c.do(ctx, http.MethodGet, PathUpdate, nil, &resp); err != nil {
		return nil, err
	}
	c.log.Debug("simulation advanced",
		zap.Int("step", resp.CurrentStep),
		zap.Int("arrived", resp.AgentsArrived),
		zap.Int("active", resp.ActualAgents))
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Error bodies carry {"message": ...} when the server is healthy enough
		var msg InitResponse
		_ = json.Unmarshal(data, &msg)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: msg.Message}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}
