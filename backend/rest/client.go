package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"rideapp/backend"
	"rideapp/backend/realtime"
	"rideapp/config"
	"rideapp/pkg/logger"
	"rideapp/pkg/models"
)

// Client talks to the backend-as-a-service over its public HTTP surface:
// auth endpoints under /auth/v1 and the row API under /rest/v1.
type Client struct {
	baseURL string
	anonKey string
	httpc   *http.Client
	log     logger.ILogger

	auth *authClient
	rt   *realtime.Client

	mu      sync.RWMutex
	session *models.Session
}

func New(cfg config.Config, log logger.ILogger) (backend.IBackend, error) {
	base := strings.TrimRight(cfg.BackendURL, "/")
	if base == "" {
		return nil, fmt.Errorf("rest: backend URL is required")
	}

	c := &Client{
		baseURL: base,
		anonKey: cfg.BackendAnonKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
	c.auth = newAuthClient(c, cfg.RefreshToken)
	c.rt = realtime.New(realtime.Config{
		URL:       wsURL(base) + "/realtime/v1/websocket",
		APIKey:    cfg.BackendAnonKey,
		Heartbeat: cfg.RealtimeHeartbeat,
		Token:     c.accessToken,
	}, log)

	return c, nil
}

func (c *Client) Auth() backend.IAuth         { return c.auth }
func (c *Client) Rows() backend.IRows         { return rowsAPI{c: c} }
func (c *Client) Realtime() backend.IRealtime { return c.rt }

func (c *Client) Close() {
	c.rt.Close()
}

func (c *Client) setSession(s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) currentSession() *models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) accessToken() string {
	if s := c.currentSession(); s != nil {
		return s.AccessToken
	}
	return ""
}

// do issues a JSON request with the backend auth headers applied. The
// bearer token is the session access token when present, the anon key
// otherwise. Response body decoding is left to the caller.
func (c *Client) do(ctx context.Context, method, path string, body any, extra http.Header) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("rest: encode body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("rest: build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	token := c.accessToken()
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rest: %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &backend.APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
