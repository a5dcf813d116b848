package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"middleware-gateway/internal/server"
)

// adminClient fala com a API /admin de um gateway em execução.
type adminClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAdminClient(baseURL, token string) *adminClient {
	return &adminClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("admin api: http %d", e.Status)
	}
	return fmt.Sprintf("admin api: %s: %s (http %d)", e.Code, e.Message, e.Status)
}

func (c *adminClient) Status(ctx context.Context, subject, method, path string) (server.StatusView, error) {
	q := url.Values{}
	q.Set("subject", subject)
	q.Set("method", method)
	q.Set("path", path)

	var out server.StatusView
	err := c.do(ctx, http.MethodGet, "/admin/status?"+q.Encode(), nil, &out)
	return out, err
}

func (c *adminClient) Reset(ctx context.Context, subject, method, path string) (server.StatusView, error) {
	body := map[string]string{"subject": subject, "method": method, "path": path}

	var out server.StatusView
	err := c.do(ctx, http.MethodPost, "/admin/reset", body, &out)
	return out, err
}

func (c *adminClient) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("admin api request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return &apiError{Status: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode admin response: %w", err)
	}
	return nil
}
