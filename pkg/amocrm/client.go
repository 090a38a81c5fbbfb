package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// upstreamBodySnippet caps how much of an error body an UpstreamError keeps.
const upstreamBodySnippet = 500

// Client performs authorized JSON calls against a tenant's amoCRM account.
// Tokens come from the manager on every call, so an expired token is
// refreshed transparently before the request goes out.
type Client struct {
	tokens *TokenManager
	http   *http.Client
}

func NewClient(tokens *TokenManager) *Client {
	return &Client{
		tokens: tokens,
		http:   &http.Client{Timeout: 35 * time.Second},
	}
}

// Tokens exposes the token manager behind this client.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// Do performs one authorized request. A nil out skips decoding; 204 and
// empty bodies decode to nothing. Non-2xx answers come back as *UpstreamError
// and are never retried here.
func (c *Client) Do(ctx context.Context, subdomain, method, path string, query url.Values, body any, out any) error {
	token, err := c.tokens.AccessToken(ctx, subdomain)
	if err != nil {
		return err
	}

	u := c.tokens.BaseFor(subdomain) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &UpstreamError{Status: resp.StatusCode, Body: snippet(b, upstreamBodySnippet)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	// amo answers some listings with an empty body instead of an empty page
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// SetLeadLossReason patches a single lead's loss reason. This is the one
// write the backend performs against the CRM.
func (c *Client) SetLeadLossReason(ctx context.Context, subdomain string, leadID, reasonID int64) error {
	path := fmt.Sprintf("/api/v4/leads/%d", leadID)
	body := map[string]int64{"loss_reason_id": reasonID}
	return c.Do(ctx, subdomain, http.MethodPatch, path, nil, body, nil)
}
