package sdk

import (
	"context"
	"net/http"
	"net/url"
)

// Service returns the backend's service card with its endpoint listing.
func (c *Client) Service(ctx context.Context) (*ServiceInfo, error) {
	var out ServiceInfo
	if err := c.doJSON(ctx, http.MethodGet, "/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the backend is up.
func (c *Client) Health(ctx context.Context) error {
	var out HealthResponse
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil, &out)
}

// LastEvents returns the tail of the backend's event journal.
func (c *Client) LastEvents(ctx context.Context) ([]string, error) {
	var out LastEventsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/debug/last", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Lines, nil
}

// ConnectedAccounts lists which CRM accounts hold credentials.
func (c *Client) ConnectedAccounts(ctx context.Context) ([]ConnectedAccount, error) {
	var out TokensResponse
	if err := c.doJSON(ctx, http.MethodGet, "/debug/tokens", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Connected, nil
}

// Users lists the account's users.
func (c *Client) Users(ctx context.Context, subdomain string) ([]User, error) {
	query := url.Values{}
	query.Set("subdomain", subdomain)

	var out UsersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// LossReasons lists the account's configured loss reasons.
func (c *Client) LossReasons(ctx context.Context, subdomain string) ([]LossReason, error) {
	query := url.Values{}
	query.Set("subdomain", subdomain)

	var out LossReasonsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/loss_reasons", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Reasons, nil
}

// SetLeadLossReason records why a deal was lost.
func (c *Client) SetLeadLossReason(ctx context.Context, subdomain string, leadID, lossReasonID int64) error {
	req := &SetLossReasonRequest{
		Subdomain:    subdomain,
		LeadID:       leadID,
		LossReasonID: lossReasonID,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/lead/set_loss_reason", nil, req, nil)
}
