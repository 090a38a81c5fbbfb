package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// expirySafetyMargin is subtracted from the provider-reported lifetime when a
// token record is stored, so "now >= expires_at" flips before the provider
// actually rejects the token.
const expirySafetyMargin = 60

// TokenRecord is one tenant's OAuth state as the credential store persists it.
type TokenRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	BaseURL      string `json:"base_url"`
}

// TokenStore is the durable subdomain -> token record mapping the manager
// reads and writes. Get returns (nil, nil) for an unknown subdomain; errors
// are reserved for storage failures. All backs the connection overview on the
// debug surface.
type TokenStore interface {
	Get(subdomain string) (*TokenRecord, error)
	Set(subdomain string, rec *TokenRecord) error
	All() (map[string]*TokenRecord, error)
}

// Config carries the OAuth client credentials issued for the integration.
// BaseURL, when set, pins every account to one API origin instead of the
// per-subdomain amocrm.ru host; tests and dedicated instances use it.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string
}

// TokenManager owns the refresh protocol: callers get an access token that is
// valid for at least the safety margin, and concurrent refreshes for one
// subdomain collapse into a single upstream call.
type TokenManager struct {
	cfg   Config
	store TokenStore
	http  *http.Client
	group singleflight.Group
}

func NewTokenManager(cfg Config, store TokenStore) *TokenManager {
	return &TokenManager{
		cfg:   cfg,
		store: store,
		http:  &http.Client{Timeout: 25 * time.Second},
	}
}

// Store exposes the underlying credential store for read-only surfaces.
func (m *TokenManager) Store() TokenStore {
	return m.store
}

// BaseFor resolves the API origin for a subdomain.
func (m *TokenManager) BaseFor(subdomain string) string {
	if m.cfg.BaseURL != "" {
		return strings.TrimSuffix(m.cfg.BaseURL, "/")
	}
	return BaseURL(subdomain)
}

// BaseURL builds the account origin from whatever users paste in: a bare
// subdomain, a full host or a URL all resolve to https://<subdomain>.amocrm.ru.
func BaseURL(subdomain string) string {
	sd := strings.TrimSpace(subdomain)
	sd = strings.TrimPrefix(sd, "https://")
	sd = strings.TrimPrefix(sd, "http://")
	sd, _, _ = strings.Cut(sd, "/")
	sd, _, _ = strings.Cut(sd, ".")
	return fmt.Sprintf("https://%s.amocrm.ru", sd)
}

// AccessToken returns a valid access token for the subdomain, refreshing the
// stored record first when it has expired.
//
// The whole read-decide-refresh-persist path runs single-flight per
// subdomain: amoCRM invalidates a refresh token on first use, so two expired
// callers racing each other would spend it twice and strand the account in a
// not-connected state until someone re-authorizes.
func (m *TokenManager) AccessToken(ctx context.Context, subdomain string) (string, error) {
	v, err, _ := m.group.Do(subdomain, func() (any, error) {
		rec, err := m.store.Get(subdomain)
		if err != nil {
			return nil, fmt.Errorf("read token record: %w", err)
		}
		if rec == nil {
			return nil, ErrNotConnected
		}

		if time.Now().Unix() >= rec.ExpiresAt {
			rec, err = m.refresh(ctx, subdomain, rec.RefreshToken)
			if err != nil {
				return nil, err
			}
			if err := m.store.Set(subdomain, rec); err != nil {
				return nil, fmt.Errorf("persist refreshed token: %w", err)
			}
		}

		if rec.AccessToken == "" {
			return nil, ErrMissingAccessToken
		}
		return rec.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ExchangeCode performs the initial authorization_code grant for a subdomain
// and persists the resulting record.
func (m *TokenManager) ExchangeCode(ctx context.Context, subdomain, code string) (*TokenRecord, error) {
	if m.cfg.ClientID == "" || m.cfg.ClientSecret == "" || m.cfg.RedirectURI == "" {
		return nil, ErrMissingConfig
	}

	rec, err := m.requestToken(ctx, subdomain, map[string]string{
		"client_id":     m.cfg.ClientID,
		"client_secret": m.cfg.ClientSecret,
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  m.cfg.RedirectURI,
	})
	if err != nil {
		return nil, wrapTokenErr(ErrExchangeFailed, err)
	}

	if err := m.store.Set(subdomain, rec); err != nil {
		return nil, fmt.Errorf("persist exchanged token: %w", err)
	}
	return rec, nil
}

// refresh spends the stored refresh token for a new record. Callers must
// persist the result before releasing the per-subdomain flight.
func (m *TokenManager) refresh(ctx context.Context, subdomain, refreshToken string) (*TokenRecord, error) {
	rec, err := m.requestToken(ctx, subdomain, map[string]string{
		"client_id":     m.cfg.ClientID,
		"client_secret": m.cfg.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"redirect_uri":  m.cfg.RedirectURI,
	})
	if err != nil {
		return nil, wrapTokenErr(ErrRefreshFailed, err)
	}
	return rec, nil
}

// requestToken posts a grant to the provider's token endpoint and builds the
// record with the safety-margin expiry.
func (m *TokenManager) requestToken(ctx context.Context, subdomain string, payload map[string]string) (*TokenRecord, error) {
	base := m.BaseFor(subdomain)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/oauth2/access_token", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Status: resp.StatusCode, Body: snippet(b, 400)}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	return &TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Unix() + max(tok.ExpiresIn-expirySafetyMargin, 0),
		BaseURL:      base,
	}, nil
}

// wrapTokenErr prefixes a token endpoint failure with its sentinel, keeping
// the upstream status and snippet in the message.
func wrapTokenErr(sentinel error, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return fmt.Errorf("%w: %d %s", sentinel, ue.Status, ue.Body)
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
