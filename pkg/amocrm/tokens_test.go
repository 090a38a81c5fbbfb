package amocrm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenStore is an in-memory TokenStore for tests. It counts writes so
// tests can assert how often records were persisted.
type fakeTokenStore struct {
	mutex    sync.Mutex
	records  map[string]*TokenRecord
	setCalls int
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{records: map[string]*TokenRecord{}}
}

func (s *fakeTokenStore) Get(subdomain string) (*TokenRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.records[subdomain]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeTokenStore) Set(subdomain string, rec *TokenRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.setCalls++
	cp := *rec
	s.records[subdomain] = &cp
	return nil
}

func (s *fakeTokenStore) All() (map[string]*TokenRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make(map[string]*TokenRecord, len(s.records))
	for sd, rec := range s.records {
		cp := *rec
		out[sd] = &cp
	}
	return out, nil
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare subdomain",
			input: "acme",
			want:  "https://acme.amocrm.ru",
		},
		{
			name:  "full host",
			input: "acme.amocrm.ru",
			want:  "https://acme.amocrm.ru",
		},
		{
			name:  "full url with path",
			input: "https://acme.amocrm.ru/leads/detail/5",
			want:  "https://acme.amocrm.ru",
		},
		{
			name:  "http scheme",
			input: "http://acme.amocrm.ru",
			want:  "https://acme.amocrm.ru",
		},
		{
			name:  "surrounding whitespace",
			input: "  acme  ",
			want:  "https://acme.amocrm.ru",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseURL(tt.input))
		})
	}
}

func TestBaseFor(t *testing.T) {
	store := newFakeTokenStore()

	// Without a pinned base the subdomain resolves to the provider host
	m := NewTokenManager(Config{}, store)
	assert.Equal(t, "https://acme.amocrm.ru", m.BaseFor("acme"))

	// A pinned base overrides the subdomain and loses its trailing slash
	m = NewTokenManager(Config{BaseURL: "http://127.0.0.1:9999/"}, store)
	assert.Equal(t, "http://127.0.0.1:9999", m.BaseFor("acme"))
}

func TestAccessToken_ValidRecord(t *testing.T) {
	store := newFakeTokenStore()
	store.records["acme"] = &TokenRecord{
		AccessToken:  "fresh-token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Unix() + 3600,
	}

	m := NewTokenManager(Config{}, store)

	token, err := m.AccessToken(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	// A second read hands out the same token without touching the store
	token, err = m.AccessToken(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, 0, store.setCalls, "a valid record should not be rewritten")
}

func TestAccessToken_NotConnected(t *testing.T) {
	m := NewTokenManager(Config{}, newFakeTokenStore())

	_, err := m.AccessToken(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestAccessToken_RefreshesExpired(t *testing.T) {
	var grant struct {
		GrantType    string `json:"grant_type"`
		RefreshToken string `json:"refresh_token"`
		ClientID     string `json:"client_id"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/access_token", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&grant))

		json.NewEncoder(w).Encode(map[string]any{
			"token_type":    "Bearer",
			"expires_in":    86400,
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
		})
	}))
	defer server.Close()

	store := newFakeTokenStore()
	store.records["acme"] = &TokenRecord{
		AccessToken:  "stale-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Unix() - 10,
	}

	cfg := Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://cb", BaseURL: server.URL}
	m := NewTokenManager(cfg, store)

	token, err := m.AccessToken(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "new-access", token)

	assert.Equal(t, "refresh_token", grant.GrantType)
	assert.Equal(t, "old-refresh", grant.RefreshToken)
	assert.Equal(t, "id", grant.ClientID)

	// The refreshed record is persisted with the safety-margin expiry
	rec := store.records["acme"]
	require.NotNil(t, rec)
	assert.Equal(t, "new-access", rec.AccessToken)
	assert.Equal(t, "new-refresh", rec.RefreshToken)
	assert.InDelta(t, time.Now().Unix()+86400-60, rec.ExpiresAt, 5)
	assert.Equal(t, server.URL, rec.BaseURL)
}

func TestAccessToken_SingleRefreshUnderConcurrency(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{
			"expires_in":    3600,
			"access_token":  "shared-access",
			"refresh_token": "next-refresh",
		})
	}))
	defer server.Close()

	store := newFakeTokenStore()
	store.records["acme"] = &TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "single-use",
		ExpiresAt:    time.Now().Unix() - 10,
	}

	cfg := Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://cb", BaseURL: server.URL}
	m := NewTokenManager(cfg, store)

	// Every caller must come back with the one refreshed token; the single-use
	// refresh token may only be spent once no matter how the callers interleave
	var wg sync.WaitGroup
	tokens := make([]string, 8)
	errs := make([]error, 8)
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = m.AccessToken(context.Background(), "acme")
		}()
	}
	wg.Wait()

	for i := range tokens {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared-access", tokens[i])
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestAccessToken_RefreshRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"hint":"Token has been revoked"}`))
	}))
	defer server.Close()

	store := newFakeTokenStore()
	store.records["acme"] = &TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		ExpiresAt:    time.Now().Unix() - 10,
	}

	cfg := Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://cb", BaseURL: server.URL}
	m := NewTokenManager(cfg, store)

	_, err := m.AccessToken(context.Background(), "acme")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "revoked")
}

func TestAccessToken_MissingAccessTokenField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	}))
	defer server.Close()

	store := newFakeTokenStore()
	store.records["acme"] = &TokenRecord{
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Unix() - 10,
	}

	cfg := Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://cb", BaseURL: server.URL}
	m := NewTokenManager(cfg, store)

	_, err := m.AccessToken(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrMissingAccessToken)
}

func TestExchangeCode(t *testing.T) {
	var grant map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&grant))
		json.NewEncoder(w).Encode(map[string]any{
			"expires_in":    86400,
			"access_token":  "first-access",
			"refresh_token": "first-refresh",
		})
	}))
	defer server.Close()

	store := newFakeTokenStore()
	cfg := Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://cb", BaseURL: server.URL}
	m := NewTokenManager(cfg, store)

	rec, err := m.ExchangeCode(context.Background(), "acme", "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", grant["grant_type"])
	assert.Equal(t, "auth-code", grant["code"])
	assert.Equal(t, "https://cb", grant["redirect_uri"])

	assert.Equal(t, "first-access", rec.AccessToken)
	require.NotNil(t, store.records["acme"])
	assert.Equal(t, "first-refresh", store.records["acme"].RefreshToken)
}

func TestExchangeCode_MissingConfig(t *testing.T) {
	m := NewTokenManager(Config{}, newFakeTokenStore())

	_, err := m.ExchangeCode(context.Background(), "acme", "code")
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestExchangeCode_ProviderRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"hint":"Authorization code has expired"}`))
	}))
	defer server.Close()

	store := newFakeTokenStore()
	cfg := Config{ClientID: "id", ClientSecret: "secret", RedirectURI: "https://cb", BaseURL: server.URL}
	m := NewTokenManager(cfg, store)

	_, err := m.ExchangeCode(context.Background(), "acme", "expired-code")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExchangeFailed)
	assert.Contains(t, err.Error(), "400")

	// Nothing gets persisted on a failed exchange
	var ue *UpstreamError
	assert.False(t, errors.As(err, &ue), "sentinel wrapping should replace the raw upstream error")
	assert.Empty(t, store.records)
}
