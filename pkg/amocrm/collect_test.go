package amocrm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConnectedClient builds a client whose token manager already holds a
// valid record for "acme" and whose requests go to the given test server.
func newConnectedClient(baseURL string) *Client {
	store := newFakeTokenStore()
	store.records["acme"] = &TokenRecord{
		AccessToken:  "test-token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Unix() + 3600,
	}
	return NewClient(NewTokenManager(Config{BaseURL: baseURL}, store))
}

func TestCollectPages_WalksUntilNoNextLink(t *testing.T) {
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		require.Equal(t, "/api/v4/leads", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "50", r.URL.Query().Get("limit"))

		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"_links":{"next":{"href":"p2"}},"_embedded":{"leads":[{"id":1,"price":100},{"id":2,"price":200}]}}`)
		case "2":
			fmt.Fprint(w, `{"_embedded":{"leads":[{"id":3,"price":300}]}}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	client := newConnectedClient(server.URL)

	leads, err := client.Leads(context.Background(), "acme", nil, PageOptions{Limit: 50, MaxPages: 10})
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	require.Len(t, leads, 3)
	assert.Equal(t, int64(1), leads[0].ID)
	assert.Equal(t, int64(300), leads[2].Price)
}

func TestCollectPages_StopsAtMaxPages(t *testing.T) {
	requests := 0

	// Upstream claims the listing never ends
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"_links":{"next":{"href":"more"}},"_embedded":{"leads":[{"id":1},{"id":2}]}}`)
	}))
	defer server.Close()

	client := newConnectedClient(server.URL)

	raw, err := client.CollectPages(context.Background(), "acme", "/api/v4/leads", nil, PageOptions{MaxPages: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, requests)
	assert.Len(t, raw, 6)
}

func TestCollectPages_LimitBounds(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit string
	}{
		{name: "zero falls back to default", limit: 0, wantLimit: "100"},
		{name: "oversized clamps to provider max", limit: 1000, wantLimit: "250"},
		{name: "in range passes through", limit: 42, wantLimit: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotLimit = r.URL.Query().Get("limit")
				fmt.Fprint(w, `{"_embedded":{"leads":[]}}`)
			}))
			defer server.Close()

			client := newConnectedClient(server.URL)

			_, err := client.CollectPages(context.Background(), "acme", "/api/v4/leads", nil, PageOptions{Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, gotLimit)
		})
	}
}

func TestCollectPages_PreservesCallerQuery(t *testing.T) {
	var got url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		fmt.Fprint(w, `{"_embedded":{"leads":[]}}`)
	}))
	defer server.Close()

	client := newConnectedClient(server.URL)

	q := url.Values{}
	q.Set("filter[updated_at][to]", "12345")
	q.Add("filter[entity_id][]", "1")
	q.Add("filter[entity_id][]", "2")

	_, err := client.CollectPages(context.Background(), "acme", "/api/v4/leads", q, PageOptions{})
	require.NoError(t, err)

	assert.Equal(t, "12345", got.Get("filter[updated_at][to]"))
	assert.Equal(t, []string{"1", "2"}, got["filter[entity_id][]"])
	assert.Equal(t, "1", got.Get("page"))

	// The caller's values are untouched by the walk's own paging params
	assert.Empty(t, q.Get("page"))
	assert.Empty(t, q.Get("limit"))
}

func TestCollectPages_EmptyBody(t *testing.T) {
	// Some listings answer 200 with no body instead of an empty page
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newConnectedClient(server.URL)

	raw, err := client.CollectPages(context.Background(), "acme", "/api/v4/leads", nil, PageOptions{})
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestCollectPages_ResourceKeyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"_embedded":{"unexpected_key":[{"id":9}]}}`)
	}))
	defer server.Close()

	client := newConnectedClient(server.URL)

	leads, err := client.Leads(context.Background(), "acme", nil, PageOptions{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, int64(9), leads[0].ID)
}

func TestCollectPages_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}))
	defer server.Close()

	client := newConnectedClient(server.URL)

	_, err := client.CollectPages(context.Background(), "acme", "/api/v4/leads", nil, PageOptions{})
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadGateway, ue.Status)
	assert.Contains(t, ue.Body, "upstream exploded")
}

func TestLeadNotes_UsesLeadPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v4/leads/77/notes", r.URL.Path)
		fmt.Fprint(w, `{"_embedded":{"notes":[{"id":1,"note_type":"common","created_at":100,"updated_at":150}]}}`)
	}))
	defer server.Close()

	client := newConnectedClient(server.URL)

	notes, err := client.LeadNotes(context.Background(), "acme", 77, nil, PageOptions{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, int64(150), notes[0].UpdatedAt)
}

func TestSetLeadLossReason(t *testing.T) {
	var gotMethod, gotPath, gotBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		fmt.Fprint(w, `{"id":55}`)
	}))
	defer server.Close()

	client := newConnectedClient(server.URL)

	err := client.SetLeadLossReason(context.Background(), "acme", 55, 501)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/v4/leads/55", gotPath)
	assert.JSONEq(t, `{"loss_reason_id":501}`, gotBody)
}
