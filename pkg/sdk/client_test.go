package sdk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DecodesErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error":"missing_subdomain","details":"provide ?subdomain="}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Users(context.Background(), "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "missing_subdomain", apiErr.Kind)
	assert.Equal(t, "provide ?subdomain=", apiErr.Details)
	assert.Contains(t, apiErr.Error(), "400 missing_subdomain")
}

func TestClient_RawErrorBody(t *testing.T) {
	// A proxy in front of the backend answers without the JSON envelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.Health(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unknown", apiErr.Kind)
	assert.Equal(t, "bad gateway", apiErr.Details)
}

func TestClient_Users(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users", r.URL.Path)
		require.Equal(t, "acme", r.URL.Query().Get("subdomain"))
		w.Write([]byte(`{"ok":true,"users":[{"id":10,"name":"Alice"},{"id":20,"name":"Bob"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")

	users, err := client.Users(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(10), users[0].ID)
	assert.Equal(t, "Bob", users[1].Name)
}

func TestClient_SetLeadLossReason(t *testing.T) {
	var gotBody SetLossReasonRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/lead/set_loss_reason", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		w.Write([]byte(`{"ok":true,"lead_id":55,"loss_reason_id":501}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	err := client.SetLeadLossReason(context.Background(), "acme", 55, 501)
	require.NoError(t, err)
	assert.Equal(t, SetLossReasonRequest{Subdomain: "acme", LeadID: 55, LossReasonID: 501}, gotBody)
}

func TestClient_Dashboard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/report/dashboard", r.URL.Path)

		q := r.URL.Query()
		require.Equal(t, "acme", q.Get("subdomain"))
		require.Equal(t, "2024-05-01", q.Get("date_from"))
		require.Equal(t, "14", q.Get("stale_days"))
		require.Equal(t, "10", q.Get("manager_id"))
		require.False(t, q.Has("date_to"), "unset fields stay out of the query")
		require.False(t, q.Has("pipeline_id"))

		w.Write([]byte(`{
			"ok": true, "subdomain": "acme", "date_from": "2024-05-01", "date_to": "",
			"stale_days": 14, "manager_id": "10",
			"totals": {"won_count":1,"won_sum":1000,"lost_count":2,"lost_sum":2100,
				"stale_count":1,"stale_sum":500,"total_risk_sum":2600,"risk_open_stale_sum":500},
			"managers": [], "warnings": ["activity check capped at 1 of 2 candidate deals"],
			"note": "stale uses: no open tasks AND no activity signals"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.Dashboard(context.Background(), DashboardQuery{
		Subdomain: "acme",
		DateFrom:  "2024-05-01",
		StaleDays: 14,
		ManagerID: 10,
	})
	require.NoError(t, err)

	assert.True(t, resp.OK)
	assert.Equal(t, 14, resp.StaleDays)
	require.NotNil(t, resp.ManagerID)
	assert.Equal(t, "10", *resp.ManagerID)
	assert.Equal(t, int64(2600), resp.Totals.TotalRiskSum)
	require.Len(t, resp.Warnings, 1)
}

func TestClient_ConnectedAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/debug/tokens", r.URL.Path)
		w.Write([]byte(`{"ok":true,"connected":[{"subdomain":"acme","has_access_token":true,"expires_at":1700000000}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	accounts, err := client.ConnectedAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acme", accounts[0].Subdomain)
	assert.True(t, accounts[0].HasAccessToken)
}
