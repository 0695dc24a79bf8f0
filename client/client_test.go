package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tucanapay/tucana/service/payload"
)

func TestClient_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/resolve", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "solana:abc", body["payload"])

		json.NewEncoder(w).Encode(payload.Request{
			Format:       payload.FormatSolanaPayDirect,
			RecipientKey: "abc",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	req, err := c.Resolve(context.Background(), "solana:abc")
	require.NoError(t, err)
	assert.Equal(t, payload.FormatSolanaPayDirect, req.Format)
	assert.Equal(t, "abc", req.RecipientKey)
}

func TestClient_Preselect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/preselect", r.URL.Path)
		json.NewEncoder(w).Encode(PreselectResult{
			TokenID:  "usdc",
			Chain:    "solana",
			Fallback: "preferred_token",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	result, err := c.Preselect(context.Background(), PreselectRequest{
		Balances: map[string]map[string]string{"usdc": {"solana": "100"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "usdc", result.TokenID)
	assert.Equal(t, "solana", result.Chain)
}

func TestClient_RecordPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["user_id"])
		assert.Equal(t, "usdc", body["token_id"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	assert.NoError(t, c.RecordPayment(context.Background(), "alice", "usdc", "solana", "bob"))
}

func TestClient_Preferences_EscapesUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/preferences/user%2Fwith%2Fslashes", r.URL.EscapedPath())
		json.NewEncoder(w).Encode(map[string]string{"default_token_id": "usdc"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	prefs, err := c.Preferences(context.Background(), "user/with/slashes")
	require.NoError(t, err)
	assert.Equal(t, "usdc", prefs.DefaultTokenID)
}

func TestClient_ServerErrorBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": "cannot parse unknown payload",
			"kind":  "format",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Resolve(context.Background(), "gibberish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format error")
	assert.Contains(t, err.Error(), "cannot parse")
}

func TestClient_NonJSONErrorFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Resolve(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
