package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPProvider_Dispatch(t *testing.T) {
	var got DispatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/calls" || r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(DispatchResult{CallID: "call_9"})
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL + "/", APIKey: "k", RatePerSecond: 100})
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}
	res, err := p.Dispatch(context.Background(), DispatchRequest{
		AgentID:     "agent_1",
		Destination: "+16502530000",
		Origin:      "+14155550100",
		Metadata:    Metadata{LeadID: "l1", AccountID: "a1"},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.CallID != "call_9" {
		t.Fatalf("unexpected call id %q", res.CallID)
	}
	if got.Metadata.LeadID != "l1" || got.Metadata.AccountID != "a1" || got.AgentID != "agent_1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestHTTPProvider_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, _ := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL})
	_, err := p.Dispatch(context.Background(), DispatchRequest{})
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
}
