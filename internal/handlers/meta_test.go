package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type countFunc func(context.Context) (int, error)

func (f countFunc) CountLive(ctx context.Context) (int, error) { return f(ctx) }
func (f countFunc) CountOpen(ctx context.Context) (int, error) { return f(ctx) }

func TestMetaHandler_Settings(t *testing.T) {
	h := &MetaHandler{GoogleClientID: "client-123"}

	rr := httptest.NewRecorder()
	h.Settings(rr, httptest.NewRequest("GET", "/api/settings", nil))

	var out struct {
		Auth struct {
			Google struct {
				ClientID string `json:"clientId"`
			} `json:"google"`
		} `json:"auth"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Auth.Google.ClientID != "client-123" {
		t.Errorf("clientId: got %q", out.Auth.Google.ClientID)
	}
}

func TestMetaHandler_Stats(t *testing.T) {
	h := &MetaHandler{
		Version:   "1.2.3",
		Resources: countFunc(func(context.Context) (int, error) { return 4, nil }),
		Issues:    countFunc(func(context.Context) (int, error) { return 0, errors.New("db down") }),
	}

	rr := httptest.NewRecorder()
	h.Stats(rr, httptest.NewRequest("GET", "/api/stats", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Stats status: got %d, want 200", rr.Code)
	}
	var out struct {
		App struct {
			Version string `json:"version"`
		} `json:"app"`
		Stats struct {
			ResourceCount  int `json:"resourceCount"`
			OpenIssueCount int `json:"openIssueCount"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.App.Version != "1.2.3" || out.Stats.ResourceCount != 4 || out.Stats.OpenIssueCount != 0 {
		t.Errorf("unexpected stats: %+v", out)
	}
}
