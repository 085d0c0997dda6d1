package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type ResourceCounter interface {
	CountLive(ctx context.Context) (int, error)
}

type IssueCounter interface {
	CountOpen(ctx context.Context) (int, error)
}

// MetaHandler serves the public, unauthenticated application metadata.
type MetaHandler struct {
	Version        string
	GoogleClientID string
	Resources      ResourceCounter
	Issues         IssueCounter
	Logger         *zap.Logger
}

type settingsResponse struct {
	Auth struct {
		Google struct {
			ClientID string `json:"clientId"`
		} `json:"google"`
	} `json:"auth"`
}

type statsResponse struct {
	App struct {
		Version string `json:"version"`
	} `json:"app"`
	Stats struct {
		ResourceCount  int `json:"resourceCount"`
		OpenIssueCount int `json:"openIssueCount"`
	} `json:"stats"`
}

// Settings exposes what a browser needs before login.
func (h *MetaHandler) Settings(w http.ResponseWriter, r *http.Request) {
	var out settingsResponse
	out.Auth.Google.ClientID = h.GoogleClientID
	writeJSON(w, http.StatusOK, out)
}

// Stats reports counts; a failing count is logged and reported as 0.
func (h *MetaHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var out statsResponse
	out.App.Version = h.Version

	if n, err := h.Resources.CountLive(r.Context()); err != nil {
		h.warn("count resources", err)
	} else {
		out.Stats.ResourceCount = n
	}
	if n, err := h.Issues.CountOpen(r.Context()); err != nil {
		h.warn("count open issues", err)
	} else {
		out.Stats.OpenIssueCount = n
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MetaHandler) warn(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.Error(err))
	}
}
