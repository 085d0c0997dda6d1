package history

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crucial707/detector/cmd/cli/config"
	"github.com/crucial707/detector/internal/models"
)

// captureOutput helps capture stdout during command execution.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}

func TestLogs_QueryAndTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/log" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("resourceId") != "aaaa1111" || r.URL.Query().Get("limit") != "5" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode([]models.AuditEntry{
			{Created: time.Now(), Severity: models.SeverityWarning, Message: "Resource deleted."},
		})
	}))
	defer srv.Close()

	t.Setenv("DETECTOR_API_URL", srv.URL)
	t.Setenv("DETECTOR_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	if err := config.SaveToken("tok"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	cmd := logsCmd()
	cmd.SetContext(context.Background())
	_ = cmd.Flags().Set("resource", "aaaa1111")
	_ = cmd.Flags().Set("limit", "5")

	var runErr error
	out := captureOutput(t, func() { runErr = cmd.RunE(cmd, nil) })
	if runErr != nil {
		t.Fatalf("logs: %v", runErr)
	}
	if !strings.Contains(out, "Resource deleted.") || !strings.Contains(out, "warning") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestStats_IsPublic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("AccessToken"); err == nil {
			t.Fatalf("stats must not send a token")
		}
		_, _ = w.Write([]byte(`{"app":{"version":"1.0.0"},"stats":{"resourceCount":7,"openIssueCount":2}}`))
	}))
	defer srv.Close()

	t.Setenv("DETECTOR_API_URL", srv.URL)

	cmd := statsCmd()
	cmd.SetContext(context.Background())
	_ = cmd.Flags().Set("json", "true")

	var runErr error
	out := captureOutput(t, func() { runErr = cmd.RunE(cmd, nil) })
	if runErr != nil {
		t.Fatalf("stats: %v", runErr)
	}
	if !strings.Contains(out, `"resourceCount": 7`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQuery(t *testing.T) {
	if got := query("", 0); got != "" {
		t.Errorf("empty query: got %q", got)
	}
	if got := query("a b", 3); got != "?limit=3&resourceId=a+b" {
		t.Errorf("query: got %q", got)
	}
}
