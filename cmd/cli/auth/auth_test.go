package auth

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

	"github.com/crucial707/detector/cmd/cli/client"
	"github.com/crucial707/detector/cmd/cli/config"
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

func TestLogin_WithCredential_StoresCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["credentials"] != "id-token" {
			t.Fatalf("credentials: got %q", in["credentials"])
		}
		http.SetCookie(w, &http.Cookie{Name: client.AccessTokenCookie, Value: "issued-token", Path: "/"})
		_ = json.NewEncoder(w).Encode(user{Email: "ops@example.com"})
	}))
	defer srv.Close()

	t.Setenv("DETECTOR_API_URL", srv.URL)
	t.Setenv("DETECTOR_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))

	cmd := loginCmd()
	cmd.SetContext(context.Background())
	_ = cmd.Flags().Set("credential", "id-token")

	var runErr error
	out := captureOutput(t, func() {
		runErr = cmd.RunE(cmd, []string{})
	})
	if runErr != nil {
		t.Fatalf("login: %v", runErr)
	}
	if !strings.Contains(out, "ops@example.com") {
		t.Errorf("unexpected output: %s", out)
	}
	token, err := config.ReadToken()
	if err != nil || token != "issued-token" {
		t.Errorf("stored token: got %q, %v", token, err)
	}
}

func TestLogin_RequiresFlag(t *testing.T) {
	cmd := loginCmd()
	if err := cmd.RunE(cmd, []string{}); err == nil {
		t.Fatal("expected an error without --credential or --token")
	}
}

func TestLogout_RemovesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	t.Setenv("DETECTOR_API_URL", srv.URL)
	t.Setenv("DETECTOR_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	if err := config.SaveToken("abc"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	cmd := logoutCmd()
	cmd.SetContext(context.Background())
	captureOutput(t, func() {
		if err := cmd.RunE(cmd, []string{}); err != nil {
			t.Errorf("logout: %v", err)
		}
	})

	if _, err := config.ReadToken(); err != config.ErrNotLoggedIn {
		t.Errorf("token still present: %v", err)
	}
}
