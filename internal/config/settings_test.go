package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "auth": {
    "google": { "clientId": "client-123.apps.googleusercontent.com" },
    "options": { "restrictUserDomains": ["@example.com", "@example.org"] }
  },
  "resources": { "cascade": { "scanHistory": false } }
}`

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))
	return path
}

func TestLoadSettings_Document(t *testing.T) {
	s, err := LoadSettings(writeDoc(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "client-123.apps.googleusercontent.com", s.String("auth", "google", "clientId"))
	assert.Equal(t, []string{"@example.com", "@example.org"}, s.Strings("auth", "options", "restrictUserDomains"))
	assert.False(t, s.Bool(true, "resources", "cascade", "scanHistory"))
	assert.NotEmpty(t, s.Source())
}

func TestLoadSettings_KeysAreCaseInsensitive(t *testing.T) {
	s, err := LoadSettings(writeDoc(t), nil)
	require.NoError(t, err)

	v, ok := s.Get("AUTH", "Google", "CLIENTID")
	assert.True(t, ok)
	assert.Equal(t, "client-123.apps.googleusercontent.com", v)
}

func TestLoadSettings_EnvironmentOverridesDocument(t *testing.T) {
	environ := []string{
		"auth::google::clientId=from-env",
		"RESOURCES__CASCADE__SCANHISTORY=true",
		"PATH=/usr/bin",
	}
	s, err := LoadSettings(writeDoc(t), environ)
	require.NoError(t, err)

	assert.Equal(t, "from-env", s.String("auth", "google", "clientId"))
	assert.True(t, s.Bool(false, "resources", "cascade", "scanHistory"))
	_, ok := s.Get("path")
	assert.False(t, ok, "plain variables must not leak into the snapshot")
}

func TestLoadSettings_MissingDocument(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.json"), []string{"auth::google::clientId=env-only"})
	require.NoError(t, err)

	assert.Empty(t, s.Source())
	assert.Equal(t, "env-only", s.String("auth", "google", "clientId"))
	assert.Nil(t, s.Strings("auth", "options", "restrictUserDomains"))
}

func TestSettings_GetObjectAsJSON(t *testing.T) {
	s := NewSettings(map[string]any{
		"auth": map[string]any{"google": map[string]any{"clientid": "abc"}},
	}, nil)

	v, ok := s.Get("auth", "google")
	require.True(t, ok)
	assert.JSONEq(t, `{"clientid":"abc"}`, v)
}

func TestSettings_StringsFromEnvironment(t *testing.T) {
	s := NewSettings(nil, []string{
		`auth::options::restrictUserDomains=["@a.com","@b.com"]`,
		`list::plain=one, two,,three`,
	})

	assert.Equal(t, []string{"@a.com", "@b.com"}, s.Strings("auth", "options", "restrictUserDomains"))
	assert.Equal(t, []string{"one", "two", "three"}, s.Strings("list", "plain"))
}

func TestSettings_EmptyKeys(t *testing.T) {
	s := NewSettings(nil, nil)
	_, ok := s.Get()
	assert.False(t, ok)
	assert.True(t, s.Bool(true, "missing"))
}
