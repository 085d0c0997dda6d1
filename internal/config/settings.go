package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// KeySeparator joins key segments into the combined key used for lookups and
// environment overrides, e.g. "auth::google::clientId".
const KeySeparator = "::"

// envSeparator is accepted in variable names in place of "::" for shells that reject colons.
const envSeparator = "__"

// Settings is an immutable snapshot of the settings document with environment
// overrides applied. Keys are case-insensitive.
type Settings struct {
	values map[string]any
	source string
}

// LoadSettings reads the document at path and applies overrides from environ
// ("KEY=value" pairs, as returned by os.Environ). A missing document yields a
// snapshot holding only the overrides.
func LoadSettings(path string, environ []string) (*Settings, error) {
	if path == "" {
		return NewSettings(nil, environ), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewSettings(nil, environ), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	s := NewSettings(v.AllSettings(), environ)
	s.source = path
	return s, nil
}

// NewSettings builds a snapshot from an already-parsed document.
func NewSettings(doc map[string]any, environ []string) *Settings {
	s := &Settings{values: make(map[string]any)}
	flatten("", doc, s.values)

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch {
		case strings.Contains(name, KeySeparator):
		case strings.Contains(name, envSeparator):
			name = strings.ReplaceAll(name, envSeparator, KeySeparator)
		default:
			continue
		}
		s.values[strings.ToLower(name)] = value
	}
	return s
}

func flatten(prefix string, node map[string]any, out map[string]any) {
	for k, v := range node {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + KeySeparator + key
		}
		out[key] = v
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
		}
	}
}

// Source is the document path the snapshot was loaded from, or "" when none was found.
func (s *Settings) Source() string { return s.source }

// Get resolves the value stored under the given key segments. Objects and
// arrays are returned as JSON.
func (s *Settings) Get(keys ...string) (string, bool) {
	if len(keys) == 0 || s == nil {
		return "", false
	}
	v, ok := s.values[strings.ToLower(strings.Join(keys, KeySeparator))]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return fmt.Sprint(t), true
	}
}

// String is Get without the presence flag.
func (s *Settings) String(keys ...string) string {
	v, _ := s.Get(keys...)
	return v
}

// Strings resolves a list value. Document arrays are used as-is; string values
// (usually from the environment) are parsed as a JSON array, falling back to a
// comma-separated list.
func (s *Settings) Strings(keys ...string) []string {
	if len(keys) == 0 || s == nil {
		return nil
	}
	v, ok := s.values[strings.ToLower(strings.Join(keys, KeySeparator))]
	if !ok || v == nil {
		return nil
	}

	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case string:
		var out []string
		if err := json.Unmarshal([]byte(t), &out); err == nil {
			return out
		}
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return nil
	}
}

// Bool resolves a boolean value, returning def when the key is absent or unparsable.
func (s *Settings) Bool(def bool, keys ...string) bool {
	v, ok := s.Get(keys...)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
