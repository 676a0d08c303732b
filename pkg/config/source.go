package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/joho/godotenv"
)

// DefaultEnvPrefix is prepended to derived environment variable names
const DefaultEnvPrefix = "AUTOMATION_"

// Source is a flat key/value namespace consulted for overrides. Keys are
// dot-separated field paths such as "execution.retry".
type Source interface {
	Lookup(key string) (string, bool)
}

// SourceFunc adapts a function to Source
type SourceFunc func(key string) (string, bool)

// Lookup implements Source
func (f SourceFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// MapSource serves overrides from a map by exact key
type MapSource map[string]string

// Lookup implements Source
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Chain consults each source in order; the first one holding the key wins
type Chain []Source

// Lookup implements Source
func (c Chain) Lookup(key string) (string, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// EnvSource reads overrides from the process environment. The exact key is
// tried first; with a Prefix set, Prefix+EnvName(key) is tried next.
type EnvSource struct {
	Prefix string
}

// Lookup implements Source
func (e EnvSource) Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	if e.Prefix == "" {
		return "", false
	}
	return os.LookupEnv(e.Prefix + EnvName(key))
}

// EnvName converts a key path to an environment variable name:
// "application.baseApi" becomes "APPLICATION_BASE_API"
func EnvName(key string) string {
	var b strings.Builder
	var prev rune
	for i, r := range key {
		switch {
		case r == '.' || r == '-':
			b.WriteByte('_')
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			b.WriteByte('_')
			b.WriteRune(r)
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
		prev = r
	}
	return b.String()
}

// ParseProperties parses "key=value" definitions given on the command line
func ParseProperties(defs []string) (MapSource, error) {
	props := make(MapSource, len(defs))
	for _, def := range defs {
		key, value, ok := strings.Cut(def, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property definition %q, expected key=value", def)
		}
		props[key] = value
	}
	return props, nil
}

// DotenvSource reads the given .env files; files that do not exist are skipped
func DotenvSource(files ...string) (MapSource, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return MapSource{}, nil
	}

	values, err := godotenv.Read(existing...)
	if err != nil {
		return nil, fmt.Errorf("failed to read env files: %w", err)
	}
	return MapSource(values), nil
}
