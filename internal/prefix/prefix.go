// Package prefix defines the API URL prefix token: its character class, the default
// value and the one normalization routine every write path goes through.
package prefix

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Prefix is a single URL path segment matching [a-z0-9_-]*. Empty means unset.
type Prefix string

const (
	// Default is the prefix used whenever no override is stored.
	Default Prefix = "wp-json"

	// SettingName is the Settings Store key holding the override.
	SettingName = "api_url_prefix_override"

	// CacheKey is the Cache Store key holding the resolved prefix.
	CacheKey = "api_url_prefix_cached"
)

func (p Prefix) String() string { return string(p) }

// IsDefault reports whether p is empty or equal to Default.
func (p Prefix) IsDefault() bool { return p == "" || p == Default }

// Valid reports whether s already belongs to the Prefix character class.
func Valid(s string) bool {
	for i := 0; i < len(s); i++ {
		if !allowed(s[i]) || (s[i] >= 'A' && s[i] <= 'Z') {
			return false
		}
	}
	return true
}

// Normalize turns arbitrary text into a Prefix. Whitespace runs become a hyphen,
// diacritics are stripped, anything outside [a-zA-Z0-9_-] is dropped and the result
// is lowercased. It never fails; garbage degrades to "".
func Normalize(raw string) Prefix {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(raw))
	inSpace := false
	for _, r := range raw {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}

	// transformers carry state, so the chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(t, b.String())
	if err != nil {
		decomposed = b.String()
	}

	out := make([]byte, 0, len(decomposed))
	for i := 0; i < len(decomposed); i++ {
		c := decomposed[i]
		if !allowed(c) {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return Prefix(out)
}

// OrDefault returns p, or Default when p is empty.
func (p Prefix) OrDefault() Prefix {
	if p == "" {
		return Default
	}
	return p
}

// APIRoot joins the site home URL and p into the public API root, e.g.
// "https://example.org/wp-json/".
func APIRoot(homeURL string, p Prefix) string {
	return strings.TrimRight(homeURL, "/") + "/" + string(p.OrDefault()) + "/"
}

func allowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}
