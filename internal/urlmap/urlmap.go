// Package urlmap implements the gateway's ordered URL rewrite table
// (spec.md Section 6 "URL mapping"): an incoming request URL is matched
// against rules in configuration order, and the first match rewrites
// the URL before it is handed to the fetch pool.
package urlmap

import "strings"

// deviceHomeSrc is the special source token that matches whatever URL
// the client requested for its "home deck" rather than a literal
// prefix or exact string (spec.md Section 6: "DEVICE:home").
const deviceHomeSrc = "DEVICE:home"

// Rule is one ordered rewrite entry. When Prefix is true, Src is
// matched as a prefix and the unmatched tail of the URL is appended to
// Dst; otherwise Src must match the URL verbatim.
type Rule struct {
	Src    string
	Dst    string
	Prefix bool
}

// Map holds the ordered rule list plus the DEVICE:home destination
// (spec.md Section 6: "map-url", "map-url-N", "device-home").
type Map struct {
	rules      []Rule
	deviceHome string
}

// New builds a Map from an ordered rule list and the configured
// DEVICE:home destination.
func New(rules []Rule, deviceHome string) *Map {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &Map{rules: out, deviceHome: deviceHome}
}

// Match rewrites url against the rule table, returning the rewritten
// URL and true on the first matching rule. If no rule matches, it
// returns the original url and false (the caller fetches it as-is).
func (m *Map) Match(url string) (string, bool) {
	for _, r := range m.rules {
		if r.Src == deviceHomeSrc {
			if m.deviceHome == "" {
				continue
			}
			return m.deviceHome, true
		}
		if r.Prefix {
			if rewritten, ok := matchPrefix(r, url); ok {
				return rewritten, true
			}
			continue
		}
		if url == r.Src {
			return r.Dst, true
		}
	}
	return url, false
}

func matchPrefix(r Rule, url string) (string, bool) {
	if !strings.HasPrefix(url, r.Src) {
		return "", false
	}
	return r.Dst + strings.TrimPrefix(url, r.Src), true
}
