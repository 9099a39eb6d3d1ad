package config

import "strings"

// DefaultIgnoreDomains returns the hostnames that should never be
// tracked: local development hosts and browser-internal pages that carry
// no meaningful screen time.
func DefaultIgnoreDomains() []string {
	return []string{
		// Local development
		"localhost",
		"127.0.0.1",
		"0.0.0.0",
		"[::1]",

		// Browser-internal pages
		"newtab",
		"new-tab-page",
		"extensions",
		"settings",
		"history",
		"downloads",
		"bookmarks",
		"flags",
		"version",

		// Unparseable navigation sentinel
		"unknown",
	}
}

// DefaultIgnorePathPrefixes returns URL path prefixes excluded from
// tracking regardless of hostname.
func DefaultIgnorePathPrefixes() []string {
	return []string{
		"/settings",
	}
}

// IgnoreMatcher answers whether a navigation should be excluded from
// tracking. Construct with NewIgnoreMatcher; the zero value matches
// nothing.
type IgnoreMatcher struct {
	domains  map[string]struct{}
	prefixes []string
}

// NewIgnoreMatcher builds a matcher from an IgnoreConfig.
func NewIgnoreMatcher(cfg IgnoreConfig) *IgnoreMatcher {
	m := &IgnoreMatcher{
		domains:  make(map[string]struct{}, len(cfg.Domains)),
		prefixes: append([]string(nil), cfg.PathPrefixes...),
	}
	for _, d := range cfg.Domains {
		m.domains[strings.ToLower(d)] = struct{}{}
	}
	return m
}

// Ignored reports whether the given hostname/path pair is excluded.
func (m *IgnoreMatcher) Ignored(domain, path string) bool {
	if m == nil || m.domains == nil {
		return false
	}
	if _, ok := m.domains[strings.ToLower(domain)]; ok {
		return true
	}
	for _, p := range m.prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
