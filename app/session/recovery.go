package session

import (
	"net/url"
	"strings"
)

// RecoveryRequested reports whether the launch URL carries a
// type=recovery marker in its query or fragment. This is the one bit
// of URL protocol this layer parses itself.
func RecoveryRequested(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Query().Get("type") == "recovery" {
		return true
	}
	vals, ok := fragmentValues(u.Fragment)
	return ok && vals.Get("type") == "recovery"
}

// RecoveryToken extracts the recovery credential from the launch URL,
// checking the fragment first (the usual deep-link shape) and then the
// query. Empty when absent.
func RecoveryToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if vals, ok := fragmentValues(u.Fragment); ok {
		for _, key := range []string{"access_token", "token"} {
			if v := vals.Get(key); v != "" {
				return v
			}
		}
	}
	for _, key := range []string{"access_token", "token"} {
		if v := u.Query().Get(key); v != "" {
			return v
		}
	}
	return ""
}

// fragmentValues parses a URL fragment as a query string, tolerating a
// leading route path ("#/reset?type=recovery").
func fragmentValues(frag string) (url.Values, bool) {
	if frag == "" {
		return nil, false
	}
	if i := strings.IndexByte(frag, '?'); i >= 0 {
		frag = frag[i+1:]
	}
	vals, err := url.ParseQuery(frag)
	if err != nil {
		return nil, false
	}
	return vals, true
}
