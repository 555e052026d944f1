package scholar

import (
	"fmt"
	"net/url"
	"strings"
)

// ExtractAuthorID accepts either a bare scholar profile ID or a full
// profile URL and returns the profile ID. URLs carry the ID in the
// "user" query parameter.
func ExtractAuthorID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty author identifier")
	}

	if strings.Contains(s, "://") || strings.Contains(s, "scholar.google") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("invalid profile URL %q: %w", raw, err)
		}
		id := u.Query().Get("user")
		if id == "" {
			return "", fmt.Errorf("profile URL %q has no user parameter", raw)
		}
		return id, nil
	}

	if strings.ContainsAny(s, " \t/?&=") {
		return "", fmt.Errorf("invalid author identifier %q", raw)
	}
	return s, nil
}
