package session

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPFaviconSource resolves favicons by probing the domain's
// conventional /favicon.ico location. Used when the extension reported
// no favicon with a navigation event.
type HTTPFaviconSource struct {
	client *http.Client
}

// NewHTTPFaviconSource creates an HTTPFaviconSource. client may be nil.
func NewHTTPFaviconSource(client *http.Client) *HTTPFaviconSource {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return &HTTPFaviconSource{client: client}
}

// Favicon probes https://<domain>/favicon.ico and returns its URL when
// the server answers with a success status.
func (s *HTTPFaviconSource) Favicon(ctx context.Context, domain string) (string, error) {
	faviconURL := "https://" + domain + "/favicon.ico"

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, faviconURL, nil)
	if err != nil {
		return "", fmt.Errorf("build favicon request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe favicon: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("favicon probe: status %d", resp.StatusCode)
	}
	return faviconURL, nil
}
