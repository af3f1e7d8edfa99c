package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Probe GETs url and succeeds only on 200. It backs the container
// HEALTHCHECK, so it must not depend on anything but the HTTP server.
func Probe(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	return nil
}

// ReadyURL is the readiness endpoint on the local server.
func ReadyURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/readyz", port)
}
