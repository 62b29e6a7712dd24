// Package artwork downloads cover images for the metadata cache.
package artwork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tejashwikalptaru/espot/internal/ports"
)

// MaxImageBytes caps a single download.
const MaxImageBytes = 4 << 20

// HTTPFetcher implements ports.ArtworkFetcher over plain HTTP.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher creates a fetcher allowing at most rps downloads per second.
// A nil client uses a client with a 10 second timeout; rps <= 0 disables limiting.
func NewHTTPFetcher(client *http.Client, rps float64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HTTPFetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch downloads url and returns its body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building artwork request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork endpoint returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading artwork: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("artwork exceeds %d bytes", MaxImageBytes)
	}
	return data, nil
}

var _ ports.ArtworkFetcher = (*HTTPFetcher)(nil)
