package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Resolver maps an IP address to a country name. Lookups are best-effort:
// callers log and swallow failures, they never block or fail a login.
type Resolver interface {
	Country(ctx context.Context, ip string) (string, error)
}

// IPAPIResolver resolves countries via the ip-api.com JSON endpoint
type IPAPIResolver struct {
	endpoint string
	client   *http.Client
}

// NewIPAPIResolver creates a resolver against the given endpoint
// (e.g. http://ip-api.com/json)
func NewIPAPIResolver(endpoint string, timeout time.Duration) *IPAPIResolver {
	return &IPAPIResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	Query   string `json:"query"`
}

// Country looks up the country for an IP address
func (r *IPAPIResolver) Country(ctx context.Context, ip string) (string, error) {
	url := fmt.Sprintf("%s/%s?fields=status,message,country,query", r.endpoint, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to lookup IP location: %w", err)
	}
	defer resp.Body.Close()

	var loc ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return "", fmt.Errorf("failed to decode geo response: %w", err)
	}

	if loc.Status != "success" {
		return "", fmt.Errorf("geo lookup error: %s", loc.Message)
	}

	return loc.Country, nil
}

// Disabled is a Resolver that reports lookups as unavailable.
// Used when geolocation is switched off in configuration.
type Disabled struct{}

// Country always returns an error
func (Disabled) Country(ctx context.Context, ip string) (string, error) {
	return "", fmt.Errorf("geolocation disabled")
}
