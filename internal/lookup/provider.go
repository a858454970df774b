package lookup

import (
	"context"
	"fmt"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderWorldCat    = "worldcat"
	ProviderGoogleBooks = "googlebooks"
	ProviderNone        = "none"
)

// Settings selects and configures a lookup service.
type Settings struct {
	Provider  string
	Endpoint  string
	RateLimit float64
	Timeout   time.Duration

	WorldCatClientID     string
	WorldCatClientSecret string
	GoogleBooksAPIKey    string
}

// NewClient builds the configured client. ProviderNone returns nil, which
// callers treat as "cache only".
func NewClient(ctx context.Context, s Settings) (Client, error) {
	opts := []Option{
		WithEndpoint(s.Endpoint),
		WithRateLimit(s.RateLimit),
		WithTimeout(s.Timeout),
	}

	switch s.Provider {
	case ProviderWorldCat:
		if s.WorldCatClientID == "" || s.WorldCatClientSecret == "" {
			return nil, fmt.Errorf("worldcat lookup requires WORLDCAT_CLIENT_ID and WORLDCAT_CLIENT_SECRET")
		}
		return NewWorldCat(s.WorldCatClientID, s.WorldCatClientSecret, opts...), nil
	case ProviderGoogleBooks:
		gb, err := NewGoogleBooks(ctx, s.GoogleBooksAPIKey, opts...)
		if err != nil {
			return nil, err
		}
		return gb, nil
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported lookup provider: %s", s.Provider)
	}
}
