package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	books "google.golang.org/api/books/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleBooks looks OCLC numbers up in the Google Books volumes index and
// returns the ISSNs among their industry identifiers. Coverage of serials is
// thinner than WorldCat; it is meant for sites without OCLC credentials.
type GoogleBooks struct {
	*transport
	service *books.Service
}

// NewGoogleBooks creates a client using an API key. WithHTTPClient and
// WithEndpoint are passed to the generated client.
func NewGoogleBooks(ctx context.Context, apiKey string, opts ...Option) (*GoogleBooks, error) {
	t := newTransport("")
	for _, opt := range opts {
		opt(t)
	}

	clientOpts := []option.ClientOption{option.WithUserAgent(t.userAgent)}
	switch {
	case apiKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	case t.httpClient == nil:
		// volumes.list is public, only the quota is lower
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}
	if t.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(t.httpClient))
	}
	if t.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(t.endpoint))
	}

	service, err := books.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create books client: %w", err)
	}
	return &GoogleBooks{transport: t, service: service}, nil
}

// Lookup implements Client.
func (g *GoogleBooks) Lookup(ctx context.Context, oclcNumber string) ([]string, error) {
	oclcNumber = strings.TrimSpace(oclcNumber)
	if oclcNumber == "" {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, g.retryDelay, attempt); err != nil {
				return nil, err
			}
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		volumes, err := g.service.Volumes.List("oclc:" + oclcNumber).Context(callCtx).Do()
		cancel()
		if err == nil {
			return volumeISSNs(volumes), nil
		}

		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.Code == http.StatusNotFound:
				return nil, nil
			case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("failed to search volumes: %w", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func volumeISSNs(volumes *books.Volumes) []string {
	if volumes == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, v := range volumes.Items {
		if v == nil || v.VolumeInfo == nil {
			continue
		}
		for _, ident := range v.VolumeInfo.IndustryIdentifiers {
			if ident == nil || ident.Type != "ISSN" {
				continue
			}
			id := strings.TrimSpace(ident.Identifier)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
