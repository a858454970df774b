package lookup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		settings Settings
		wantNil  bool
		wantErr  bool
		check    func(t *testing.T, c Client)
	}{
		{name: "none", settings: Settings{Provider: ProviderNone}, wantNil: true},
		{name: "empty provider", settings: Settings{}, wantNil: true},
		{
			name:     "worldcat",
			settings: Settings{Provider: ProviderWorldCat, WorldCatClientID: "id", WorldCatClientSecret: "secret", Endpoint: "http://localhost:9999"},
			check: func(t *testing.T, c Client) {
				wc, ok := c.(*WorldCat)
				require.True(t, ok)
				assert.Equal(t, "http://localhost:9999", wc.endpoint)
				assert.Equal(t, DefaultTimeout, wc.timeout)
			},
		},
		{name: "worldcat without credentials", settings: Settings{Provider: ProviderWorldCat, WorldCatClientID: "id"}, wantErr: true},
		{
			name:     "googlebooks",
			settings: Settings{Provider: ProviderGoogleBooks, GoogleBooksAPIKey: "key", RateLimit: 5},
			check: func(t *testing.T, c Client) {
				_, ok := c.(*GoogleBooks)
				assert.True(t, ok)
			},
		},
		{name: "unknown", settings: Settings{Provider: "crossref"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(ctx, tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}
