package match

import (
	"testing"

	"github.com/lehigh-university-libraries/srp/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSierraRecord(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]string
		key       string
		lookupKey string
		ids       []string
		weak      []string
	}{
		{
			name: "all identifier fields",
			values: map[string]string{
				"1":     "12345678",
				"022|a": "1234-5678  8765-4321",
				"022|l": "1234-5678",
				"776|x": "1111-2222;0; 3333-4444",
				"022|y": "9999-0000 -",
			},
			lookupKey: "12345678",
			ids:       []string{"1234-5678", "8765-4321", "1111-2222", "3333-4444"},
			weak:      []string{"9999-0000"},
		},
		{
			name:      "bib number with suffix",
			values:    map[string]string{"1": "987654ocm"},
			lookupKey: "987654",
		},
		{
			name:   "key in the bib number",
			values: map[string]string{"1": "ssj0001234", "022|a": "-"},
			key:    "ssj0001234",
		},
		{
			name:   "no bib number",
			values: map[string]string{"022|y": "1234-5678"},
			weak:   []string{"1234-5678"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSierraRecord("sierra.txt", tabular.Row{Line: 7, Values: tt.values}, DefaultSierraColumns())
			assert.Equal(t, "sierra.txt:7", r.ID())
			assert.Equal(t, KindSierra, r.Kind())
			assert.Equal(t, tt.key, r.KeyCandidate())
			assert.Equal(t, tt.lookupKey, r.LookupKey())
			assert.Equal(t, tt.ids, r.Identifiers())
			assert.Equal(t, tt.weak, r.WeakIdentifiers())
		})
	}
}

func TestTitleListRecord(t *testing.T) {
	r := NewTitleListRecord("titles.txt", tabular.Row{Line: 3, Values: map[string]string{
		"ssj#":  " ssj0001 ",
		"issn1": "-",
		"issn2": "2222-3333",
	}}, DefaultTitleListColumns())

	assert.Equal(t, "titles.txt:3", r.ID())
	assert.Equal(t, KindTitleList, r.Kind())
	assert.Equal(t, "ssj0001", r.KeyCandidate())
	assert.Equal(t, []string{"2222-3333"}, r.Identifiers())
	assert.Empty(t, r.LookupKey())
	assert.Nil(t, r.WeakIdentifiers())
}

func TestSources(t *testing.T) {
	table := &tabular.Table{
		Path:   "titles.txt",
		Header: []string{"ssj#", "issn1", "issn2"},
		Rows: []tabular.Row{
			{Line: 2, Values: map[string]string{"ssj#": "ssj0001", "issn1": "1234-5678", "issn2": ""}},
			{Line: 3, Values: map[string]string{"ssj#": "", "issn1": "2222-3333", "issn2": ""}},
		},
	}

	sources, err := Sources(table, KindTitleList, DefaultSierraColumns(), DefaultTitleListColumns())
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "titles.txt:3", sources[1].ID())

	_, err = Sources(table, KindSierra, DefaultSierraColumns(), DefaultTitleListColumns())
	assert.ErrorContains(t, err, `no "1" column`)

	_, err = Sources(table, Kind("marc"), DefaultSierraColumns(), DefaultTitleListColumns())
	assert.Error(t, err)
}
