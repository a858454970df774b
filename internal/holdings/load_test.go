package holdings

import (
	"errors"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/srp/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const licensingHeader = "ID\tTitle\tISSN\teISSN\tResource\tEndDate\tInclude as alt-access point?\tFreely avail?\n"

func licensingTable(t *testing.T, rows ...string) *tabular.Table {
	t.Helper()
	table, err := tabular.ReadTSV(strings.NewReader(licensingHeader + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	table.Path = "licensing.txt"
	return table
}

func TestLoad(t *testing.T) {
	table := licensingTable(t,
		"ssj0001\tJournal A\t1234-5678\t-\tResourceA\t\tyes\tno",
		"ssj0001\tJournal A\t1234-5678\t8765-4321\tResourceB\t2015\tyes\tyes",
		"ssj0002\tJournal B\t2222-3333\t\tResourceA\tFall 2010\tyes\tno",
		"ssj0003\tJournal C\t4444-5555\t\tResourceC\t\tno\tno",
		"\tNo Key\t9999-9999\t\tResourceD\t\tyes\tno",
	)

	catalog, err := Load([]*tabular.Table{table}, DefaultColumns(), today)
	require.NoError(t, err)

	require.Len(t, catalog.Titles, 2)
	assert.Equal(t, "ssj0001", catalog.Titles[0].Key)
	assert.Equal(t, "ssj0002", catalog.Titles[1].Key)
	assert.Equal(t, 3, catalog.AccessPoints)
	assert.True(t, catalog.HasAccess)
	assert.Equal(t, []string{"ssj0003"}, catalog.ExcludedKeys())

	first := catalog.Titles[0]
	assert.Equal(t, []string{"1234-5678", "8765-4321"}, first.Identifiers())
	assert.Equal(t, "ResourceA", first.Summary(FilterAll).Resources)
	assert.Equal(t, "ResourceA", first.Summary(FilterPaid).Resources)
	free := first.Summary(FilterFree)
	assert.Equal(t, "ResourceB", free.Resources)
	assert.Equal(t, "2015-01-01", free.End.Display)
}

func TestLoadWithoutAccessColumn(t *testing.T) {
	table, err := tabular.ReadTSV(strings.NewReader(
		"ID\tResource\tEndDate\tInclude as alt-access point?\n" +
			"ssj0001\tResourceA\t2 years ago\tyes\n"))
	require.NoError(t, err)

	catalog, err := Load([]*tabular.Table{table}, DefaultColumns(), today)
	require.NoError(t, err)
	assert.False(t, catalog.HasAccess)
	require.Len(t, catalog.Titles, 1)
	assert.Equal(t, TimeLimited, catalog.Titles[0].Summary(FilterAll).End.Mode)
}

func TestLoadAccessColumnInSomeFiles(t *testing.T) {
	bare, err := tabular.ReadTSV(strings.NewReader(
		"ID\tResource\tEndDate\tInclude as alt-access point?\n" +
			"ssj0001\tResourceA\t\tyes\n"))
	require.NoError(t, err)
	bare.Path = "bare.txt"

	valid := licensingTable(t, "ssj0002\tB\t\t\tResourceB\t\tyes\tno")
	catalog, err := Load([]*tabular.Table{bare, valid}, DefaultColumns(), today)
	require.NoError(t, err)
	assert.False(t, catalog.HasAccess)
	assert.Len(t, catalog.Titles, 2)

	invalid := licensingTable(t, "ssj0002\tB\t\t\tResourceB\t\tyes\tmaybe")
	_, err = Load([]*tabular.Table{bare, invalid}, DefaultColumns(), today)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFlag)
	assert.Contains(t, err.Error(), "licensing.txt")
}

func TestLoadInvalidFlag(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		column string
		value  string
	}{
		{name: "whitelist", row: "ssj0001\tA\t\t\tResourceA\t\tmaybe\tno", column: "include as alt-access point?", value: "maybe"},
		{name: "free or paid", row: "ssj0001\tA\t\t\tResourceA\t\tyes\tsometimes", column: "freely avail?", value: "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]*tabular.Table{licensingTable(t, tt.row)}, DefaultColumns(), today)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFlag)

			var flagErr *FlagError
			require.True(t, errors.As(err, &flagErr))
			assert.Equal(t, 2, flagErr.Line)
			assert.Equal(t, tt.column, flagErr.Column)
			assert.Equal(t, tt.value, flagErr.Value)
			assert.Contains(t, err.Error(), "licensing.txt")
		})
	}
}

func TestLoadMissingColumn(t *testing.T) {
	table, err := tabular.ReadTSV(strings.NewReader("ID\tResource\nssj0001\tResourceA\n"))
	require.NoError(t, err)

	cols := DefaultColumns()
	cols.Include = ""
	_, err = Load([]*tabular.Table{table}, cols, today)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"enddate"`)
}
