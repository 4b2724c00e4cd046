package legend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/pkg/legend"
)

func TestLoadFromFileParsesFamiliesAndSymbols(t *testing.T) {
	lg, err := legend.LoadFromFile("testdata/default_legend.json")
	require.NoError(t, err)
	require.Equal(t, 7, len(lg.Families))

	sym, family, ok := lg.Lookup("*3")
	require.True(t, ok)
	require.Equal(t, "select", family)
	require.Equal(t, "select", sym.Semantic)
	require.Equal(t, "SELECT", sym.SQLHint)
}

func TestLoadFromFileMissingPathErrors(t *testing.T) {
	_, err := legend.LoadFromFile("testdata/does_not_exist.json")
	require.Error(t, err)
}

func TestLoadFromJSONRejectsInvalidJSON(t *testing.T) {
	_, err := legend.LoadFromJSON([]byte("{not json"))
	require.Error(t, err)
}

func TestLookupUnknownSymbolReturnsFalse(t *testing.T) {
	lg, err := legend.LoadFromFile("testdata/default_legend.json")
	require.NoError(t, err)

	_, _, ok := lg.Lookup("*NOPE")
	require.False(t, ok)
}

func TestMatchPrefixPrefersLongestMatch(t *testing.T) {
	lg, err := legend.LoadFromFile("testdata/default_legend.json")
	require.NoError(t, err)

	sym, data, family, ok := lg.MatchPrefix("oQrest")
	require.True(t, ok)
	require.Equal(t, "oQ", sym)
	require.Equal(t, "output_json", data.Semantic)
	require.Equal(t, "datatype", family)
}

func TestMatchPrefixFuncRejectsViaPredicate(t *testing.T) {
	lg, err := legend.LoadFromFile("testdata/default_legend.json")
	require.NoError(t, err)

	_, _, _, ok := lg.MatchPrefixFunc("orders", func(sym string, next byte, hasNext bool) bool {
		return false
	})
	require.False(t, ok)
}

func TestEmptyLegendNeverMatches(t *testing.T) {
	lg := legend.Empty()
	_, _, ok := lg.Lookup("*3")
	require.False(t, ok)

	_, _, _, ok = lg.MatchPrefix("oQ")
	require.False(t, ok)

	require.Equal(t, 0, lg.Len())
}

func TestNilLegendLookupAndMatchAreSafe(t *testing.T) {
	var lg *legend.Legend
	_, _, ok := lg.Lookup("*3")
	require.False(t, ok)

	_, _, _, ok = lg.MatchPrefix("oQ")
	require.False(t, ok)
}
