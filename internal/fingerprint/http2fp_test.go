package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHTTP2Fingerprint_Chrome(t *testing.T) {
	fp := "1:65536;3:1000;4:6291456;6:262144|15663105|0|m,a,s,p"
	shape, err := ParseHTTP2Fingerprint(fp)
	require.NoError(t, err)
	require.Len(t, shape.Settings, 4)
	require.Equal(t, HTTP2Setting{ID: 1, Val: 65536}, shape.Settings[0])
	require.EqualValues(t, 15663105, shape.WindowUpdate)
	require.False(t, shape.HasPriority)
	require.Equal(t, [4]string{":method", ":authority", ":scheme", ":path"}, shape.PseudoOrder)
}

func TestParseHTTP2Fingerprint_WithPriority(t *testing.T) {
	fp := "|0|1:1:0:255|m,p,a,s"
	shape, err := ParseHTTP2Fingerprint(fp)
	require.NoError(t, err)
	require.Empty(t, shape.Settings)
	require.True(t, shape.HasPriority)
	require.EqualValues(t, 1, shape.PriorityStream)
	require.True(t, shape.PriorityExcl)
	require.EqualValues(t, 0, shape.PriorityDepend)
	require.EqualValues(t, 255, shape.PriorityWeight)
}

func TestParseHTTP2Fingerprint_DuplicatePseudo(t *testing.T) {
	_, err := ParseHTTP2Fingerprint("|0|0|m,p,a,m")
	require.Error(t, err)
}

func TestParseHTTP2Fingerprint_UnknownPseudoLetter(t *testing.T) {
	_, err := ParseHTTP2Fingerprint("|0|0|m,p,a,z")
	require.Error(t, err)
}

func TestParseHTTP2Fingerprint_WrongFieldCount(t *testing.T) {
	_, err := ParseHTTP2Fingerprint("|0|0")
	require.Error(t, err)
}

func TestParseHTTP2Fingerprint_MalformedSettingEntry(t *testing.T) {
	_, err := ParseHTTP2Fingerprint("1-65536|0|0|m,p,a,s")
	require.Error(t, err)
}
