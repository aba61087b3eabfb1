package guard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanRequest(t *testing.T) {
	got, err := CleanRequest("  I'm in Lisbon\x00 for\tthree days\n ")
	require.NoError(t, err)
	assert.Equal(t, "I'm in Lisbon for\tthree days", got)
}

func TestCleanRequest_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\x01\x02\n"} {
		_, err := CleanRequest(in)
		require.ErrorIs(t, err, ErrEmptyRequest, "%q", in)
	}
}

func TestCleanRequest_TooLong(t *testing.T) {
	_, err := CleanRequest(strings.Repeat("á", MaxRequestRunes+1))
	require.ErrorContains(t, err, "too long")

	_, err = CleanRequest(strings.Repeat("á", MaxRequestRunes))
	require.NoError(t, err)
}

func TestCleanRequest_InvalidUTF8(t *testing.T) {
	_, err := CleanRequest("bad \xff")
	require.Error(t, err)
}
