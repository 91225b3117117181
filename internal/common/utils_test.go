package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReading(t *testing.T) {
	f, err := ParseReading(" 21.5\r\n")
	require.NoError(t, err)
	require.Equal(t, 21.5, f)

	f, err = ParseReading("-3")
	require.NoError(t, err)
	require.Equal(t, -3.0, f)

	for _, in := range []string{"N/A", "", "NaN", "+Inf", "12abc"} {
		_, err := ParseReading(in)
		require.ErrorIs(t, err, ErrNotNumeric, in)
	}
}

func TestTrimAndFormat(t *testing.T) {
	require.Equal(t, "1013.25", TrimReading("1013.25\b\r\n"))
	require.Equal(t, "1013.25", FormatReading(1013.25))
	require.Equal(t, "20", FormatReading(20))
}
