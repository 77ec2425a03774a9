package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
	}{
		{"12.50", 1250},
		{"0.99", 99},
		{"200", 20000},
		{" 150.00 ", 15000},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, "parse %q", tc.in)
		assert.Equal(t, tc.cents, got, "parse %q", tc.in)
	}
}

func TestParseRejectsSubCentAndGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "12.505"} {
		_, err := Parse(in)
		assert.Error(t, err, "expected %q to be rejected", in)
	}
}

func TestFormatRoundTrips(t *testing.T) {
	assert.Equal(t, "12.50", Format(1250))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "1250.00", Format(125000))

	got, err := Parse(Format(123456))
	require.NoError(t, err)
	assert.Equal(t, int64(123456), got)
}
