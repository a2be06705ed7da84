package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShares(t *testing.T) {
	got, err := parseShares([]string{"1000=60%", "2000=150.25"})

	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1000, got[0].PsnSuffix)
	require.NotNil(t, got[0].Percentage)
	assert.Equal(t, "60", got[0].Percentage.String())
	assert.Nil(t, got[0].Amount)

	assert.Equal(t, 2000, got[1].PsnSuffix)
	require.NotNil(t, got[1].Amount)
	assert.Equal(t, "150.25", got[1].Amount.String())
	assert.Nil(t, got[1].Percentage)
}

func TestParseShares_Malformed(t *testing.T) {
	for _, arg := range []string{"1000", "abc=10%", "1000=ten", "1000=%"} {
		t.Run(arg, func(t *testing.T) {
			_, err := parseShares([]string{arg})
			assert.Error(t, err)
		})
	}
}
