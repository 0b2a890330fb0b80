package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_JSON(t *testing.T) {
	b, err := json.Marshal(MustParse("12.5"))
	require.NoError(t, err)
	assert.Equal(t, `"12.50"`, string(b))

	var fromString, fromNumber Money
	require.NoError(t, json.Unmarshal([]byte(`"7.125"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`7.1`), &fromNumber))
	assert.Equal(t, "7.13", fromString.String())
	assert.Equal(t, "7.10", fromNumber.String())
}

func TestMoney_Add(t *testing.T) {
	total := Zero.Add(MustParse("10")).Add(FromCents(550))
	assert.True(t, total.Equal(MustParse("15.50")))
	assert.False(t, total.IsNegative())
}
