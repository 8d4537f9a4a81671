package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	ether, _ := new(big.Int).SetString("1000000000000000000", 10)
	six := new(big.Int).Mul(big.NewInt(6), ether)
	half := new(big.Int).Div(ether, big.NewInt(2))

	tests := []struct {
		raw  string
		want *big.Int
	}{
		{"6ether", six},
		{"6 ether", six},
		{"6 ETH", six},
		{"0.5 ether", half},
		{"100gwei", big.NewInt(100_000_000_000)},
		{"42", big.NewInt(42)},
		{"42 wei", big.NewInt(42)},
		{"0", big.NewInt(0)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, 0, tt.want.Cmp(got), "got %s", got)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, raw := range []string{"", "  ", "-1 ether", "lots", "0.5 wei", "1 btc"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAmount(raw)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestFormatEther(t *testing.T) {
	six, _ := ParseAmount("6 ether")
	half, _ := ParseAmount("0.5 ether")

	assert.Equal(t, "6 ETH", FormatEther(six))
	assert.Equal(t, "0.5 ETH", FormatEther(half))
	assert.Equal(t, "0 ETH", FormatEther(nil))
	assert.Equal(t, "0.000000000000000001 ETH", FormatEther(big.NewInt(1)))
}
