package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var amountUnits = map[string]*big.Int{
	"wei":   big.NewInt(params.Wei),
	"gwei":  big.NewInt(params.GWei),
	"ether": big.NewInt(params.Ether),
	"eth":   big.NewInt(params.Ether),
}

// ParseAmount parses values such as "6ether", "0.5 ether", "100gwei" or a bare
// wei integer into wei.
func ParseAmount(raw string) (*big.Int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}

	unit := amountUnits["wei"]
	// longest suffix first so "gwei" is not read as "wei"
	for _, suffix := range []string{"ether", "gwei", "wei", "eth"} {
		if strings.HasSuffix(s, suffix) {
			unit = amountUnits[suffix]
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	value, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("%w: cannot parse amount %q", ErrInvalidInput, raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidInput, raw)
	}

	value.Mul(value, new(big.Rat).SetInt(unit))
	if !value.IsInt() {
		return nil, fmt.Errorf("%w: amount %q is not a whole number of wei", ErrInvalidInput, raw)
	}

	return new(big.Int).Set(value.Num()), nil
}

// FormatEther renders a wei amount in ether for display.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0 ETH"
	}
	value := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	s := strings.TrimRight(strings.TrimRight(value.FloatString(18), "0"), ".")
	return s + " ETH"
}
