package main

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// solDecimals is the number of lamport digits in one SOL.
const solDecimals = 9

var (
	errNegativeAmount  = errors.New("amount must not be negative")
	errAmountPrecision = errors.New("amount has more than 9 decimal places")
	errAmountRange     = errors.New("amount exceeds the lamport range")

	maxLamports = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
)

// parseSOL converts a decimal SOL amount into lamports. A "lamports" suffix
// takes the number as lamports instead.
func parseSOL(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	shift := int32(solDecimals)
	if trimmed := strings.TrimSuffix(s, "lamports"); trimmed != s {
		s, shift = strings.TrimSpace(trimmed), 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, errNegativeAmount
	}
	lamports := d.Shift(shift)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, errAmountPrecision
	}
	if lamports.GreaterThan(maxLamports) {
		return 0, errAmountRange
	}
	return lamports.BigInt().Uint64(), nil
}

// formatSOL renders lamports as a SOL amount without trailing zeros.
func formatSOL(lamports uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -solDecimals)
	return d.String() + " SOL"
}
