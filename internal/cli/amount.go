package cli

import (
	"fmt"
	"math/big"
	"strings"
)

// parseTokenAmount converts a decimal token amount such as "10000" or "0.5" into base units.
func parseTokenAmount(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return nil, fmt.Errorf("invalid token amount %q", s)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("invalid token amount %q: more than %d decimals", s, decimals)
	}
	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	amount, ok := new(big.Int).SetString(digits, 10)
	if !ok || strings.ContainsAny(digits, "+-") {
		return nil, fmt.Errorf("invalid token amount %q", s)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("token amount must be positive: %q", s)
	}
	return amount, nil
}
