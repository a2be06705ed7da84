package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/profit-ledger/disbursement"
)

// parseShares turns "1000=60%" and "2000=150.00" into shares. Mixing the two
// forms is left to the allocator to reject.
func parseShares(args []string) ([]disbursement.Share, error) {
	out := make([]disbursement.Share, 0, len(args))
	for _, arg := range args {
		suffixPart, valuePart, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("share %q: want <psn>=<value>", arg)
		}
		suffix, err := strconv.Atoi(suffixPart)
		if err != nil {
			return nil, fmt.Errorf("share %q: bad psn suffix: %w", arg, err)
		}

		isPercent := strings.HasSuffix(valuePart, "%")
		value, err := decimal.NewFromString(strings.TrimSuffix(valuePart, "%"))
		if err != nil {
			return nil, fmt.Errorf("share %q: bad value: %w", arg, err)
		}

		s := disbursement.Share{PsnSuffix: suffix}
		if isPercent {
			s.Percentage = &value
		} else {
			s.Amount = &value
		}
		out = append(out, s)
	}
	return out, nil
}
