/*
aggregate.go - Pure aggregation over ledger entries

PURPOSE:
  Turns a slice of entries (already fetched by the caller) into totals.
  Nothing here touches storage, so every function is safe to call from
  inside or outside a unit of work.

AGGREGATES:
  Contributions: contribution of code 0 entries only
  Earnings:      earnings of code 0 AND code 8 entries
  Forfeitures:   forfeiture of every entry whose code is not a payment code

  Dropping code 8 from earnings understates balances for members with
  fully-vested earnings (class action, ETVA earnings). Keep both codes.

BALANCE FORMULAS:
  Per entry contribution to the running balance:
    code 9:            -forfeiture
    codes 1, 2, 3, 5:  contribution + earnings - forfeiture
    everything else:   contribution + earnings + forfeiture

  Etva:          contribution(code 6) + earnings(code 8) + forfeiture(code 9)
  Distributions: forfeiture over payment codes
  Vested:        (total + distributions - etva) * ratio + etva - distributions

SEE ALSO:
  - codes.go: code sets used here
  - inquiry/inquiry.go: vesting-aware use of Summary
*/
package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// CODE-BASED AGGREGATES
// =============================================================================

// AggregateContributions sums contributions of incoming-contribution entries.
func AggregateContributions(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.ProfitCode == CodeIncomingContributions {
			total = total.Add(e.Contribution)
		}
	}
	return total
}

// AggregateEarnings sums earnings of code 0 and code 8 entries.
func AggregateEarnings(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.ProfitCode.IsIncoming() {
			total = total.Add(e.Earnings)
		}
	}
	return total
}

// AggregateForfeitures sums forfeitures of all non-payment entries.
func AggregateForfeitures(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if !e.ProfitCode.IsPayment() {
			total = total.Add(e.Forfeiture)
		}
	}
	return total
}

// AggregateAllProfitValues computes the three aggregates in one pass.
// Decimal addition is exact, so the results match the individual functions.
func AggregateAllProfitValues(entries []Entry) (contributions, earnings, forfeitures decimal.Decimal) {
	contributions, earnings, forfeitures = decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.ProfitCode == CodeIncomingContributions {
			contributions = contributions.Add(e.Contribution)
		}
		if e.ProfitCode.IsIncoming() {
			earnings = earnings.Add(e.Earnings)
		}
		if !e.ProfitCode.IsPayment() {
			forfeitures = forfeitures.Add(e.Forfeiture)
		}
	}
	return contributions, earnings, forfeitures
}

// =============================================================================
// BALANCE
// =============================================================================

// BalanceDelta is the signed effect of one entry on the running balance.
func BalanceDelta(e Entry) decimal.Decimal {
	switch {
	case e.ProfitCode == CodeOutgoing100PercentVestedPayment:
		return e.Forfeiture.Neg()
	case e.ProfitCode.IsPayment():
		return e.Contribution.Add(e.Earnings).Sub(e.Forfeiture)
	default:
		return e.Contribution.Add(e.Earnings).Add(e.Forfeiture)
	}
}

// TotalBalance is the running balance over all given entries.
func TotalBalance(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(BalanceDelta(e))
	}
	return total
}

// TotalEtva is the fully vested portion recorded in the ledger.
func TotalEtva(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		switch e.ProfitCode {
		case CodeIncomingQdroBeneficiary:
			total = total.Add(e.Contribution)
		case CodeIncoming100PercentVestedEarnings:
			total = total.Add(e.Earnings)
		case CodeOutgoing100PercentVestedPayment:
			total = total.Add(e.Forfeiture)
		}
	}
	return total
}

// TotalDistributions sums the forfeiture column of payment entries.
func TotalDistributions(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.ProfitCode.IsPayment() {
			total = total.Add(e.Forfeiture)
		}
	}
	return total
}

// ThroughYear keeps entries with snapshotYear < ProfitYear <= year.
// Pass snapshotYear 0 when there is no snapshot.
func ThroughYear(entries []Entry, snapshotYear, year int) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ProfitYear > snapshotYear && e.ProfitYear <= year {
			out = append(out, e)
		}
	}
	return out
}

// BalanceAsOf combines an optional year-end snapshot with the entries
// posted after it, up to and including year.
func BalanceAsOf(snapshot *BalanceSnapshot, entries []Entry, year int) decimal.Decimal {
	if snapshot == nil || snapshot.ProfitYear > year {
		return TotalBalance(ThroughYear(entries, 0, year))
	}
	return snapshot.Total.Add(TotalBalance(ThroughYear(entries, snapshot.ProfitYear, year)))
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is every aggregate of one subject's history.
type Summary struct {
	Total         decimal.Decimal
	Etva          decimal.Decimal
	Distributions decimal.Decimal
	Contributions decimal.Decimal
	Earnings      decimal.Decimal
	Forfeitures   decimal.Decimal
}

// Summarize computes a Summary over entries.
func Summarize(entries []Entry) Summary {
	c, e, f := AggregateAllProfitValues(entries)
	return Summary{
		Total:         TotalBalance(entries),
		Etva:          TotalEtva(entries),
		Distributions: TotalDistributions(entries),
		Contributions: c,
		Earnings:      e,
		Forfeitures:   f,
	}
}

// VestedBalance applies a vesting ratio (0..1) to the non-Etva part of the
// balance. Etva is always fully vested.
func (s Summary) VestedBalance(ratio decimal.Decimal) decimal.Decimal {
	return s.Total.Add(s.Distributions).Sub(s.Etva).Mul(ratio).Add(s.Etva).Sub(s.Distributions)
}
