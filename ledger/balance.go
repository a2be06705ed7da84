package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Balance loads a subject's total balance through year: the latest
// year-end snapshot plus every entry posted after it.
func Balance(ctx context.Context, tx Tx, ssn, year int) (decimal.Decimal, error) {
	s, err := LoadSummary(ctx, tx, ssn, year)
	if err != nil {
		return decimal.Zero, err
	}
	return s.Total, nil
}

// LoadSummary summarizes a subject's history through year. Total honors
// the snapshot. The other aggregates come from the entries alone.
func LoadSummary(ctx context.Context, tx Tx, ssn, year int) (Summary, error) {
	snap, err := tx.LatestSnapshot(ctx, ssn, year)
	if err != nil {
		return Summary{}, err
	}
	entries, err := tx.Entries(ctx, ssn, year)
	if err != nil {
		return Summary{}, err
	}
	s := Summarize(ThroughYear(entries, 0, year))
	s.Total = BalanceAsOf(snap, entries, year)
	return s, nil
}
