package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/warp/profit-ledger/app"
	"github.com/warp/profit-ledger/config"
	"github.com/warp/profit-ledger/disbursement"
	"github.com/warp/profit-ledger/inquiry"
	"github.com/warp/profit-ledger/ledger"
	"github.com/warp/profit-ledger/logging"
)

var commands = []subcommands.Command{
	&balanceCmd{},
	&disburseCmd{},
	&vestingCmd{},
	&bumpVestingCmd{},
	&seedCmd{},
}

// open loads config from the environment and wires the engine.
func open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

// run opens the engine, calls fn and maps the result to an exit status.
func run(ctx context.Context, fn func(*app.App) error) subcommands.ExitStatus {
	a, err := open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := fn(a); err != nil {
		var rule *ledger.RuleError
		if errors.As(err, &rule) {
			fmt.Fprintf(os.Stderr, "rejected (%s): %s\n", rule.Code, rule.Message())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// =============================================================================
// balance
// =============================================================================

type balanceCmd struct {
	badge  int
	suffix int
	year   int
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print the vesting-aware balance of a badge or beneficiary slice" }
func (*balanceCmd) Usage() string {
	return `psctl balance -badge <n> [-suffix <psn>] [-year <yyyy>]

  Without -suffix the employee's own balance is printed. With -suffix the
  beneficiary slice under that badge is printed instead.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.badge, "badge", 0, "employee badge number")
	f.IntVar(&c.suffix, "suffix", 0, "beneficiary psn suffix")
	f.IntVar(&c.year, "year", time.Now().Year(), "profit year")
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.badge <= 0 {
		fmt.Fprintln(os.Stderr, "-badge is required")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app.App) error {
		var (
			bal *inquiry.Balance
			err error
		)
		if c.suffix > 0 {
			bal, err = a.Inquiry.BeneficiaryBalance(ctx, c.badge, c.suffix, c.year)
		} else {
			bal, err = a.Inquiry.MemberBalance(ctx, c.badge, c.year)
		}
		if err != nil {
			return err
		}
		printBalance(bal)
		return nil
	})
}

func printBalance(b *inquiry.Balance) {
	id := fmt.Sprint(b.BadgeNumber)
	if b.PsnSuffix > 0 {
		id = fmt.Sprintf("%d-%d", b.BadgeNumber, b.PsnSuffix)
	}
	fmt.Printf("%s (%d)\n", id, b.ProfitYear)
	fmt.Printf("  total          %14s\n", ledger.FormatUSD(b.Total))
	fmt.Printf("  etva           %14s\n", ledger.FormatUSD(b.Etva))
	fmt.Printf("  contributions  %14s\n", ledger.FormatUSD(b.Contributions))
	fmt.Printf("  earnings       %14s\n", ledger.FormatUSD(b.Earnings))
	fmt.Printf("  forfeitures    %14s\n", ledger.FormatUSD(b.Forfeitures))
	fmt.Printf("  distributions  %14s\n", ledger.FormatUSD(b.Distributions))
	fmt.Printf("  vested %5s%%  %14s\n", b.VestingPercent.StringFixed(0), ledger.FormatUSD(b.Vested))
}

// =============================================================================
// disburse
// =============================================================================

type disburseCmd struct {
	badge     int
	suffix    int
	deceased  bool
	requestID string
}

func (*disburseCmd) Name() string     { return "disburse" }
func (*disburseCmd) Synopsis() string { return "split a badge's funds across its beneficiaries" }
func (*disburseCmd) Usage() string {
	return `psctl disburse -badge <n> [-suffix <psn>] [-deceased] [-request <id>] <share>...

  Each share is <psn>=<percent>% or <psn>=<amount>, for example
  1000=60% 2000=40% or 1000=1500.00. Percentages and amounts cannot be
  mixed. With -suffix the funds come out of that beneficiary slice.
`
}

func (c *disburseCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.badge, "badge", 0, "employee badge number")
	f.IntVar(&c.suffix, "suffix", 0, "disburse from this beneficiary slice")
	f.BoolVar(&c.deceased, "deceased", false, "the disburser is deceased; the whole balance must go out")
	f.StringVar(&c.requestID, "request", "", "request id (generated when empty)")
}

func (c *disburseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.badge <= 0 || f.NArg() == 0 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	shares, err := parseShares(f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	req := disbursement.Request{
		BadgeNumber: c.badge,
		IsDeceased:  c.deceased,
		Shares:      shares,
		RequestID:   c.requestID,
	}
	if c.suffix > 0 {
		req.PsnSuffix = &c.suffix
	}
	return run(ctx, func(a *app.App) error {
		res, err := a.Alloc.DisburseFundsToBeneficiaries(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("request %s posted %d entries: %s of %s\n",
			res.RequestID, len(res.EntryIDs), ledger.FormatUSD(res.TotalDisbursed), ledger.FormatUSD(res.Balance))
		return nil
	})
}

// =============================================================================
// vesting
// =============================================================================

type vestingCmd struct {
	schedule int
	years    int
}

func (*vestingCmd) Name() string     { return "vesting" }
func (*vestingCmd) Synopsis() string { return "look up a vesting percent and the new plan year" }
func (*vestingCmd) Usage() string {
	return `psctl vesting [-schedule <id>] -years <n>
`
}

func (c *vestingCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.schedule, "schedule", ledger.ScheduleNewPlan, "vesting schedule id")
	f.IntVar(&c.years, "years", 0, "years of service")
}

func (c *vestingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app.App) error {
		pct, err := a.Vesting.GetVestingPercent(ctx, c.schedule, c.years)
		if err != nil {
			return err
		}
		year, err := a.Vesting.GetNewPlanEffectiveYear(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("schedule %d, %d years: %s%%\n", c.schedule, c.years, pct.String())
		fmt.Printf("new plan effective %d\n", year)
		return nil
	})
}

// =============================================================================
// bump-vesting
// =============================================================================

type bumpVestingCmd struct{}

func (*bumpVestingCmd) Name() string             { return "bump-vesting" }
func (*bumpVestingCmd) Synopsis() string         { return "invalidate every cached vesting lookup" }
func (*bumpVestingCmd) Usage() string            { return "psctl bump-vesting\n" }
func (*bumpVestingCmd) SetFlags(_ *flag.FlagSet) {}

func (*bumpVestingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app.App) error {
		v, err := a.Vesting.Invalidate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("vesting cache at version %d\n", v)
		return nil
	})
}

// =============================================================================
// seed
// =============================================================================

type seedCmd struct{}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "reset storage and load a demo scenario" }
func (*seedCmd) Usage() string {
	return `psctl seed <scenario>

  Wipes all data first. Do not run against production.
`
}
func (*seedCmd) SetFlags(_ *flag.FlagSet) {}

func (c *seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app.App) error {
		if err := a.Handler().Load(ctx, f.Arg(0)); err != nil {
			return err
		}
		fmt.Printf("loaded %s\n", f.Arg(0))
		return nil
	})
}
