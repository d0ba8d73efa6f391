package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/fundwise/fundwise/internal/calculator"
	"github.com/fundwise/fundwise/internal/client"
	"github.com/fundwise/fundwise/internal/models"
)

type txAddCmd struct {
	fundID      string
	description string
	amount      string
	paidBy      string
	mode        string
	with        string
	shares      string
	date        string
}

func (*txAddCmd) Name() string     { return "tx-add" }
func (*txAddCmd) Synopsis() string { return "record an expense in a fund" }
func (*txAddCmd) Usage() string {
	return `fundwise tx-add -fund <fund-id> -desc <text> -amount <money> [flags]

  -split equal      (default) splits evenly among participants
  -split percentage needs -shares "user=pct,user=pct"
  -split exact      needs -shares "user=money,user=money"

  Participants default to the fund's members; override with
  -with "user,user,...". The payer defaults to you.
`
}

func (c *txAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fundID, "fund", "", "fund id")
	f.StringVar(&c.description, "desc", "", "what the money was spent on")
	f.StringVar(&c.amount, "amount", "", "expense amount, e.g. 12.34")
	f.StringVar(&c.paidBy, "paidby", "", "user id of the payer (default: you)")
	f.StringVar(&c.mode, "split", "equal", "split rule: equal, percentage, exact")
	f.StringVar(&c.with, "with", "", "comma-separated participant user ids")
	f.StringVar(&c.shares, "shares", "", "per-user shares for percentage/exact splits")
	f.StringVar(&c.date, "date", "", "expense date (YYYY-MM-DD, default today)")
}

func (c *txAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.fundID == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "fund and amount are required")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	user, err := a.requireUser(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	amount, err := parseAmount(c.amount)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	paidBy := c.paidBy
	if paidBy == "" {
		paidBy = user.ID
	}

	participants := splitList(c.with)
	if len(participants) == 0 {
		fund, err := a.docs.GetFundByID(ctx, c.fundID)
		if err != nil || fund == nil {
			fmt.Fprintln(os.Stderr, "fund not found")
			return subcommands.ExitFailure
		}
		participants = fund.Members
	}

	draft := client.TransactionDraft{
		FundID:       c.fundID,
		Description:  c.description,
		Amount:       amount,
		PaidBy:       paidBy,
		Participants: participants,
	}
	switch calculator.SplitMode(c.mode) {
	case calculator.SplitEqual:
		draft.Mode = calculator.SplitEqual
	case calculator.SplitPercentage:
		draft.Mode = calculator.SplitPercentage
		draft.Percentages, err = parsePercentages(c.shares)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	case calculator.SplitExact:
		draft.Mode = calculator.SplitExact
		draft.ManualSplits, err = parseManualSplits(c.shares)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown split rule %q\n", c.mode)
		return subcommands.ExitUsageError
	}

	if c.date != "" {
		day, err := time.Parse("2006-01-02", c.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid date %q\n", c.date)
			return subcommands.ExitUsageError
		}
		draft.Date = day
	}

	txn, ok := a.store.CreateTransaction(ctx, draft)
	if !ok {
		return subcommands.ExitFailure
	}
	fmt.Printf("recorded %s (%s) in fund %s\n", formatCents(txn.Amount), txn.ID, txn.FundID)
	return subcommands.ExitSuccess
}

type txListCmd struct {
	fundID string
}

func (*txListCmd) Name() string     { return "tx-list" }
func (*txListCmd) Synopsis() string { return "list a fund's transactions, newest first" }
func (*txListCmd) Usage() string    { return "fundwise tx-list -fund <fund-id>\n" }

func (c *txListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fundID, "fund", "", "fund id")
}

func (c *txListCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.fundID == "" {
		fmt.Fprintln(os.Stderr, "a fund id is required")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if _, err := a.requireUser(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := a.store.LoadTransactionsForFund(ctx, c.fundID); err != nil {
		return subcommands.ExitFailure
	}

	for _, txn := range a.store.Transactions() {
		day := time.Unix(txn.EffectiveDate(), 0).Format("2006-01-02")
		payer := a.users.Get(txn.PaidBy).DisplayName
		fmt.Printf("%s  %s  %-30s paid by %s  (%s)\n",
			day, formatCents(txn.Amount), txn.Description, payer, txn.ID)
	}
	return subcommands.ExitSuccess
}

type txDeleteCmd struct{}

func (*txDeleteCmd) Name() string             { return "tx-rm" }
func (*txDeleteCmd) Synopsis() string         { return "delete a transaction" }
func (*txDeleteCmd) Usage() string            { return "fundwise tx-rm <transaction-id>\n" }
func (*txDeleteCmd) SetFlags(f *flag.FlagSet) {}

func (c *txDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "a transaction id is required")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if _, err := a.requireUser(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if !a.store.DeleteTransaction(ctx, f.Arg(0)) {
		return subcommands.ExitFailure
	}
	fmt.Println("transaction deleted")
	return subcommands.ExitSuccess
}

type balancesCmd struct {
	fundID string
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "show net member balances for a fund" }
func (*balancesCmd) Usage() string    { return "fundwise balances -fund <fund-id>\n" }

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fundID, "fund", "", "fund id")
}

func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.fundID == "" {
		fmt.Fprintln(os.Stderr, "a fund id is required")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if _, err := a.requireUser(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := a.store.LoadTransactionsForFund(ctx, c.fundID); err != nil {
		return subcommands.ExitFailure
	}

	balances := a.store.Balances(c.fundID)
	if len(balances) == 0 {
		fmt.Println("no transactions yet")
		return subcommands.ExitSuccess
	}

	ids := make([]string, 0, len(balances))
	for _, b := range balances {
		ids = append(ids, b.UserID)
	}
	_ = a.users.LoadBatch(ctx, ids)

	for _, b := range balances {
		fmt.Printf("%-24s %s\n", a.users.Get(b.UserID).DisplayName, formatCents(b.Amount))
	}
	return subcommands.ExitSuccess
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePercentages parses "user=pct,user=pct" pairs.
func parsePercentages(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, pair := range splitList(s) {
		user, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid share %q, want user=pct", pair)
		}
		pct, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid percentage %q: %w", value, err)
		}
		out[user] = pct
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("percentage split requires -shares")
	}
	return out, nil
}

// parseManualSplits parses "user=money,user=money" pairs.
func parseManualSplits(s string) ([]models.Split, error) {
	var out []models.Split
	for _, pair := range splitList(s) {
		user, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid share %q, want user=amount", pair)
		}
		cents, err := parseAmount(value)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Split{UserID: user, Amount: cents})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("exact split requires -shares")
	}
	return out, nil
}
