// Package calculator implements the pure split and balance arithmetic
// for fund transactions. All amounts are int64 cents.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fundwise/fundwise/internal/models"
)

// SplitMode selects how a transaction's amount is divided among its
// participants.
type SplitMode string

const (
	// SplitEqual divides the amount evenly; the integer remainder goes
	// to the first participant so the splits sum exactly.
	SplitEqual SplitMode = "equal"

	// SplitPercentage gives each participant round(amount * pct / 100);
	// the rounding remainder is absorbed by the payer's entry if the
	// payer participates, otherwise by the first participant.
	SplitPercentage SplitMode = "percentage"

	// SplitExact passes manually specified per-participant amounts
	// through unchanged. The caller owns the sum invariant; use
	// ValidateExactSplits to enforce it as a separate policy.
	SplitExact SplitMode = "exact"
)

// Draft carries the inputs of a split computation. Percentages is only
// consulted in percentage mode, ManualSplits only in exact mode.
type Draft struct {
	Amount       int64
	PaidBy       string
	Mode         SplitMode
	Participants []string
	Percentages  map[string]float64
	ManualSplits []models.Split
}

// ComputeSplits derives the per-member splits for a transaction draft.
// For equal and percentage modes the returned amounts sum exactly to
// d.Amount.
func ComputeSplits(d Draft) ([]models.Split, error) {
	switch d.Mode {
	case SplitEqual:
		return splitEqual(d.Amount, d.Participants)
	case SplitPercentage:
		return splitPercentage(d.Amount, d.PaidBy, d.Participants, d.Percentages)
	case SplitExact:
		if len(d.ManualSplits) == 0 {
			return nil, fmt.Errorf("exact split requires manual splits")
		}
		out := make([]models.Split, len(d.ManualSplits))
		copy(out, d.ManualSplits)
		return out, nil
	default:
		return nil, fmt.Errorf("unknown split mode: %q", d.Mode)
	}
}

func splitEqual(amount int64, participants []string) ([]models.Split, error) {
	n := int64(len(participants))
	if n == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	base := amount / n
	remainder := amount - base*n

	splits := make([]models.Split, 0, n)
	for i, p := range participants {
		share := base
		if i == 0 {
			// Deterministic tie-break: the first participant absorbs the
			// remainder so the sum stays exact.
			share += remainder
		}
		splits = append(splits, models.Split{UserID: p, Amount: share})
	}
	return splits, nil
}

func splitPercentage(amount int64, paidBy string, participants []string, percentages map[string]float64) ([]models.Split, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	total := decimal.NewFromInt(amount)
	hundred := decimal.NewFromInt(100)

	splits := make([]models.Split, 0, len(participants))
	var sum int64
	payerIdx := -1
	for i, p := range participants {
		pct, ok := percentages[p]
		if !ok {
			return nil, fmt.Errorf("no percentage for participant %s", p)
		}
		share := total.Mul(decimal.NewFromFloat(pct)).Div(hundred).Round(0).IntPart()
		if p == paidBy {
			payerIdx = i
		}
		sum += share
		splits = append(splits, models.Split{UserID: p, Amount: share})
	}

	// Per-share rounding can leave the sum off by a few cents.
	if remainder := amount - sum; remainder != 0 {
		idx := 0
		if payerIdx >= 0 {
			idx = payerIdx
		}
		splits[idx].Amount += remainder
	}
	return splits, nil
}

// ValidateExactSplits checks that manually specified splits sum to the
// transaction amount. Exact mode itself does not enforce this; callers
// opt in to the check as a policy decision.
func ValidateExactSplits(amount int64, splits []models.Split) error {
	var sum int64
	for _, s := range splits {
		sum += s.Amount
	}
	if sum != amount {
		return fmt.Errorf("exact splits sum to %d, want %d", sum, amount)
	}
	return nil
}
