package calculator

import "github.com/fundwise/fundwise/internal/models"

// Balance represents one user's net signed total across all splits in a
// fund. Positive means the fund owes them.
type Balance struct {
	UserID string
	Amount int64
}

// BalancesForFund accumulates the signed split amounts of every
// transaction belonging to fundID into one entry per user.
//
// A user appears in the result iff they appear in at least one split of
// a matching transaction; an explicit net-zero balance is retained.
// Entries are ordered by first appearance, but callers should treat the
// result as a set.
func BalancesForFund(transactions []models.Transaction, fundID string) []Balance {
	totals := make(map[string]int64)
	var order []string

	for _, tx := range transactions {
		if tx.FundID != fundID {
			continue
		}
		for _, split := range tx.Splits {
			if _, seen := totals[split.UserID]; !seen {
				order = append(order, split.UserID)
			}
			totals[split.UserID] += split.Amount
		}
	}

	balances := make([]Balance, 0, len(order))
	for _, userID := range order {
		balances = append(balances, Balance{UserID: userID, Amount: totals[userID]})
	}
	return balances
}
