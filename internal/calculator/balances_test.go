package calculator

import (
	"testing"

	"github.com/fundwise/fundwise/internal/models"
)

func balancesAsMap(balances []Balance) map[string]int64 {
	out := make(map[string]int64, len(balances))
	for _, b := range balances {
		out[b.UserID] = b.Amount
	}
	return out
}

func TestBalancesForFund(t *testing.T) {
	tests := []struct {
		name         string
		transactions []models.Transaction
		fundID       string
		want         map[string]int64
	}{
		{
			name: "signed amounts accumulate per user",
			transactions: []models.Transaction{
				{FundID: "f1", Splits: []models.Split{
					{UserID: "A", Amount: -50},
					{UserID: "B", Amount: 50},
				}},
			},
			fundID: "f1",
			want:   map[string]int64{"A": -50, "B": 50},
		},
		{
			name: "transactions of other funds are ignored",
			transactions: []models.Transaction{
				{FundID: "f1", Splits: []models.Split{{UserID: "A", Amount: 10}}},
				{FundID: "f2", Splits: []models.Split{{UserID: "A", Amount: 999}}},
			},
			fundID: "f1",
			want:   map[string]int64{"A": 10},
		},
		{
			name: "explicit zero is retained, absent users omitted",
			transactions: []models.Transaction{
				{FundID: "f1", Splits: []models.Split{
					{UserID: "A", Amount: 25},
					{UserID: "B", Amount: 0},
				}},
				{FundID: "f1", Splits: []models.Split{
					{UserID: "A", Amount: -25},
				}},
			},
			fundID: "f1",
			want:   map[string]int64{"A": 0, "B": 0},
		},
		{
			name:         "no transactions yields empty result",
			transactions: nil,
			fundID:       "f1",
			want:         map[string]int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := balancesAsMap(BalancesForFund(tt.transactions, tt.fundID))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries (%v), want %d", len(got), got, len(tt.want))
			}
			for user, amount := range tt.want {
				actual, ok := got[user]
				if !ok {
					t.Errorf("missing entry for %s", user)
					continue
				}
				if actual != amount {
					t.Errorf("%s = %d, want %d", user, actual, amount)
				}
			}
		})
	}
}
