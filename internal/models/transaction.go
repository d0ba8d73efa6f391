package models

// Split represents one user's signed portion of a transaction's amount.
type Split struct {
	// UserID is the user this portion belongs to.
	UserID string `json:"userId"`

	// Amount is the portion in cents. The sign convention is owned by
	// whoever creates the splits; the balance calculator just sums them.
	Amount int64 `json:"amount"`
}

// Transaction represents a single recorded expense within a fund.
//
// Transactions are immutable once created except for deletion: there is
// no update operation. The client replaces its whole transaction mirror
// on every refresh cycle rather than patching entries in place.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string `json:"id"`

	// FundID references the fund this expense belongs to.
	FundID string `json:"fundId"`

	// Description is what the money was spent on.
	Description string `json:"description"`

	// Amount is the full expense amount in cents.
	Amount int64 `json:"amount"`

	// PaidBy is the user ID of the member who paid.
	PaidBy string `json:"paidBy"`

	// Splits is the per-member breakdown of Amount.
	Splits []Split `json:"splits"`

	// CreatedAt is the Unix timestamp when the transaction was recorded.
	CreatedAt int64 `json:"createdAt"`

	// Date is the Unix timestamp of the expense itself, which may differ
	// from CreatedAt (e.g., recording yesterday's dinner). Zero means
	// "same as CreatedAt".
	Date int64 `json:"date,omitempty"`
}

// EffectiveDate returns Date, falling back to CreatedAt when unset.
func (t *Transaction) EffectiveDate() int64 {
	if t.Date != 0 {
		return t.Date
	}
	return t.CreatedAt
}
