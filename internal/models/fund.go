package models

// Fund represents a shared expense pool.
//
// Invariant: Members always contains CreatedBy. Both document store
// implementations enforce this on creation.
type Fund struct {
	// ID is the unique identifier for the fund (UUID format).
	ID string `json:"id"`

	// Name is the display name of the fund (e.g., "Flat 12b", "Ski Trip").
	Name string `json:"name"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty"`

	// Members is the list of user IDs participating in this fund.
	Members []string `json:"members"`

	// CreatedAt is the Unix timestamp when the fund was created.
	CreatedAt int64 `json:"createdAt"`

	// CreatedBy is the user ID that created the fund.
	CreatedBy string `json:"createdBy"`
}

// HasMember reports whether the given user ID is a member of the fund.
func (f *Fund) HasMember(userID string) bool {
	for _, m := range f.Members {
		if m == userID {
			return true
		}
	}
	return false
}
