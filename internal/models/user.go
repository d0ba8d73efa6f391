package models

// User represents a registered user account.
//
// The current session's user is owned by the session manager; every
// other user the client sees is a read-only mirror held by the user
// cache. Users are never deleted locally, only cleared wholesale on
// sign-out.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// DisplayName is the name shown in fund member lists.
	DisplayName string `json:"displayName"`

	// Email is the user's email address (unique).
	// Used for login and for inviting users into funds.
	Email string `json:"email"`

	// PhotoURL is an optional avatar URL.
	PhotoURL string `json:"photoURL,omitempty"`

	// BankAccount is an optional settlement account, free-form.
	BankAccount string `json:"bankAccount,omitempty"`

	// PasswordHash is only populated by credential-holding stores.
	// It never leaves the process.
	PasswordHash string `json:"-"`
}
