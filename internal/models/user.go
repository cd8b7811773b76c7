package models

// User is a minimal directory entry. The core never authenticates users;
// identity arrives pre-verified from the gateway and users exist here only so
// the display layer can resolve ids to names.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// DisplayName is the name shown next to balances and splits.
	DisplayName string

	// CreatedAt is the Unix timestamp when the user was registered.
	CreatedAt int64
}
