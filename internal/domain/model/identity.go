package model

// UserIdentity is the caller identity resolved from a verified bearer token.
type UserIdentity struct {
	UserID string
	Email  string
}
