package domain

import "context"

// IdentityCategory tells what kind of account produced a message.
type IdentityCategory string

const (
	CategoryHuman     IdentityCategory = "human"
	CategoryAutomated IdentityCategory = "automated"
	CategoryUnknown   IdentityCategory = "unknown"
)

// Identity is the rendered sender of a relayed message.
type Identity struct {
	Label    string
	Category IdentityCategory
}

// UserInfo is the account metadata returned by a user lookup.
type UserInfo struct {
	ID          string
	Handle      string // account name, e.g. "alice"
	DisplayName string
	RealName    string
	IsBot       bool
}

// UserDirectory resolves user IDs to account metadata.
type UserDirectory interface {
	LookupUser(ctx context.Context, userID string) (UserInfo, error)
}
