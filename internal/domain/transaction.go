package domain

import "time"

// FeedRole tags a feed item relative to the querying user.
type FeedRole string

const (
	RoleSent     FeedRole = "sent"
	RoleReceived FeedRole = "received"
)

// Transaction is an immutable ledger entry. It has exactly one sender and
// one receiver and is never mutated or individually deleted after creation.
type Transaction struct {
	ID          string
	Amount      float64
	Category    string
	Description string
	Date        time.Time
}

// FeedItem is the per-request view of a transaction within one user's
// history. Counterparty is the receiver for sent items and the sender for
// received items.
type FeedItem struct {
	Role         FeedRole
	Transaction  Transaction
	Counterparty UserRef
}
