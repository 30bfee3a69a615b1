package models

import "time"

// Claim records one successful redemption. Amount is copied from the token
// at claim time.
type Claim struct {
	ID        int64
	TokenID   int64
	Claimer   string
	Amount    int64
	CreatedAt time.Time
}

// ClaimTotals aggregates the claims table.
type ClaimTotals struct {
	Count  int64
	Amount int64
}
