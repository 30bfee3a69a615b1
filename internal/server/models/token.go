// Package models defines server-side records persisted in the database.
package models

import "time"

// TokenStatus is the lifecycle state of an issued token. The only legal
// transitions are ACTIVE→USED and ACTIVE→VOID.
type TokenStatus string

const (
	TokenActive TokenStatus = "ACTIVE"
	TokenUsed   TokenStatus = "USED"
	TokenVoid   TokenStatus = "VOID"
)

// TokenPayload is the signed content of a token string. It is immutable once signed.
type TokenPayload struct {
	Amount      int64  `json:"amount"`
	OneTime     bool   `json:"one"`
	ExpiresAt   int64  `json:"exp"`
	Nonce       string `json:"nonce"`
	Description string `json:"desc"`
}

// Token is the registry row for an issued token.
type Token struct {
	ID          int64
	Token       string
	Amount      int64
	OneTime     bool
	ExpiresAt   time.Time
	Status      TokenStatus
	IssuedBy    string
	CreatedAt   time.Time
	Description string
}

// TokenStats are the dashboard figures over the registry.
type TokenStats struct {
	TotalTokens  int64
	ActiveAmount int64
}
