package models

// Block is one hash-linked ledger entry. CreatedAt is unix seconds and is the
// literal value that went into RecordHash; Payload holds the exact bytes hashed.
type Block struct {
	ID         int64
	TxID       *int64
	PrevHash   string
	RecordHash string
	CreatedAt  int64
	Payload    []byte
}

// BlockSummary is a block joined with the claim that produced it, for reporting.
// Claimer and Amount are zero for non-claim blocks.
type BlockSummary struct {
	ID         int64
	TxID       *int64
	RecordHash string
	CreatedAt  int64
	Claimer    string
	Amount     int64
}
