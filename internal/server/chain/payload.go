// Package chain holds the hash-chain rules of the redemption ledger: the
// canonical block payload, the link hash and the replay verifier.
package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// ClaimData is the redemption summary embedded in a block.
type ClaimData struct {
	Claimer     string `json:"claimer"`
	Amount      int64  `json:"amount"`
	TokenID     int64  `json:"token_id"`
	Description string `json:"description"`
}

// Payload is the content of one block. Field order is the serialization order.
type Payload struct {
	TxID      *int64     `json:"tx_id"`
	Timestamp int64      `json:"timestamp"`
	PrevHash  string     `json:"prev_hash"`
	ClaimData *ClaimData `json:"claim_data"`
}

// Encode returns the canonical bytes of p: fixed key order, no whitespace,
// no HTML escaping.
func Encode(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses stored payload bytes.
func Decode(b []byte) (Payload, error) {
	var p Payload
	err := json.Unmarshal(b, &p)
	return p, err
}

// Hash is the link hash: hex(sha256(prevHash || payload || decimal(createdAt))).
func Hash(prevHash string, payload []byte, createdAt int64) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(payload)
	h.Write([]byte(strconv.FormatInt(createdAt, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
