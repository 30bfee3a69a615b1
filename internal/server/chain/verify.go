package chain

import (
	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

// Checkpoint is a verified chain position. The zero value is genesis.
type Checkpoint struct {
	BlockID int64
	Hash    string
}

// Result is the outcome of replaying the chain.
type Result struct {
	OK bool
	// Length counts the blocks covered, including those before a checkpoint.
	Length int64
	// FinalHash is the last verified hash, usable as the next checkpoint.
	FinalHash string
	BrokenAt  int64
	Expected  string
	Actual    string
	// Malformed lists blocks whose payload does not decode. They are still
	// hashed from their raw bytes.
	Malformed []int64

	lastID int64
}

// Checkpoint returns the position reached by a successful replay.
func (r Result) Checkpoint() Checkpoint {
	if r.Length == 0 {
		return Checkpoint{}
	}
	return Checkpoint{BlockID: r.lastID, Hash: r.FinalHash}
}

// Err reports a failed replay as *common.IntegrityError and nil otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &common.IntegrityError{BlockID: r.BrokenAt, Expected: r.Expected, Actual: r.Actual}
}

// Verify replays blocks, which must be in ascending id order and follow
// start. It stops at the first block whose stored prev_hash or record_hash
// disagrees with the recomputed chain; nothing after a break is trusted.
// base is the number of blocks already covered by start.
func Verify(blocks []models.Block, start Checkpoint, base int64) Result {
	res := Result{OK: true, Length: base, FinalHash: start.Hash, lastID: start.BlockID}
	prev := start.Hash

	for i := range blocks {
		b := &blocks[i]

		if _, err := Decode(b.Payload); err != nil {
			res.Malformed = append(res.Malformed, b.ID)
		}

		if b.PrevHash != prev {
			return res.broken(b.ID, prev, b.PrevHash)
		}

		expected := Hash(prev, b.Payload, b.CreatedAt)
		if expected != b.RecordHash {
			return res.broken(b.ID, expected, b.RecordHash)
		}

		prev = b.RecordHash
		res.Length++
		res.FinalHash = prev
		res.lastID = b.ID
	}
	return res
}

func (r Result) broken(id int64, expected, actual string) Result {
	r.OK = false
	r.BrokenAt = id
	r.Expected = expected
	r.Actual = actual
	return r
}
