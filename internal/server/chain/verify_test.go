package chain

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChain links n claim blocks starting from genesis.
func buildChain(t *testing.T, n int) []models.Block {
	t.Helper()
	var blocks []models.Block
	prev := ""
	for i := 1; i <= n; i++ {
		txID := int64(i)
		ts := int64(1700000000 + i)
		payload, err := Encode(Payload{TxID: &txID, Timestamp: ts, PrevHash: prev,
			ClaimData: &ClaimData{Claimer: "s001", Amount: 100, TokenID: 1}})
		require.NoError(t, err)

		h := Hash(prev, payload, ts)
		blocks = append(blocks, models.Block{ID: int64(i), TxID: &txID, PrevHash: prev, RecordHash: h, CreatedAt: ts, Payload: payload})
		prev = h
	}
	return blocks
}

func TestVerify_EmptyChain(t *testing.T) {
	res := Verify(nil, Checkpoint{}, 0)
	assert.True(t, res.OK)
	assert.Equal(t, int64(0), res.Length)
	assert.Equal(t, "", res.FinalHash)
	assert.NoError(t, res.Err())
	assert.Equal(t, Checkpoint{}, res.Checkpoint())
}

func TestVerify_IntactChain(t *testing.T) {
	blocks := buildChain(t, 5)

	res := Verify(blocks, Checkpoint{}, 0)
	require.True(t, res.OK)
	assert.Equal(t, int64(5), res.Length)
	assert.Equal(t, blocks[4].RecordHash, res.FinalHash)
	assert.Equal(t, Checkpoint{BlockID: 5, Hash: blocks[4].RecordHash}, res.Checkpoint())
	assert.Empty(t, res.Malformed)
}

func TestVerify_TamperedRecordHash(t *testing.T) {
	blocks := buildChain(t, 5)
	original := blocks[2].RecordHash
	blocks[2].RecordHash = "deadbeef"

	res := Verify(blocks, Checkpoint{}, 0)
	require.False(t, res.OK)
	assert.Equal(t, int64(3), res.BrokenAt)
	assert.Equal(t, original, res.Expected)
	assert.Equal(t, "deadbeef", res.Actual)
	assert.Equal(t, int64(2), res.Length)

	var ie *common.IntegrityError
	require.True(t, errors.As(res.Err(), &ie))
	assert.Equal(t, int64(3), ie.BlockID)
	assert.ErrorIs(t, res.Err(), common.ErrLedgerIntegrityBroken)
}

func TestVerify_TamperedPayload(t *testing.T) {
	blocks := buildChain(t, 4)
	blocks[1].Payload = []byte(string(blocks[1].Payload[:len(blocks[1].Payload)-2]) + "9}")

	res := Verify(blocks, Checkpoint{}, 0)
	require.False(t, res.OK)
	assert.Equal(t, int64(2), res.BrokenAt)
	assert.Equal(t, blocks[1].RecordHash, res.Actual)
}

func TestVerify_TamperedCreatedAt(t *testing.T) {
	blocks := buildChain(t, 3)
	blocks[0].CreatedAt++

	res := Verify(blocks, Checkpoint{}, 0)
	require.False(t, res.OK)
	assert.Equal(t, int64(1), res.BrokenAt)
}

func TestVerify_BrokenPrevLink(t *testing.T) {
	blocks := buildChain(t, 3)
	blocks[2].PrevHash = "forged"

	res := Verify(blocks, Checkpoint{}, 0)
	require.False(t, res.OK)
	assert.Equal(t, int64(3), res.BrokenAt)
	assert.Equal(t, blocks[1].RecordHash, res.Expected)
	assert.Equal(t, "forged", res.Actual)
}

func TestVerify_MalformedPayloadStillHashedRaw(t *testing.T) {
	raw := []byte(`legacy {tx_id: 1}`)
	ts := int64(1600000000)
	h := Hash("", raw, ts)
	blocks := []models.Block{{ID: 1, PrevHash: "", RecordHash: h, CreatedAt: ts, Payload: raw}}

	res := Verify(blocks, Checkpoint{}, 0)
	require.True(t, res.OK, "raw bytes hash must verify")
	assert.Equal(t, []int64{1}, res.Malformed)
	assert.Equal(t, h, res.FinalHash)
}

func TestVerify_FromCheckpoint(t *testing.T) {
	blocks := buildChain(t, 6)
	cp := Checkpoint{BlockID: 4, Hash: blocks[3].RecordHash}

	res := Verify(blocks[4:], cp, 4)
	require.True(t, res.OK)
	assert.Equal(t, int64(6), res.Length)
	assert.Equal(t, blocks[5].RecordHash, res.FinalHash)

	// a wrong checkpoint hash breaks at the first block after it
	bad := Verify(blocks[4:], Checkpoint{BlockID: 4, Hash: "nope"}, 4)
	require.False(t, bad.OK)
	assert.Equal(t, int64(5), bad.BrokenAt)
}

func TestVerify_StopsAtFirstBreak(t *testing.T) {
	blocks := buildChain(t, 5)
	blocks[1].RecordHash = "x"
	blocks[3].RecordHash = "y"

	res := Verify(blocks, Checkpoint{}, 0)
	require.False(t, res.OK)
	assert.Equal(t, int64(2), res.BrokenAt)
}
