package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_CanonicalLayout(t *testing.T) {
	txID := int64(3)
	b, err := Encode(Payload{
		TxID:      &txID,
		Timestamp: 1700000000,
		PrevHash:  "ab",
		ClaimData: &ClaimData{Claimer: "s001", Amount: 500, TokenID: 9, Description: "quiz <1> & more"},
	})
	require.NoError(t, err)

	want := `{"tx_id":3,"timestamp":1700000000,"prev_hash":"ab","claim_data":{"claimer":"s001","amount":500,"token_id":9,"description":"quiz <1> & more"}}`
	assert.Equal(t, want, string(b))
}

func TestEncode_NonClaimBlock(t *testing.T) {
	b, err := Encode(Payload{Timestamp: 5})
	require.NoError(t, err)
	assert.Equal(t, `{"tx_id":null,"timestamp":5,"prev_hash":"","claim_data":null}`, string(b))
}

func TestDecode_RoundTrip(t *testing.T) {
	txID := int64(1)
	in := Payload{TxID: &txID, Timestamp: 10, PrevHash: "p", ClaimData: &ClaimData{Claimer: "c", Amount: 1, TokenID: 2}}
	b, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestHash_MatchesDefinition(t *testing.T) {
	payload := []byte(`{"tx_id":1}`)
	sum := sha256.Sum256([]byte("prev" + `{"tx_id":1}` + "1700000000"))

	assert.Equal(t, hex.EncodeToString(sum[:]), Hash("prev", payload, 1700000000))
	assert.NotEqual(t, Hash("prev", payload, 1700000000), Hash("prev", payload, 1700000001))
	assert.NotEqual(t, Hash("", payload, 1), Hash("x", payload, 1))
}
