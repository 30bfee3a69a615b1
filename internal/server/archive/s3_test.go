package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/classmint/internal/server/chain"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

type putCall struct {
	key, contentType, body string
}

func stubPut(t *testing.T, fail string) *[]putCall {
	t.Helper()
	var calls []putCall
	orig := putObject
	putObject = func(_ *s3.Client, _ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		key := aws.ToString(in.Key)
		if fail != "" && strings.HasSuffix(key, fail) {
			return nil, errors.New("access denied")
		}
		b, err := io.ReadAll(in.Body)
		require.NoError(t, err)
		calls = append(calls, putCall{key: key, contentType: aws.ToString(in.ContentType), body: string(b)})
		return &s3.PutObjectOutput{}, nil
	}
	t.Cleanup(func() { putObject = orig })
	return &calls
}

func newTestExporter(t *testing.T) *S3Exporter {
	t.Helper()
	e, err := NewS3Exporter(context.Background(), Config{
		Bucket: "ledger", Region: "us-east-1", BaseEndpoint: "http://localhost:9000",
		AccessKey: "minio", SecretKey: "minio123", Prefix: "classmint",
	})
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC) }
	return e
}

func TestNewS3Exporter_RequiresBucket(t *testing.T) {
	_, err := NewS3Exporter(context.Background(), Config{})
	require.Error(t, err)
}

func TestNewS3Exporter_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}
	defer func() { loadDefaultAWSConfig = orig }()

	_, err := NewS3Exporter(context.Background(), Config{Bucket: "b"})
	require.ErrorContains(t, err, "no region")
}

func TestExport_WritesBlocksThenCheckpoint(t *testing.T) {
	calls := stubPut(t, "")
	e := newTestExporter(t)

	tx := int64(4)
	blocks := []models.Block{
		{ID: 1, TxID: &tx, RecordHash: "h1", CreatedAt: 100, Payload: []byte(`{"tx_id":4,"claim_data":{"description":"<b>"}}`)},
		{ID: 2, PrevHash: "h1", RecordHash: "h2", CreatedAt: 101, Payload: []byte(`{}`)},
	}

	loc, err := e.Export(context.Background(), blocks, chain.Checkpoint{BlockID: 2, Hash: "h2"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, "s3://ledger/classmint/ledger/2026/03/07/"), loc)

	require.Len(t, *calls, 2)
	blocksCall, cpCall := (*calls)[0], (*calls)[1]
	assert.True(t, strings.HasSuffix(blocksCall.key, "/blocks.jsonl"))
	assert.Equal(t, "application/x-ndjson", blocksCall.contentType)
	assert.True(t, strings.HasSuffix(cpCall.key, "/checkpoint.json"))

	lines := strings.Split(strings.TrimSpace(blocksCall.body), "\n")
	require.Len(t, lines, 2)
	var first exportedBlock
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, string(blocks[0].Payload), first.Payload, "payload bytes survive unchanged")
	assert.Equal(t, int64(4), *first.TxID)

	var m manifest
	require.NoError(t, json.Unmarshal([]byte(cpCall.body), &m))
	assert.Equal(t, manifest{BlockID: 2, Hash: "h2", Length: 2, ExportedAt: e.now().Unix()}, m)
}

func TestExport_PutError(t *testing.T) {
	calls := stubPut(t, "blocks.jsonl")
	e := newTestExporter(t)

	_, err := e.Export(context.Background(), nil, chain.Checkpoint{})
	require.ErrorContains(t, err, "access denied")
	assert.Empty(t, *calls, "no checkpoint without blocks")
}
