// Package archive ships verified ledger snapshots to S3-compatible object
// storage (MinIO in development).
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/classmint/internal/server/chain"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

type Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	// Prefix is prepended to every object key.
	Prefix string
}

// S3Exporter writes each export as two objects under a fresh key prefix:
// blocks.jsonl with one block per line and checkpoint.json.
type S3Exporter struct {
	cfg    Config
	client *s3.Client
	now    func() time.Time
}

func NewS3Exporter(ctx context.Context, cfg Config) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("archive: aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Exporter{cfg: cfg, client: client, now: time.Now}, nil
}

// exportedBlock keeps the stored payload as the literal string that was
// hashed.
type exportedBlock struct {
	ID         int64  `json:"id"`
	TxID       *int64 `json:"tx_id"`
	PrevHash   string `json:"prev_hash"`
	RecordHash string `json:"record_hash"`
	CreatedAt  int64  `json:"created_at"`
	Payload    string `json:"block_payload"`
}

type manifest struct {
	BlockID    int64  `json:"block_id"`
	Hash       string `json:"hash"`
	Length     int    `json:"length"`
	ExportedAt int64  `json:"exported_at"`
}

func (e *S3Exporter) keyPrefix() string {
	d := e.now().UTC()
	return path.Join(e.cfg.Prefix, "ledger", fmt.Sprintf("%04d/%02d/%02d", d.Year(), d.Month(), d.Day()), uuid.NewString())
}

func encodeBlocks(blocks []models.Block) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, b := range blocks {
		if err := enc.Encode(exportedBlock{
			ID:         b.ID,
			TxID:       b.TxID,
			PrevHash:   b.PrevHash,
			RecordHash: b.RecordHash,
			CreatedAt:  b.CreatedAt,
			Payload:    string(b.Payload),
		}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Export uploads blocks and the checkpoint they end at and returns the
// s3:// location of the export.
func (e *S3Exporter) Export(ctx context.Context, blocks []models.Block, cp chain.Checkpoint) (string, error) {
	prefix := e.keyPrefix()

	body, err := encodeBlocks(blocks)
	if err != nil {
		return "", fmt.Errorf("archive: encode blocks: %w", err)
	}
	cpBody, err := json.Marshal(manifest{
		BlockID:    cp.BlockID,
		Hash:       cp.Hash,
		Length:     len(blocks),
		ExportedAt: e.now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("archive: encode checkpoint: %w", err)
	}

	if err := e.put(ctx, path.Join(prefix, "blocks.jsonl"), "application/x-ndjson", body); err != nil {
		return "", err
	}
	// The checkpoint goes last so a listed checkpoint implies complete blocks.
	if err := e.put(ctx, path.Join(prefix, "checkpoint.json"), "application/json", cpBody); err != nil {
		return "", err
	}

	return "s3://" + e.cfg.Bucket + "/" + prefix, nil
}

func (e *S3Exporter) put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := putObject(e.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}
