// Package archive writes each loaded batch to S3 as a JSON document.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/domain"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores batches under {prefix}/YYYY/MM/DD/{run_id}.json.
type S3Archive struct {
	client objectPutter
	bucket string
	prefix string
}

// batch is the JSON document stored per run.
type batch struct {
	RunID      string              `json:"run_id"`
	ArchivedAt time.Time           `json:"archived_at"`
	RowCount   int                 `json:"row_count"`
	Rows       []domain.TrafficRow `json:"rows"`
}

// NewS3Archive loads AWS configuration for the archive bucket. Static keys
// take precedence over the default credential chain when both are set.
func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for archive: %w", err)
	}

	return newS3Archive(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func newS3Archive(client objectPutter, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a run started at the given time.
func (a *S3Archive) Key(runID string, at time.Time) string {
	return path.Join(a.prefix, at.UTC().Format("2006/01/02"), runID+".json")
}

// Archive uploads rows and returns the object key.
func (a *S3Archive) Archive(ctx context.Context, runID string, at time.Time, rows []domain.TrafficRow) (string, error) {
	data, err := json.Marshal(batch{
		RunID:      runID,
		ArchivedAt: time.Now().UTC(),
		RowCount:   len(rows),
		Rows:       rows,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling batch: %w", err)
	}

	key := a.Key(runID, at)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}
