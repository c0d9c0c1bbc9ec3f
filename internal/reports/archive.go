package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/careconnect-ai/platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Archiver.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver keeps a copy of every rendered report document in S3 so the
// record survives independent of the database.
type Archiver struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewArchiver creates an Archiver. If bucket is empty, all operations are
// no-ops.
func NewArchiver(s3Client S3API, bucket string, logger *logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.bucket != "" && a.s3Client != nil
}

// ArchiveDocument writes the rendered document to S3 keyed by report date
// and id.
func (a *Archiver) ArchiveDocument(ctx context.Context, report Report, document []byte) error {
	if !a.Enabled() {
		return nil
	}

	date := report.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	key := fmt.Sprintf("reports/v1/by-date/%d/%02d/%02d/%s.html",
		date.Year(), date.Month(), date.Day(), report.ID)

	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(document),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("reports: s3 put %s: %w", key, err)
	}

	a.logger.Info("report document archived", "report_id", report.ID, "s3_key", key)
	return nil
}
