package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/dataops-tools/model-diff/cmd/compressors"
)

// Publisher uploads a rendered report artifact to S3-compatible object
// storage, optionally compressed.
type Publisher struct {
	config   PublishConfig
	uploader *s3manager.Uploader
	logger   *slog.Logger
	dryRun   bool
}

// NewPublisher builds an S3 session for the configured endpoint.
func NewPublisher(config PublishConfig, dryRun bool, logger *slog.Logger) (*Publisher, error) {
	sess, err := session.NewSession(&aws.Config{
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		Credentials:      credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}
	return &Publisher{
		config:   config,
		uploader: s3manager.NewUploader(sess),
		logger:   logger,
		dryRun:   dryRun,
	}, nil
}

// expandKey substitutes run metadata placeholders in the configured object
// key template: {model}, {base}, {head}, {mode}.
func expandKey(template, model, base, head, mode string) string {
	r := strings.NewReplacer(
		"{model}", model,
		"{base}", sanitizeIdent(base),
		"{head}", sanitizeIdent(head),
		"{mode}", strings.ToLower(mode),
	)
	return r.Replace(template)
}

// Publish compresses (per config) and uploads the artifact under the
// expanded key plus format and compression extensions.
func (p *Publisher) Publish(ctx context.Context, data []byte, model, base, head, mode, formatExt, mimeType string) error {
	compressor, err := compressors.GetCompressor(p.config.Compression, p.config.CompressionLevel)
	if err != nil {
		return err
	}
	compressed, err := compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("failed to compress report artifact: %w", err)
	}

	key := expandKey(p.config.Key, model, base, head, mode) + formatExt + compressor.Extension()

	if p.dryRun {
		p.logger.Info(fmt.Sprintf("Dry run mode: skipping upload of s3://%s/%s (%d bytes)", p.config.Bucket, key, len(compressed)))
		return nil
	}

	p.logger.Info(fmt.Sprintf("Uploading report to s3://%s/%s", p.config.Bucket, key))
	contentType := mimeType
	if compressor.Extension() != "" {
		contentType = "application/octet-stream"
	}
	result, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(p.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("S3 upload failed: %w", err)
	}
	if result != nil {
		p.logger.Debug(fmt.Sprintf("Successfully uploaded report: %s", result.Location))
	}
	return nil
}
