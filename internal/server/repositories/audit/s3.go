package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/penter405/brainsync/internal/server/models"
)

// PutObjectAPI is the part of *s3.Client used by the mirror.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the object storage client. Empty credentials fall
// back to the default AWS credential chain.
type S3Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

func NewS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
			so.UsePathStyle = true
		}
	}), nil
}

// S3Repository writes every entry as its own immutable JSON object.
type S3Repository struct {
	client PutObjectAPI
	bucket string
}

func NewS3Repository(client PutObjectAPI, bucket string) *S3Repository {
	return &S3Repository{client: client, bucket: bucket}
}

type s3Entry struct {
	ID           string `json:"id"`
	IdentityID   string `json:"identityId"`
	Action       string `json:"action"`
	Status       string `json:"status"`
	FileID       string `json:"fileId,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	IP           string `json:"ip"`
	Timestamp    string `json:"timestamp"`
}

// ObjectKey returns audit/YYYY/MM/DD/<id>.json for the entry's UTC day.
func ObjectKey(e *models.AuditEntry) string {
	d := e.Timestamp.UTC()
	return fmt.Sprintf("audit/%04d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), e.ID)
}

func (r *S3Repository) Append(ctx context.Context, e *models.AuditEntry) error {
	body, err := json.Marshal(s3Entry{
		ID:           e.ID,
		IdentityID:   e.IdentityID,
		Action:       string(e.Action),
		Status:       string(e.Status),
		FileID:       e.FileID,
		ErrorMessage: e.ErrorMessage,
		IP:           e.IP,
		Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(ObjectKey(e)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}

	return nil
}
