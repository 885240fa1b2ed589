package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("bannermaker/storage")

// MinioConfig holds the connection settings for an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Minio stores files as objects in one bucket.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to the endpoint and makes sure the bucket exists.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	m := &Minio{client: client, bucket: cfg.Bucket}
	if err := m.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Minio) startSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "minio_"+op)
	span.SetAttributes(
		attribute.String("minio.bucket", m.bucket),
		attribute.String("minio.key", name),
	)
	return ctx, span
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// EnsureBucket creates the bucket if it doesn't exist.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	ctx, span := m.startSpan(ctx, "ensure_bucket", "")
	defer span.End()

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fail(span, fmt.Errorf("failed to check bucket existence: %w", err))
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fail(span, fmt.Errorf("failed to create bucket: %w", err))
		}
	}
	return nil
}

func (m *Minio) Save(ctx context.Context, name string, data []byte, contentType string) error {
	if err := checkName(name); err != nil {
		return err
	}
	ctx, span := m.startSpan(ctx, "upload", name)
	defer span.End()
	span.SetAttributes(attribute.Int("minio.size", len(data)))

	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fail(span, fmt.Errorf("failed to upload %s: %w", name, err))
	}
	return nil
}

func (m *Minio) Load(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	ctx, span := m.startSpan(ctx, "download", name)
	defer span.End()

	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fail(span, m.mapErr(name, err))
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fail(span, m.mapErr(name, err))
	}
	return data, nil
}

func (m *Minio) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	ctx, span := m.startSpan(ctx, "delete", name)
	defer span.End()

	// RemoveObject succeeds for missing keys, so stat first to report ErrNotFound.
	if _, err := m.client.StatObject(ctx, m.bucket, name, minio.StatObjectOptions{}); err != nil {
		return fail(span, m.mapErr(name, err))
	}
	if err := m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fail(span, fmt.Errorf("failed to delete %s: %w", name, err))
	}
	return nil
}

func (m *Minio) Stat(ctx context.Context, name string) (Info, error) {
	if err := checkName(name); err != nil {
		return Info{}, err
	}
	ctx, span := m.startSpan(ctx, "stat", name)
	defer span.End()

	oi, err := m.client.StatObject(ctx, m.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		return Info{}, fail(span, m.mapErr(name, err))
	}
	return Info{
		Name:        name,
		Size:        oi.Size,
		ContentType: oi.ContentType,
		ModTime:     oi.LastModified.UTC(),
	}, nil
}

func (m *Minio) mapErr(name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fmt.Errorf("minio %s/%s: %w", m.bucket, name, err)
}
