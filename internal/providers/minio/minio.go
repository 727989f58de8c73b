package minio

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"chatserver/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioProvider is the blob store behind message attachments. Store
// writes the bytes and hands back a public URL the client embeds as
// imageUrl.
type MinioProvider struct {
	client    *minio.Client
	bucket    string
	maxSize   int64
	logger    *zap.Logger
	publicURL string
}

var extByContentType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"audio/mpeg": ".mp3",
	"audio/ogg":  ".ogg",
	"audio/wav":  ".wav",
	"audio/webm": ".webm",
}

func NewMinioProvider(cfg *config.Config, logger *zap.Logger) (*MinioProvider, error) {
	minioURL := cfg.MinioURL
	if strings.HasPrefix(minioURL, "http://") || strings.HasPrefix(minioURL, "https://") {
		u, err := url.Parse(minioURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse minio URL: %w", err)
		}
		minioURL = u.Host
	}

	client, err := minio.New(minioURL, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioUser, cfg.MinioPassword, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	publicURL := cfg.MinioPublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://%s/%s", minioURL, cfg.MinioBucket)
	}

	provider := &MinioProvider{
		client:    client,
		bucket:    cfg.MinioBucket,
		maxSize:   cfg.MaxFileSize,
		logger:    logger,
		publicURL: publicURL,
	}

	if err := provider.ensureBucket(); err != nil {
		return nil, err
	}

	logger.Info("MinIO ready",
		zap.String("endpoint", minioURL),
		zap.String("bucket", cfg.MinioBucket),
	)

	return provider, nil
}

func (m *MinioProvider) ensureBucket() error {
	ctx := context.Background()

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	m.logger.Info("Created bucket", zap.String("bucket", m.bucket))
	return nil
}

// Store uploads a blob under "<kind>/<uuid><ext>" and returns its
// public URL.
func (m *MinioProvider) Store(ctx context.Context, data []byte, kind string) (string, error) {
	if int64(len(data)) > m.maxSize {
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", m.maxSize)
	}
	if kind == "" {
		kind = "file"
	}

	contentType := http.DetectContentType(data)
	objectName := fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), extByContentType[contentType])

	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store object: %w", err)
	}

	m.logger.Debug("Stored blob",
		zap.String("object", objectName),
		zap.Int("size", len(data)),
		zap.String("content_type", contentType),
	)

	return fmt.Sprintf("%s/%s", m.publicURL, objectName), nil
}
