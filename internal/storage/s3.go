// internal/storage/s3.go
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chartmuseum/storage"

	"github.com/andresuchdata/replenish/internal/config"
)

// S3Client implements ObjectStorage for any S3-compatible service the sales
// exports land in (AWS, MinIO, DigitalOcean Spaces and friends).
type S3Client struct {
	backend storage.Backend
	bucket  string
}

// NewS3Client builds a client backed by chartmuseum's Amazon storage backend.
// Credentials are exported through the AWS SDK's environment variables since
// the backend reads them from there.
func NewS3Client(cfg config.ImportConfig) (*S3Client, error) {
	if err := validateImportStorage(cfg); err != nil {
		return nil, err
	}

	region := strings.TrimSpace(cfg.StorageRegion)
	if region == "" {
		region = "us-east-1"
	}

	os.Setenv("AWS_ACCESS_KEY_ID", cfg.StorageAccess)
	os.Setenv("AWS_SECRET_ACCESS_KEY", cfg.StorageSecret)
	os.Setenv("AWS_REGION", region)
	os.Setenv("AWS_DEFAULT_REGION", region)

	backend := storage.NewAmazonS3BackendWithOptions(
		cfg.StorageBucket,
		"", // keys are addressed bucket-relative
		region,
		normalizeEndpoint(cfg.StorageEndpoint, cfg.StorageUseSSL),
		"",
		&storage.AmazonS3Options{
			// MinIO and Spaces reject virtual-hosted bucket URLs.
			S3ForcePathStyle: awsBool(true),
		},
	)

	return &S3Client{backend: backend, bucket: cfg.StorageBucket}, nil
}

func validateImportStorage(cfg config.ImportConfig) error {
	var missing []string
	if cfg.StorageEndpoint == "" {
		missing = append(missing, "endpoint")
	}
	if cfg.StorageAccess == "" {
		missing = append(missing, "access key")
	}
	if cfg.StorageSecret == "" {
		missing = append(missing, "secret key")
	}
	if cfg.StorageBucket == "" {
		missing = append(missing, "bucket")
	}
	if len(missing) > 0 {
		return fmt.Errorf("import storage config incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// normalizeEndpoint ensures the endpoint carries a scheme. Bare hostnames get
// one from the SSL flag; an explicit http:// or https:// wins.
func normalizeEndpoint(endpoint string, useSSL bool) string {
	endpoint = strings.TrimSpace(endpoint)
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimPrefix(endpoint, "//")
}

// ListObjects returns the objects under prefix in the configured bucket.
func (c *S3Client) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := c.backend.ListObjects(prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", c.bucket, prefix, err)
	}

	infos := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		infos = append(infos, ObjectInfo{
			Key:  obj.Path,
			Size: int64(len(obj.Content)),
		})
	}
	return infos, nil
}

// DownloadObject fetches an object and writes it to destPath, creating parent
// directories as needed.
func (c *S3Client) DownloadObject(ctx context.Context, key, destPath string) error {
	obj, err := c.backend.GetObject(key)
	if err != nil {
		return fmt.Errorf("fetch %s/%s: %w", c.bucket, key, err)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", destPath, err)
	}
	if err := os.WriteFile(destPath, obj.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

var _ ObjectStorage = (*S3Client)(nil)

func awsBool(v bool) *bool {
	return &v
}
