package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/huwany1/KeShang/internal/logger"
	"github.com/huwany1/KeShang/internal/utils"
)

// ObjectStore is the gateway to the bucket holding uploaded course files.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Close() error
}

type objectStore struct {
	log       *logger.Logger
	client    *gcs.Client
	bucket    string
	projectID string
}

func NewObjectStore(log *logger.Logger) (ObjectStore, error) {
	if log == nil {
		return nil, fmt.Errorf("objectstore: logger required")
	}
	serviceLog := log.With("service", "ObjectStore")

	bucket := strings.TrimSpace(utils.GetEnv("OBJECT_BUCKET_NAME", "", log))
	if bucket == "" {
		return nil, fmt.Errorf("objectstore: missing env var OBJECT_BUCKET_NAME")
	}
	projectID := strings.TrimSpace(utils.GetEnv("GCP_PROJECT_ID", "", log))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := newStorageClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"bucket", bucket,
		"emulator_host", os.Getenv("STORAGE_EMULATOR_HOST"),
	)

	return &objectStore{
		log:       serviceLog,
		client:    client,
		bucket:    bucket,
		projectID: projectID,
	}, nil
}

func newStorageClient(ctx context.Context) (*gcs.Client, error) {
	emulator := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST"))
	if emulator != "" {
		endpoint := emulator
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "http://" + endpoint
		}
		opts := []option.ClientOption{
			option.WithoutAuthentication(),
			option.WithEndpoint(strings.TrimRight(endpoint, "/") + "/storage/v1/"),
		}
		return gcs.NewClient(ctx, opts...)
	}
	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	return gcs.NewClient(ctx, opts...)
}

// EnsureBucket creates the configured bucket when it does not exist yet.
// Creation races between workers are tolerated: an "already exists" conflict
// from the API counts as success.
func (s *objectStore) EnsureBucket(ctx context.Context) error {
	bkt := s.client.Bucket(s.bucket)
	_, err := bkt.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return fmt.Errorf("objectstore: bucket attrs: %w", err)
	}
	if createErr := bkt.Create(ctx, s.projectID, nil); createErr != nil {
		var apiErr *googleapi.Error
		if errors.As(createErr, &apiErr) && apiErr.Code == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("objectstore: create bucket %q: %w", s.bucket, createErr)
	}
	s.log.Info("Bucket created", "bucket", s.bucket)
	return nil
}

func (s *objectStore) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("objectstore: open %q: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %q: %w", key, err)
	}
	return data, nil
}

func (s *objectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("objectstore: write %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("objectstore: commit %q: %w", key, err)
	}
	return nil
}

func (s *objectStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
