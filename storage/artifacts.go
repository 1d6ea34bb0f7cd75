package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

const (
	StorageProviderLocal = "local"
	StorageProviderGCS   = "gcs"
)

// ArtifactStore keeps the raw uploaded invoice documents. Local disk is the
// default; a GCS bucket is used when STORAGE_PROVIDER=gcs. Image uploads get
// a thumbnail alongside the original (best-effort).
type ArtifactStore struct {
	provider string
	dir      string
	bucket   string
	logger   *logrus.Logger
}

func NewArtifactStore(dir string, logger *logrus.Logger) *ArtifactStore {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_PROVIDER")))
	if provider != StorageProviderGCS {
		provider = StorageProviderLocal
	}
	return &ArtifactStore{
		provider: provider,
		dir:      dir,
		bucket:   strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		logger:   logger,
	}
}

// Save stores the document and returns its object key. Keys are prefixed
// with an upload timestamp so repeated uploads of the same file never
// collide.
func (s *ArtifactStore) Save(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	key := time.Now().Format("20060102_150405") + "_" + filepath.Base(fileName)

	if err := s.write(ctx, key, data, contentType); err != nil {
		return "", err
	}

	if strings.HasPrefix(contentType, "image/") {
		if err := s.writeThumbnail(ctx, key, data); err != nil {
			// Thumbnails are cosmetic; the analysis proceeds without one.
			s.logger.WithFields(logrus.Fields{
				"module": "storage",
				"key":    key,
			}).Warn("thumbnail generation failed: " + err.Error())
		}
	}
	return key, nil
}

// Delete removes the document and its thumbnail, if any. Used when an
// analysis aborts before persistence.
func (s *ArtifactStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	thumbKey := path.Join("thumbnails", key)
	if s.provider == StorageProviderGCS {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
		_ = client.Bucket(s.bucket).Object(thumbKey).Delete(ctx)
		return client.Bucket(s.bucket).Object(key).Delete(ctx)
	}
	_ = os.Remove(filepath.Join(s.dir, thumbKey))
	return os.Remove(filepath.Join(s.dir, key))
}

func (s *ArtifactStore) write(ctx context.Context, key string, data []byte, contentType string) error {
	if s.provider == StorageProviderGCS {
		if s.bucket == "" {
			return errors.New("GCS_BUCKET is required")
		}
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		w := client.Bucket(s.bucket).Object(key).NewWriter(ctx)
		w.ContentType = contentType
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	}

	full := filepath.Join(s.dir, key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (s *ArtifactStore) writeThumbnail(ctx context.Context, key string, data []byte) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return err
	}
	return s.write(ctx, path.Join("thumbnails", key), buf.Bytes(), "image/jpeg")
}
