package minio

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "artifact not found")
	ErrInvalidKey     = errors.New(errors.ErrCodeValidation, "artifact key must not be empty")
)

// ArtifactInfo describes one stored artifact.
type ArtifactInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
}

// ArtifactStore reads and writes model artifacts in the models bucket.
// Concurrent Fetch calls for the same key share one download.
type ArtifactStore struct {
	client *MinIOClient
	logger logging.Logger
	group  singleflight.Group
}

func NewArtifactStore(client *MinIOClient, log logging.Logger) *ArtifactStore {
	return &ArtifactStore{client: client, logger: logging.OrNop(log)}
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

// Open streams the artifact at key. A missing object yields ErrObjectNotFound.
func (s *ArtifactStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrInvalidKey
	}
	api, err := s.client.API()
	if err != nil {
		return nil, err
	}
	rc, err := api.OpenObject(ctx, s.client.Bucket(), key)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to open artifact").WithDetail(key)
	}
	return rc, nil
}

// Fetch reads the whole artifact at key.
func (s *ArtifactStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		rc, err := s.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read artifact").WithDetail(key)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Shared artifact download", logging.String("key", key))
	}
	return append([]byte(nil), v.([]byte)...), nil
}

// Put uploads r as key. size may be -1 when unknown.
func (s *ArtifactStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*ArtifactInfo, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrInvalidKey
	}
	api, err := s.client.API()
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/json"
	}
	info, err := api.PutObject(ctx, s.client.Bucket(), key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to upload artifact").WithDetail(key)
	}
	s.logger.Info("Uploaded artifact", logging.String("key", key), logging.Int64("size", info.Size))
	return &ArtifactInfo{Key: key, Size: info.Size, ETag: info.ETag, LastModified: info.LastModified}, nil
}

// PutBytes uploads data as key.
func (s *ArtifactStore) PutBytes(ctx context.Context, key string, data []byte) (*ArtifactInfo, error) {
	return s.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "")
}

// Stat returns the metadata of key.
func (s *ArtifactStore) Stat(ctx context.Context, key string) (*ArtifactInfo, error) {
	api, err := s.client.API()
	if err != nil {
		return nil, err
	}
	info, err := api.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat artifact").WithDetail(key)
	}
	return &ArtifactInfo{Key: key, Size: info.Size, ETag: info.ETag, LastModified: info.LastModified}, nil
}

// List returns artifacts under prefix sorted by key.
func (s *ArtifactStore) List(ctx context.Context, prefix string) ([]ArtifactInfo, error) {
	api, err := s.client.API()
	if err != nil {
		return nil, err
	}
	var out []ArtifactInfo
	for obj := range api.ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list artifacts")
		}
		out = append(out, ArtifactInfo{Key: obj.Key, Size: obj.Size, ETag: obj.ETag, LastModified: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete removes key.
func (s *ArtifactStore) Delete(ctx context.Context, key string) error {
	api, err := s.client.API()
	if err != nil {
		return err
	}
	if err := api.RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete artifact").WithDetail(key)
	}
	return nil
}
