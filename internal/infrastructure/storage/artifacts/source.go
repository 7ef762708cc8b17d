// Package artifacts resolves model artifacts from a local directory or an
// object store and decodes them into scalers and encoders.
package artifacts

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/SeqQuant/internal/intelligence/catalog"
	"github.com/turtacn/SeqQuant/internal/intelligence/descriptor"
	"github.com/turtacn/SeqQuant/internal/intelligence/latent"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// Source opens artifacts by key. The MinIO ArtifactStore satisfies it.
type Source interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// FileSource reads artifacts from the local filesystem. Relative keys are
// resolved against Root.
type FileSource struct {
	Root string
}

func (f FileSource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "artifact open cancelled")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New(errors.ErrCodeValidation, "artifact key must not be empty")
	}
	path := key
	if !filepath.IsAbs(path) && f.Root != "" {
		path = filepath.Join(f.Root, path)
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotFound, "artifact not found").WithDetail(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to open artifact").WithDetail(path)
	}
	return file, nil
}

// LoadScaler decodes the scaler at key. An empty key selects the reference
// scaler fitted over the built-in catalog.
func LoadScaler(ctx context.Context, src Source, key string) (descriptor.Scaler, error) {
	if key == "" {
		return catalog.ReferenceScaler()
	}
	rc, err := src.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return descriptor.LoadScaler(rc)
}

// LoadDenseEncoder decodes dense encoder weights at key.
func LoadDenseEncoder(ctx context.Context, src Source, key string) (*latent.DenseEncoder, error) {
	rc, err := src.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return latent.LoadDenseEncoder(rc)
}

// DenseLoader defers LoadDenseEncoder until the handle is first used.
func DenseLoader(src Source, key string) latent.Loader {
	return func(ctx context.Context) (latent.Encoder, error) {
		return LoadDenseEncoder(ctx, src, key)
	}
}
