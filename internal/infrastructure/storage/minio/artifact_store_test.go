package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/turtacn/SeqQuant/pkg/errors"
)

func newTestStore() (*MockMinIOAPI, *ArtifactStore) {
	api := new(MockMinIOAPI)
	return api, NewArtifactStore(NewMinIOClientFromAPI(api, "models", "", nil), nil)
}

func TestArtifactStore_Open(t *testing.T) {
	api, store := newTestStore()
	api.On("OpenObject", mock.Anything, "models", "scaler.json").
		Return(io.NopCloser(bytes.NewReader([]byte(`{"kind":"minmax"}`))), nil)

	rc, err := store.Open(context.Background(), "scaler.json")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"minmax"}`, string(data))
}

func TestArtifactStore_Open_NotFound(t *testing.T) {
	api, store := newTestStore()
	api.On("OpenObject", mock.Anything, "models", "missing.json").
		Return(nil, minio.ErrorResponse{Code: "NoSuchKey"})

	_, err := store.Open(context.Background(), "missing.json")
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "missing.json")
}

func TestArtifactStore_Open_OtherError(t *testing.T) {
	api, store := newTestStore()
	api.On("OpenObject", mock.Anything, "models", "x").Return(nil, errors.New("boom"))

	_, err := store.Open(context.Background(), "x")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func TestArtifactStore_EmptyKey(t *testing.T) {
	_, store := newTestStore()
	_, err := store.Open(context.Background(), " ")
	assert.Equal(t, ErrInvalidKey, err)
	_, err = store.PutBytes(context.Background(), "", nil)
	assert.Equal(t, ErrInvalidKey, err)
}

type slowReader struct {
	data  *bytes.Reader
	delay time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	time.Sleep(r.delay)
	return r.data.Read(p)
}

func (r *slowReader) Close() error { return nil }

func TestArtifactStore_Fetch_SharesConcurrentDownloads(t *testing.T) {
	api, store := newTestStore()
	var opens int32
	api.On("OpenObject", mock.Anything, "models", "weights.json").
		Return(&slowReader{data: bytes.NewReader([]byte("payload")), delay: 50 * time.Millisecond}, nil).
		Run(func(mock.Arguments) { atomic.AddInt32(&opens, 1) }).
		Once()

	var wg sync.WaitGroup
	results := make([][]byte, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := store.Fetch(context.Background(), "weights.json")
			assert.NoError(t, err)
			results[i] = data
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
	for _, r := range results {
		assert.Equal(t, "payload", string(r))
	}
}

func TestArtifactStore_PutBytes(t *testing.T) {
	api, store := newTestStore()
	api.On("PutObject", mock.Anything, "models", "aptamer.json", mock.Anything, int64(3),
		minio.PutObjectOptions{ContentType: "application/json"}).
		Return(minio.UploadInfo{Key: "aptamer.json", Size: 3, ETag: "abc"}, nil)

	info, err := store.PutBytes(context.Background(), "aptamer.json", []byte("{ }"))
	require.NoError(t, err)
	assert.Equal(t, "abc", info.ETag)
	assert.Equal(t, int64(3), info.Size)
}

func TestArtifactStore_Stat(t *testing.T) {
	api, store := newTestStore()
	api.On("StatObject", mock.Anything, "models", "a", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{Size: 10, ETag: "e"}, nil)
	api.On("StatObject", mock.Anything, "models", "b", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

	info, err := store.Stat(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size)

	_, err = store.Stat(context.Background(), "b")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestArtifactStore_List(t *testing.T) {
	api, store := newTestStore()
	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "models/b.json", Size: 2}
	ch <- minio.ObjectInfo{Key: "models/a.json", Size: 1}
	close(ch)
	api.On("ListObjects", mock.Anything, "models", minio.ListObjectsOptions{Prefix: "models/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))

	got, err := store.List(context.Background(), "models/")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "models/a.json", got[0].Key)
}

func TestArtifactStore_Delete(t *testing.T) {
	api, store := newTestStore()
	api.On("RemoveObject", mock.Anything, "models", "old.json", minio.RemoveObjectOptions{}).Return(nil)
	assert.NoError(t, store.Delete(context.Background(), "old.json"))
	api.AssertExpectations(t)
}
