package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/recipe-app/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	objects   map[string][]byte
	deleteErr error
}

func (f *fakeBackend) EnsureBucket(ctx context.Context) error { return nil }

func (f *fakeBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBackend) Get(ctx context.Context, key string) (*Object, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &Object{Body: io.NopCloser(bytes.NewReader(data)), Size: int64(len(data))}, nil
}

func (f *fakeBackend) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBackend) Bucket() string { return "recipes" }

func TestStorageRoundTrip(t *testing.T) {
	backend := &fakeBackend{objects: map[string][]byte{}}
	s := NewStorage(backend, nil)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "uploads/recipe/1/a.png", bytes.NewReader([]byte("png")), 3, "image/png"))

	obj, err := s.Get(ctx, "uploads/recipe/1/a.png")
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "recipes", s.Bucket())
}

func TestStorageDeleteMissingIsNotAnError(t *testing.T) {
	s := NewStorage(&fakeBackend{objects: map[string][]byte{}}, nil)
	require.NoError(t, s.Delete(context.Background(), "nope"))
}

func TestStorageDeletePropagatesBackendFailure(t *testing.T) {
	boom := errors.New("boom")
	s := NewStorage(&fakeBackend{objects: map[string][]byte{}, deleteErr: boom}, nil)
	require.ErrorIs(t, s.Delete(context.Background(), "key"), boom)
}

func TestNewBackendRejectsUnknown(t *testing.T) {
	_, err := NewBackend(context.Background(), config.StorageConfig{Backend: "ftp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestNewMinioClientValidatesConfig(t *testing.T) {
	_, err := NewMinioClient(config.MinioConfig{})
	require.Error(t, err)

	_, err = NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000"})
	require.Error(t, err)

	_, err = NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.Error(t, err)

	client, err := NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "recipes"})
	require.NoError(t, err)
	assert.Equal(t, "recipes", client.Bucket())
}

func TestNewBackendWrapsConstructorError(t *testing.T) {
	_, err := NewBackend(context.Background(), config.StorageConfig{Backend: "gcs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gcs bucket is required")
}
