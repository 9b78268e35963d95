package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalBlobStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalBlobStore(dir, zap.NewNop())
	ctx := context.Background()

	ref, err := store.Put(ctx, "receipts/p1/e1/abc.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "receipts/p1/e1/abc.pdf", ref)

	_, err = os.Stat(filepath.Join(dir, "receipts", "p1", "e1", "abc.pdf"))
	require.NoError(t, err)

	content, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), content)

	require.NoError(t, store.Delete(ctx, ref))
	require.NoError(t, store.Delete(ctx, ref), "deleting twice is harmless")

	_, err = store.Get(ctx, ref)
	assert.Error(t, err)
}

func TestLocalBlobStore_RejectsEscapingKeys(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	for _, key := range []string{"", "  ", "../outside.txt", "receipts/../../outside.txt", "."} {
		t.Run(key, func(t *testing.T) {
			_, err := store.Put(ctx, key, []byte("x"), "")
			assert.Error(t, err)
		})
	}
}

func TestNewMinioClient(t *testing.T) {
	client, err := NewMinioClient(MinioConfig{Endpoint: "localhost:9000", AccessKey: "key", SecretKey: "secret", Bucket: "receipts"})
	require.NoError(t, err)

	store := NewMinioBlobStore(client, "receipts", zap.NewNop())
	assert.Equal(t, "receipts", store.bucket)

	_, err = NewMinioClient(MinioConfig{Endpoint: "http://localhost:9000/path"})
	assert.Error(t, err)
}
