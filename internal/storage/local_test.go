package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAdapter(t *testing.T) {
	adapter, err := NewLocalAdapter(t.TempDir())
	require.NoError(t, err)
	defer adapter.Close()

	ctx := context.Background()
	key := UploadKey("c0ffee")
	data := []byte("%PDF-1.4 test")

	t.Run("Put", func(t *testing.T) {
		require.NoError(t, adapter.Put(ctx, key, bytes.NewReader(data)))
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := adapter.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = adapter.Exists(ctx, "uploads/missing.pdf")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Get", func(t *testing.T) {
		reader, err := adapter.Get(ctx, key)
		require.NoError(t, err)
		defer reader.Close()

		got, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, adapter.Put(ctx, key, bytes.NewReader([]byte("v2"))))
		reader, err := adapter.Get(ctx, key)
		require.NoError(t, err)
		defer reader.Close()
		got, _ := io.ReadAll(reader)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, adapter.Put(ctx, "uploads/second.pdf", bytes.NewReader([]byte("x"))))
		require.NoError(t, adapter.Put(ctx, "other/file.txt", bytes.NewReader([]byte("x"))))

		keys, err := adapter.List(ctx, "uploads/")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"uploads/c0ffee.pdf", "uploads/second.pdf"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, adapter.Delete(ctx, key))
		exists, err := adapter.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)

		// deleting twice is fine
		require.NoError(t, adapter.Delete(ctx, key))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := adapter.Get(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLocalAdapterRejectsEscapingKeys(t *testing.T) {
	adapter, err := NewLocalAdapter(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../outside.pdf", "uploads/../../x", "/etc/passwd"} {
		err := adapter.Put(context.Background(), key, bytes.NewReader(nil))
		assert.Error(t, err, key)
	}
}

func TestNewAdapter(t *testing.T) {
	adapter, err := NewAdapter(Config{Adapter: AdapterLocal, Local: LocalConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalAdapter{}, adapter)

	_, err = NewAdapter(Config{Adapter: "ftp"})
	assert.Error(t, err)
}

func TestNewS3Adapter(t *testing.T) {
	adapter, err := NewS3Adapter(S3Options{
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "us-east-1",
		Bucket:          "documents",
		Prefix:          "viewer/",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, "viewer/uploads/a.pdf", *adapter.key(UploadKey("a")))
}

func TestUploadKey(t *testing.T) {
	assert.Equal(t, "uploads/abc.pdf", UploadKey("abc"))
}
