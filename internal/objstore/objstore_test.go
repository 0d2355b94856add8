package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutGet(t *testing.T) {
	ctx := context.Background()
	b, err := NewLocal(filepath.Join(t.TempDir(), "bucket"))
	require.NoError(t, err)

	require.NoError(t, b.Put(ctx, "version.txt", strings.NewReader("3"), "text/plain"))
	require.NoError(t, b.Put(ctx, "version.txt", strings.NewReader("4"), "text/plain"))

	rc, err := b.Get(ctx, "version.txt")
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "4", string(data))
}

func TestLocal_NestedKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)

	require.NoError(t, b.Put(ctx, "2024/cache.json", strings.NewReader("{}"), "application/json"))
	assert.FileExists(t, filepath.Join(dir, "2024", "cache.json"))

	entries, err := os.ReadDir(filepath.Join(dir, "2024"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestLocal_NotFound(t *testing.T) {
	b, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_RejectsEscapingKey(t *testing.T) {
	b, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	err = b.Put(context.Background(), "../escape", strings.NewReader("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal key")
}

func TestLocal_Name(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)
	assert.Equal(t, "file://"+dir, b.Name())
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Options{})
	require.Error(t, err)
}

func TestS3_KeyPrefix(t *testing.T) {
	b := &S3{opts: S3Options{Bucket: "cny-realestate-data", Prefix: "prod/"}}
	assert.Equal(t, "prod/version.txt", b.key("version.txt"))
	assert.Equal(t, "s3://cny-realestate-data/prod/", b.Name())
}
