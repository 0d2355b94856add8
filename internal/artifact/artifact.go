// Package artifact moves the warehouse database, its version marker and the
// zip cache between the local disk and the artifact bucket.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cny-realestate-etl/internal/objstore"
	"github.com/sells-group/cny-realestate-etl/internal/zipfill"
)

// Object keys in the artifact bucket.
const (
	DatabaseKey = "cny-real-estate.db.gz"
	VersionKey  = "version.txt"
)

// Artifacts ties a bucket to the local database file.
type Artifacts struct {
	bucket objstore.Bucket
	dbPath string
	log    *zap.Logger
}

// New creates an Artifacts for the database at dbPath.
func New(bucket objstore.Bucket, dbPath string) *Artifacts {
	return &Artifacts{
		bucket: bucket,
		dbPath: dbPath,
		log:    zap.L().With(zap.String("component", "artifact"), zap.String("bucket", bucket.Name())),
	}
}

// FetchResult describes what Fetch found.
type FetchResult struct {
	// Found is false when the bucket has no published database yet.
	Found   bool
	Version int
	// Compressed and Size are byte counts of the archive and database.
	Compressed int64
	Size       int64
}

// Fetch downloads the published database and version marker in parallel
// and decompresses the database over the local file. When nothing has been
// published the local file is left alone.
func (a *Artifacts) Fetch(ctx context.Context) (*FetchResult, error) {
	res := &FetchResult{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		compressed, size, err := a.fetchDatabase(gctx)
		if errors.Is(err, objstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res.Found, res.Compressed, res.Size = true, compressed, size
		return nil
	})
	g.Go(func() error {
		v, err := a.remoteVersion(gctx)
		if err != nil {
			return err
		}
		res.Version = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if res.Found {
		a.log.Info("database downloaded",
			zap.Int("version", res.Version),
			zap.Float64("compressed_mb", megabytes(res.Compressed)),
			zap.Float64("size_mb", megabytes(res.Size)),
		)
	} else {
		a.log.Info("no published database, starting fresh")
	}
	return res, nil
}

func (a *Artifacts) fetchDatabase(ctx context.Context) (int64, int64, error) {
	rc, err := a.bucket.Get(ctx, DatabaseKey)
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close() //nolint:errcheck

	counter := &countingReader{r: rc}
	zr, err := gzip.NewReader(counter)
	if err != nil {
		return 0, 0, eris.Wrap(err, "artifact: open gzip")
	}
	defer zr.Close() //nolint:errcheck

	size, err := writeAtomic(a.dbPath, zr)
	if err != nil {
		return 0, 0, eris.Wrap(err, "artifact: decompress database")
	}
	// Stale journal files belong to the replaced database.
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(a.dbPath + suffix)
	}
	return counter.n, size, nil
}

// Publish uploads the gzipped database and then the incremented version
// marker. The store must be closed first so SQLite has checkpointed its
// WAL into the main file.
func (a *Artifacts) Publish(ctx context.Context) (int, error) {
	src, err := os.Open(a.dbPath)
	if err != nil {
		return 0, eris.Wrap(err, "artifact: open database")
	}
	defer src.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(filepath.Dir(a.dbPath), ".publish-*.gz")
	if err != nil {
		return 0, eris.Wrap(err, "artifact: temp archive")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	defer tmp.Close()           //nolint:errcheck

	zw, err := gzip.NewWriterLevel(tmp, gzip.BestCompression)
	if err != nil {
		return 0, eris.Wrap(err, "artifact: gzip writer")
	}
	size, err := io.Copy(zw, src)
	if err != nil {
		return 0, eris.Wrap(err, "artifact: compress database")
	}
	if err := zw.Close(); err != nil {
		return 0, eris.Wrap(err, "artifact: finish gzip")
	}
	compressed, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, eris.Wrap(err, "artifact: archive size")
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return 0, eris.Wrap(err, "artifact: rewind archive")
	}
	if err := a.bucket.Put(ctx, DatabaseKey, tmp, "application/gzip"); err != nil {
		return 0, eris.Wrap(err, "artifact: upload database")
	}

	current, err := a.remoteVersion(ctx)
	if err != nil {
		return 0, err
	}
	next := current + 1
	body := []byte(strconv.Itoa(next))
	if err := a.bucket.Put(ctx, VersionKey, bytes.NewReader(body), "text/plain"); err != nil {
		return 0, eris.Wrap(err, "artifact: upload version")
	}
	if _, err := writeAtomic(a.versionPath(), bytes.NewReader(body)); err != nil {
		a.log.Warn("failed to write local version marker", zap.Error(err))
	}

	a.log.Info("database published",
		zap.Int("version", next),
		zap.Float64("size_mb", megabytes(size)),
		zap.Float64("compressed_mb", megabytes(compressed)),
	)
	return next, nil
}

// remoteVersion reads the published version. A missing or unreadable marker
// counts as version 0.
func (a *Artifacts) remoteVersion(ctx context.Context) (int, error) {
	rc, err := a.bucket.Get(ctx, VersionKey)
	if errors.Is(err, objstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "artifact: get version")
	}
	defer rc.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(rc, 64))
	if err != nil {
		return 0, eris.Wrap(err, "artifact: read version")
	}
	return ParseVersion(string(raw)), nil
}

func (a *Artifacts) versionPath() string {
	return filepath.Join(filepath.Dir(a.dbPath), VersionKey)
}

// ParseVersion reads a version marker, treating anything that is not a
// positive integer as 0.
func ParseVersion(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// LoadZipCache reads the zip cache. A missing cache is empty.
func (a *Artifacts) LoadZipCache(ctx context.Context) (zipfill.Cache, error) {
	rc, err := a.bucket.Get(ctx, zipfill.CacheKey)
	if errors.Is(err, objstore.ErrNotFound) {
		return zipfill.Cache{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "artifact: get zip cache")
	}
	defer rc.Close() //nolint:errcheck
	return zipfill.ReadCache(rc)
}

// SaveZipCache uploads the zip cache.
func (a *Artifacts) SaveZipCache(ctx context.Context, c zipfill.Cache) error {
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return err
	}
	if err := a.bucket.Put(ctx, zipfill.CacheKey, &buf, "application/json"); err != nil {
		return eris.Wrap(err, "artifact: upload zip cache")
	}
	a.log.Info("zip cache uploaded", zap.Int("entries", len(c)))
	return nil
}

// writeAtomic writes r to a temp file next to path and renames it over path.
func writeAtomic(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "artifact: create dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return 0, eris.Wrap(err, "artifact: temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return n, eris.Wrap(err, "artifact: write")
	}
	if err := tmp.Close(); err != nil {
		return n, eris.Wrap(err, "artifact: close")
	}
	return n, eris.Wrap(os.Rename(tmp.Name(), path), "artifact: rename")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func megabytes(n int64) float64 { return float64(n) / (1 << 20) }
