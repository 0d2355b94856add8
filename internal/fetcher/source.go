package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"
)

// OpenSource opens an address source that may be a URL or a local path, a
// .zip archive holding a .geojson file, a gzip file, or plain GeoJSON.
// Downloads and extracted files are written under workDir.
func OpenSource(ctx context.Context, f Downloader, src, workDir string) (io.ReadCloser, error) {
	return OpenFile(ctx, f, src, workDir, ".geojson")
}

// OpenFile is OpenSource for any file type. ext picks the member of a .zip
// archive and names a download whose URL has no file name.
func OpenFile(ctx context.Context, f Downloader, src, workDir, ext string) (io.ReadCloser, error) {
	local := src
	if isURL(src) {
		u, err := url.Parse(src)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: parse %s", src)
		}
		name := path.Base(u.Path)
		if name == "" || name == "/" || name == "." {
			name = "source" + ext
		}
		local = filepath.Join(workDir, name)
		if _, err := f.DownloadToFile(ctx, src, local); err != nil {
			return nil, err
		}
	}

	lower := strings.ToLower(local)
	if strings.HasSuffix(lower, ".zip") {
		extracted, err := extractMember(local, ext, workDir)
		if err != nil {
			return nil, err
		}
		local, lower = extracted, strings.ToLower(extracted)
	}

	file, err := os.Open(local)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", local)
	}
	if !strings.HasSuffix(lower, ".gz") {
		return file, nil
	}
	zr, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, eris.Wrapf(err, "fetcher: gunzip %s", local)
	}
	return &gzipFile{Reader: zr, file: file}, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	zerr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return eris.Wrap(err, "fetcher: close file")
	}
	return zerr
}
