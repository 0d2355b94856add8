package fetcher

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/rotisserie/eris"
)

// extractMember copies the first archive member whose name ends in ext
// (case-insensitive) into destDir and returns its path. Only the base name
// is kept, so entries cannot escape destDir. OpenAddresses archives carry
// one .geojson next to license and summary files.
func extractMember(zipPath, ext, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: open archive %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	ext = strings.ToLower(ext)
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ext) {
			continue
		}
		name := filepath.Base(filepath.FromSlash(f.Name))
		if name == "." || name == ".." || name == string(filepath.Separator) {
			return "", eris.Errorf("fetcher: bad archive entry %q", f.Name)
		}
		dest := filepath.Join(destDir, name)
		if err := copyMember(f, dest); err != nil {
			return "", err
		}
		return dest, nil
	}
	return "", eris.Errorf("fetcher: no %s member in %s", ext, filepath.Base(zipPath))
}

func copyMember(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "fetcher: open member %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "fetcher: create %s", dest)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "fetcher: extract %s", f.Name)
	}
	return eris.Wrapf(out.Close(), "fetcher: close %s", dest)
}
