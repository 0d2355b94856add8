// Package fetcher downloads address source files and unpacks the archive
// formats they are published in.
package fetcher

import (
	"context"
)

// Downloader saves a remote file locally. OpenSource needs nothing more.
type Downloader interface {
	// DownloadToFile writes the body of url to path and returns the byte
	// count.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
