package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// FileFetcher reads layers from the local filesystem. It accepts file://
// URLs and bare paths.
type FileFetcher struct{}

// localPath returns the filesystem path for a file:// URL or bare path.
func localPath(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "file:") {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "parse file url")
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if p == "" {
		return "", eris.Errorf("empty path in file url %q", rawURL)
	}
	return p, nil
}

// Download opens the file.
func (FileFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "open file")
	}
	p, err := localPath(rawURL)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, eris.Wrap(err, "open file")
	}
	return f, nil
}

// DownloadToFile copies the file to path.
func (f FileFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	return downloadToFile(ctx, f, rawURL, path)
}
