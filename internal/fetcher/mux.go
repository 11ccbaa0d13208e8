package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Mux dispatches to a Fetcher by URL scheme. URLs without a scheme are
// treated as local paths.
type Mux struct {
	schemes map[string]Fetcher
}

// NewMux returns a Mux serving http, https, ftp and file URLs.
func NewMux(httpOpts HTTPOptions, ftpOpts FTPOptions) *Mux {
	h := NewHTTPFetcher(httpOpts)
	return &Mux{schemes: map[string]Fetcher{
		"http":  h,
		"https": h,
		"ftp":   NewFTPFetcher(ftpOpts),
		"file":  FileFetcher{},
		"":      FileFetcher{},
	}}
}

// Handle registers f for scheme, replacing any existing entry.
func (m *Mux) Handle(scheme string, f Fetcher) {
	m.schemes[strings.ToLower(scheme)] = f
}

func (m *Mux) fetcherFor(rawURL string) (Fetcher, error) {
	scheme := ""
	if u, err := url.Parse(rawURL); err == nil {
		scheme = strings.ToLower(u.Scheme)
	}
	// Windows drive letters parse as a one-letter scheme.
	if len(scheme) == 1 {
		scheme = ""
	}
	f, ok := m.schemes[scheme]
	if !ok {
		return nil, eris.Errorf("fetcher: unsupported scheme %q in %s", scheme, rawURL)
	}
	return f, nil
}

// Download implements Fetcher.
func (m *Mux) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := m.fetcherFor(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile implements Fetcher.
func (m *Mux) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := m.fetcherFor(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}
