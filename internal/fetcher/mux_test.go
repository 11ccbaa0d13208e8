package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	body string
	urls []string
}

func (s *stubFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	s.urls = append(s.urls, url)
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func (s *stubFetcher) DownloadToFile(ctx context.Context, url, path string) (int64, error) {
	return downloadToFile(ctx, s, url, path)
}

func TestMux_Dispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote"))
	}))
	defer srv.Close()

	m := NewMux(HTTPOptions{}, FTPOptions{})

	body, err := m.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	_ = body.Close()
	assert.Equal(t, "remote", string(data))

	local := writeTemp(t, "cd.geojson", "local")
	body, err = m.Download(context.Background(), local)
	require.NoError(t, err)
	data, _ = io.ReadAll(body)
	_ = body.Close()
	assert.Equal(t, "local", string(data))
}

func TestMux_UnsupportedScheme(t *testing.T) {
	m := NewMux(HTTPOptions{}, FTPOptions{})
	_, err := m.Download(context.Background(), "s3://bucket/cd.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")

	_, err = m.DownloadToFile(context.Background(), "gopher://x/y", filepath.Join(t.TempDir(), "x"))
	assert.Error(t, err)
}

func TestMux_Handle(t *testing.T) {
	m := NewMux(HTTPOptions{}, FTPOptions{})
	stub := &stubFetcher{body: "from s3"}
	m.Handle("S3", stub)

	n, err := m.DownloadToFile(context.Background(), "s3://bucket/cd.zip", filepath.Join(t.TempDir(), "cd.zip"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, []string{"s3://bucket/cd.zip"}, stub.urls)
}
