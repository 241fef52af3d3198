package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDownloader(t *testing.T) (*HTTPDownloader, string) {
	t.Helper()
	dir := t.TempDir()
	return NewHTTPDownloader(afero.NewOsFs()).WithTempDir(dir).WithRetry(DefaultAttempts, 0), dir
}

// flakyServer fails the first `failures` requests and then serves body.
func flakyServer(t *testing.T, failures int32, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n <= failures {
			if n%2 == 1 {
				// Promise more than is sent so the client sees a truncated body.
				w.Header().Set("Content-Length", "1000")
				_, _ = w.Write([]byte("partial garbage"))
				return
			}
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestNewHTTPDownloader(t *testing.T) {
	d := NewHTTPDownloader(afero.NewMemMapFs())

	assert.NotNil(t, d.client)
	assert.Equal(t, DefaultAttempts, d.attempts)
	assert.Equal(t, DefaultRetryDelay, d.retryDelay)
	assert.Equal(t, DefaultAttemptTimeout, d.attemptTimeout)
	assert.Equal(t, DefaultUserAgent, d.userAgent)

	d.WithRetry(0, -1).WithAttemptTimeout(0).WithUserAgent("")
	assert.Equal(t, DefaultAttempts, d.attempts, "invalid values are ignored")
	assert.Equal(t, DefaultRetryDelay, d.retryDelay)
	assert.Equal(t, DefaultAttemptTimeout, d.attemptTimeout)
	assert.Equal(t, DefaultUserAgent, d.userAgent)
}

func TestHTTPDownloaderFetch(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("release archive"))
	}))
	defer srv.Close()

	d, dir := newTestDownloader(t)

	path, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "request", agent)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "release archive", string(data))
}

func TestHTTPDownloaderRetriesUntilSuccess(t *testing.T) {
	srv, hits := flakyServer(t, 2, "complete archive")
	d, _ := newTestDownloader(t)

	path, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "complete archive", string(data), "partial bodies from failed attempts are discarded")
}

func TestHTTPDownloaderGivesUp(t *testing.T) {
	srv, hits := flakyServer(t, 3, "never served")
	d, dir := newTestDownloader(t)

	_, err := d.Fetch(context.Background(), srv.URL)

	var dErr *DownloadError
	require.True(t, errors.As(err, &dErr), "got %v", err)
	assert.Equal(t, 3, dErr.Attempts)
	assert.Equal(t, srv.URL, dErr.URL)
	assert.Equal(t, int32(3), hits.Load())

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left, "no temp file is left behind")
}

func TestHTTPDownloaderAttemptTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d, _ := newTestDownloader(t)
	d.WithAttemptTimeout(100 * time.Millisecond)

	path, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestHTTPDownloaderCanceled(t *testing.T) {
	srv, hits := flakyServer(t, 3, "never served")
	d, dir := newTestDownloader(t)
	d.WithRetry(3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for hits.Load() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()

	_, err := d.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Equal(t, int32(1), hits.Load())

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestHTTPDownloaderRemoveStale(t *testing.T) {
	d, dir := newTestDownloader(t)

	old := time.Now().Add(-2 * time.Hour)
	writeFiles(t, dir, map[string]string{
		"trxloader-111.zip": "crashed run",
		"trxloader-222.zip": "download in progress",
		"unrelated.zip":     "not ours",
	})
	require.NoError(t, os.Chtimes(filepath.Join(dir, "trxloader-111.zip"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "unrelated.zip"), old, old))

	n, err := d.RemoveStale()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]string{
		"trxloader-222.zip": "download in progress",
		"unrelated.zip":     "not ours",
	}, readFiles(t, dir))
}
