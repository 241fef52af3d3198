package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	DefaultAttempts       = 3
	DefaultRetryDelay     = 2 * time.Second
	DefaultAttemptTimeout = 10 * time.Minute

	tempPattern = "trxloader-*.zip"

	// staleAge is how old a leftover download must be before it is removed,
	// so a download in progress in another installation is left alone.
	staleAge = time.Hour
)

// HTTPDownloader streams artifacts over HTTP into temporary files, retrying
// failed attempts after a fixed delay.
type HTTPDownloader struct {
	client         *http.Client
	fs             afero.Fs
	tempDir        string // Empty means the OS temp directory
	userAgent      string
	attempts       int
	retryDelay     time.Duration
	attemptTimeout time.Duration
}

// NewHTTPDownloader creates a downloader writing to fs
func NewHTTPDownloader(fs afero.Fs) *HTTPDownloader {
	return &HTTPDownloader{
		client:         &http.Client{},
		fs:             fs,
		userAgent:      DefaultUserAgent,
		attempts:       DefaultAttempts,
		retryDelay:     DefaultRetryDelay,
		attemptTimeout: DefaultAttemptTimeout,
	}
}

// WithRetry sets the total number of attempts and the delay between them
func (d *HTTPDownloader) WithRetry(attempts int, delay time.Duration) *HTTPDownloader {
	if attempts > 0 {
		d.attempts = attempts
	}
	if delay >= 0 {
		d.retryDelay = delay
	}
	return d
}

// WithAttemptTimeout bounds a single attempt, body included
func (d *HTTPDownloader) WithAttemptTimeout(timeout time.Duration) *HTTPDownloader {
	if timeout > 0 {
		d.attemptTimeout = timeout
	}
	return d
}

// WithTempDir sets where temporary files are created
func (d *HTTPDownloader) WithTempDir(dir string) *HTTPDownloader {
	d.tempDir = dir
	return d
}

// WithUserAgent overrides the User-Agent header
func (d *HTTPDownloader) WithUserAgent(ua string) *HTTPDownloader {
	if ua != "" {
		d.userAgent = ua
	}
	return d
}

// Fetch downloads url into a fresh temporary file and returns its path. The
// caller owns the file and must remove it. On failure no file is left behind
// and the error is a *DownloadError.
func (d *HTTPDownloader) Fetch(ctx context.Context, url string) (string, error) {
	out, err := afero.TempFile(d.fs, d.tempDir, tempPattern)
	if err != nil {
		return "", &DownloadError{URL: url, Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	path := out.Name()
	log.Debugf("downloading %s to %s", url, path)

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			if err := rewind(out); err != nil {
				return backoff.Permanent(err)
			}
		}

		log.Infof("download attempt %d/%d", attempt, d.attempts)
		err := d.fetchOnce(ctx, url, out)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.retryDelay), uint64(d.attempts-1)),
		ctx,
	)
	err = backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		log.Warnf("download attempt %d failed, retrying in %v: %v", attempt, wait, err)
	})

	closeErr := out.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	if err != nil {
		if rmErr := d.fs.Remove(path); rmErr != nil {
			log.Warnf("failed to remove partial download %s: %v", path, rmErr)
		}
		return "", &DownloadError{URL: url, Attempts: attempt, Err: err}
	}

	log.Infof("successfully downloaded %s", url)
	return path, nil
}

// RemoveStale deletes temporary downloads left behind by runs that crashed
// before their cleanup ran. Files younger than an hour are kept. It returns
// the number of files removed.
func (d *HTTPDownloader) RemoveStale() (int, error) {
	dir := d.tempDir
	if dir == "" {
		dir = os.TempDir()
	}

	matches, err := afero.Glob(d.fs, filepath.Join(dir, tempPattern))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale downloads: %w", err)
	}

	removed := 0
	for _, m := range matches {
		info, err := d.fs.Stat(m)
		if err != nil || time.Since(info.ModTime()) < staleAge {
			continue
		}
		if err := d.fs.Remove(m); err != nil {
			log.Warnf("failed to remove stale download %s: %v", m, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (d *HTTPDownloader) fetchOnce(ctx context.Context, url string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write response body to file: %w", err)
	}

	return nil
}

// rewind truncates a partially written file before the next attempt.
func rewind(f afero.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate file on retry: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to beginning of file: %w", err)
	}
	return nil
}
