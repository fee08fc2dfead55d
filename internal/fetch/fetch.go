// Package fetch downloads nflfastR season extracts into a local data
// directory.
package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/nflvrs/internal/fsutil"
	"github.com/banshee-data/nflvrs/internal/httputil"
	"github.com/banshee-data/nflvrs/internal/monitoring"
	"github.com/banshee-data/nflvrs/internal/pbp"
	"github.com/banshee-data/nflvrs/internal/timeutil"
)

const (
	// DefaultBaseURL hosts play_by_play_<year>.csv.gz files.
	DefaultBaseURL = "https://github.com/guga31bb/nflfastR-data/blob/master/data"
	// DefaultConcurrency bounds parallel downloads.
	DefaultConcurrency = 4
	// FirstSeason is the earliest season nflfastR publishes.
	FirstSeason = 1999
)

var (
	// ErrNotFound is returned when the server has no extract for a season.
	ErrNotFound = errors.New("season extract not found")
	// ErrNotGzip is returned when a response body is not gzip data.
	ErrNotGzip = errors.New("response is not gzip data")
	// ErrInvalidSeason is returned for seasons before FirstSeason.
	ErrInvalidSeason = errors.New("invalid season")
)

// errTransient marks responses worth retrying.
var errTransient = errors.New("transient server error")

// Fetcher downloads season extracts. Zero-valued fields take defaults.
type Fetcher struct {
	Client      httputil.HTTPClient
	FS          fsutil.FileSystem
	Dir         string
	BaseURL     string
	Concurrency int
	// Overwrite re-downloads seasons that already exist locally.
	Overwrite bool
	Clock     timeutil.Clock
	// NewBackOff returns the retry policy for one download.
	NewBackOff func() backoff.BackOff
}

// Result describes one season's download.
type Result struct {
	Season   int
	Path     string
	Bytes    int64
	Skipped  bool
	Attempts int
	Duration time.Duration
}

func (f *Fetcher) client() httputil.HTTPClient {
	if f.Client == nil {
		return httputil.NewStandardClient(nil)
	}
	return f.Client
}

func (f *Fetcher) fs() fsutil.FileSystem {
	if f.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return f.FS
}

func (f *Fetcher) clock() timeutil.Clock {
	if f.Clock == nil {
		return timeutil.RealClock{}
	}
	return f.Clock
}

func (f *Fetcher) backOff() backoff.BackOff {
	if f.NewBackOff != nil {
		return f.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 3 * time.Minute
	b.Clock = f.clock()
	return b
}

// URL returns the download URL for season.
func (f *Fetcher) URL(season int) string {
	base := f.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/play_by_play_%d.csv.gz?raw=True", base, season)
}

// Fetch downloads every season concurrently. Results are returned in the
// order of seasons. The first failure cancels the remaining downloads.
func (f *Fetcher) Fetch(ctx context.Context, seasons []int) ([]Result, error) {
	for _, s := range seasons {
		if s < FirstSeason {
			return nil, fmt.Errorf("%w: %d is before %d", ErrInvalidSeason, s, FirstSeason)
		}
	}
	if err := f.fs().MkdirAll(f.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", f.Dir, err)
	}

	limit := f.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	results := make([]Result, len(seasons))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, season := range seasons {
		g.Go(func() error {
			res, err := f.fetchSeason(gctx, season)
			if err != nil {
				return fmt.Errorf("season %d: %w", season, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *Fetcher) fetchSeason(ctx context.Context, season int) (Result, error) {
	path := pbp.SeasonFile(f.Dir, season)
	res := Result{Season: season, Path: path}
	if !f.Overwrite && f.fs().Exists(path) {
		monitoring.Debugf("fetch: %s exists, skipping", path)
		res.Skipped = true
		return res, nil
	}

	start := f.clock().Now()
	url := f.URL(season)
	op := func() error {
		res.Attempts++
		n, err := f.download(ctx, url, path)
		res.Bytes = n
		return err
	}
	notify := func(err error, wait time.Duration) {
		monitoring.Logf("fetch: season %d attempt %d failed: %v; retrying in %v", season, res.Attempts, err, wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(f.backOff(), ctx), notify); err != nil {
		return res, err
	}
	res.Duration = f.clock().Since(start)
	monitoring.Logf("fetch: season %d: %d bytes to %s in %v", season, res.Bytes, path, res.Duration)
	return res, nil
}

// download writes url to path through a temporary file. Errors that should
// not be retried are wrapped with backoff.Permanent.
func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, url))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return 0, fmt.Errorf("%w: %s", errTransient, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return 0, backoff.Permanent(fmt.Errorf("unexpected status %s from %s", resp.Status, url))
	}

	body := bufio.NewReader(resp.Body)
	magic, err := body.Peek(2)
	if err != nil || magic[0] != 0x1f || magic[1] != 0x8b {
		return 0, backoff.Permanent(fmt.Errorf("%w: %s", ErrNotGzip, url))
	}

	fsys := f.fs()
	tmp := path + ".part"
	w, err := fsys.Create(tmp)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("failed to create %s: %w", tmp, err))
	}
	n, err := io.Copy(w, body)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = fsys.Remove(tmp)
		return n, fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return n, backoff.Permanent(fmt.Errorf("failed to move %s into place: %w", tmp, err))
	}
	return n, nil
}
