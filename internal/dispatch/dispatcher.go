package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/meter-data-loader/internal/database"
	"github.com/ANIKETSHETTY47/meter-data-loader/internal/ingest"
)

// ErrRunAborted marks files that were never started because the run was
// cancelled.
var ErrRunAborted = errors.New("run aborted before file was processed")

// FileLoader loads one file to completion.
type FileLoader interface {
	LoadFile(ctx context.Context, path string) ingest.Result
}

// Archiver copies a fully loaded file somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, root, path string) error
}

// Discover returns every regular file under root whose base name matches
// pattern, at any depth, in lexical order.
func Discover(root, pattern string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path %s is not a directory", root)
	}
	if strings.Contains(pattern, "/") || !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", pattern)
	}

	var paths []string
	err = doublestar.GlobWalk(os.DirFS(root), "**/"+pattern, func(p string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		paths = append(paths, filepath.Join(root, filepath.FromSlash(p)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

type Dispatcher struct {
	loader   FileLoader
	workers  int
	pattern  string
	archiver Archiver
	log      zerolog.Logger
}

// New returns a dispatcher running at most workers files at once. archiver
// may be nil.
func New(loader FileLoader, workers int, pattern string, archiver Archiver, log zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		loader:   loader,
		workers:  workers,
		pattern:  pattern,
		archiver: archiver,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run discovers the files under root and loads them.
func (d *Dispatcher) Run(ctx context.Context, root string) (Summary, error) {
	paths, err := Discover(root, d.pattern)
	if err != nil {
		return Summary{Root: root}, err
	}
	d.log.Info().Str("basepath", root).Str("pattern", d.pattern).Int("files", len(paths)).Msg("discovered data files")
	return d.Process(ctx, root, paths)
}

// Process loads paths on the worker pool. A file's failure does not stop the
// others; a lost database connection stops workers from taking new files and
// is returned as the run error.
func (d *Dispatcher) Process(ctx context.Context, root string, paths []string) (Summary, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]ingest.Result, len(paths))
	started := make([]bool, len(paths))
	var (
		mu    sync.Mutex
		fatal error
	)

	workers := d.workers
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		log := d.log.With().Int("worker", w).Logger()
		g.Go(func() error {
			for i := range jobs {
				if ctx.Err() != nil {
					results[i] = abortedResult(paths[i])
					continue
				}
				log.Debug().Str("path", paths[i]).Msg("loading file")
				res := d.loader.LoadFile(ctx, paths[i])
				results[i] = res

				if res.Err != nil && database.IsConnectionError(res.Err) {
					mu.Lock()
					if fatal == nil {
						fatal = res.Err
						log.Error().Err(res.Err).Msg("database connection lost, stopping run")
					}
					mu.Unlock()
					cancel()
					continue
				}
				if res.OK() && d.archiver != nil {
					if err := d.archiver.Archive(ctx, root, paths[i]); err != nil {
						log.Warn().Err(err).Str("path", paths[i]).Msg("archive failed")
					}
				}
			}
			return nil
		})
	}

feed:
	for i := range paths {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
			started[i] = true
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	_ = g.Wait()

	for i, ok := range started {
		if !ok {
			results[i] = abortedResult(paths[i])
		}
	}

	s := summarize(root, results)
	s.Duration = time.Since(start)
	if fatal != nil {
		s.Aborted = true
		return s, fatal
	}
	if err := ctx.Err(); err != nil {
		s.Aborted = true
		return s, fmt.Errorf("run interrupted, %d files not processed: %w", s.Skipped, err)
	}
	return s, nil
}

func abortedResult(path string) ingest.Result {
	return ingest.Result{Path: path, Err: fmt.Errorf("%s: %w", path, ErrRunAborted)}
}

// Summary aggregates a run.
type Summary struct {
	Root         string
	Files        int
	Loaded       int
	Partial      int
	Failed       int
	Skipped      int
	RowsInserted int
	RowsFailed   int
	Aborted      bool
	Duration     time.Duration
	Results      []ingest.Result
}

func summarize(root string, results []ingest.Result) Summary {
	s := Summary{Root: root, Files: len(results), Results: results}
	for _, r := range results {
		s.RowsInserted += r.Inserted
		s.RowsFailed += r.Failed
		switch {
		case errors.Is(r.Err, ErrRunAborted):
			s.Skipped++
		case r.Err != nil:
			s.Failed++
		case r.Failed > 0:
			s.Partial++
		default:
			s.Loaded++
		}
	}
	return s
}

// OK reports whether every file loaded completely.
func (s Summary) OK() bool {
	return !s.Aborted && s.Loaded == s.Files
}

// Err combines the per-file failures, nil when every file loaded.
func (s Summary) Err() error {
	var result *multierror.Error
	for _, r := range s.Results {
		switch {
		case r.Err != nil:
			result = multierror.Append(result, r.Err)
		case r.Failed > 0:
			result = multierror.Append(result, fmt.Errorf("%s: %d of %d rows failed", r.Path, r.Failed, r.Rows))
		}
	}
	return result.ErrorOrNil()
}

// Subject is a one-line description of the run for notifications.
func (s Summary) Subject() string {
	status := "succeeded"
	switch {
	case s.Aborted:
		status = "aborted"
	case !s.OK():
		status = "completed with failures"
	}
	return fmt.Sprintf("Meter data load %s: %d/%d files", status, s.Loaded, s.Files)
}

// Report is a plain-text run report.
func (s Summary) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Base path: %s\n", s.Root)
	fmt.Fprintf(&b, "Files: %d (loaded %d, partial %d, failed %d, not processed %d)\n",
		s.Files, s.Loaded, s.Partial, s.Failed, s.Skipped)
	fmt.Fprintf(&b, "Rows: %d inserted, %d failed\n", s.RowsInserted, s.RowsFailed)
	fmt.Fprintf(&b, "Duration: %s\n", s.Duration.Round(time.Millisecond))
	if err := s.Err(); err != nil {
		fmt.Fprintf(&b, "\n%v\n", err)
	}
	return b.String()
}
