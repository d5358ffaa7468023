// Package session drives the live ingestion pipeline: it follows an
// avatar's newest chat log and feeds new lines through extraction,
// aggregation, the search index and the stats reader.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"chronicler/pkg/aggregate"
	"chronicler/pkg/extract"
	"chronicler/pkg/logline"
	"chronicler/pkg/search"
	"chronicler/pkg/stats"
)

// ErrClosed is returned by Poll and Wait after Close.
var ErrClosed = errors.New("session closed")

// IngestionError reports a failed read of the chat log. The poll
// cursor is unchanged, so the next poll retries.
type IngestionError struct {
	Path string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingesting %s: %v", e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

type options struct {
	logger    *zap.Logger
	rules     []extract.Rule
	fromStart bool
}

// Option configures an opened session.
type Option func(*options)

// WithLogger routes session diagnostics to the given logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRules replaces the default extraction rule set.
func WithRules(rules []extract.Rule) Option {
	return func(o *options) { o.rules = rules }
}

// WithFromStart ingests the log from its beginning instead of only
// lines appended after opening.
func WithFromStart() Option {
	return func(o *options) { o.fromStart = true }
}

// Log is one open ingestion pipeline over an avatar's chat log. Poll
// advances the pipeline; the Tally, Index and Stats accessors are safe
// to read while polling continues.
type Log struct {
	dir    string
	avatar string
	logger *zap.Logger

	extractor *extract.Extractor
	tally     *aggregate.Tally
	index     *search.Index
	stats     *stats.Reader

	watcher *fsnotify.Watcher
	wake    chan struct{}

	mu     sync.Mutex
	file   *os.File
	source logline.LogFile
	tok    *logline.Tokenizer
	closed bool
}

// Open locates the avatar's newest chat log in dir and prepares the
// pipeline. By default ingestion starts at the current end of the
// file, so only lines appended after opening are seen.
func Open(dir, avatar string, opts ...Option) (*Log, error) {
	o := options{logger: zap.NewNop(), rules: extract.DefaultRules()}
	for _, opt := range opts {
		opt(&o)
	}

	extractor, err := extract.NewExtractor(o.rules)
	if err != nil {
		return nil, err
	}

	files, err := logline.FilesFor(dir, avatar, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	newest := files[len(files)-1]

	file, err := openWithRetry(newest.Path)
	if err != nil {
		return nil, &IngestionError{Path: newest.Path, Err: err}
	}

	var start int64
	if !o.fromStart {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, &IngestionError{Path: newest.Path, Err: err}
		}
		start = info.Size()
	}

	l := &Log{
		dir:       dir,
		avatar:    avatar,
		logger:    o.logger,
		extractor: extractor,
		tally:     aggregate.New(),
		index:     search.NewIndex(),
		stats:     stats.NewReader(),
		wake:      make(chan struct{}, 1),
		file:      file,
		source:    newest,
		tok:       logline.NewTokenizer(newest.Path, newest.Date, start, 0),
	}
	l.watch()

	l.logger.Info("session opened",
		zap.String("path", newest.Path),
		zap.Int64("offset", start))
	return l, nil
}

// openWithRetry opens the chat log, retrying transient failures while
// the game is still creating or locking the day's file.
func openWithRetry(path string) (*os.File, error) {
	var file *os.File
	operation := func() error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		file = f
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second

	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return file, nil
}

// watch starts a best-effort directory watcher that wakes Wait callers
// when the log directory changes. Polling remains the source of truth,
// so a failed watcher only costs latency.
func (l *Log) watch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		l.logger.Warn("directory watch unavailable", zap.Error(err))
		return
	}
	if err := w.Add(l.dir); err != nil {
		l.logger.Warn("directory watch unavailable", zap.String("dir", l.dir), zap.Error(err))
		w.Close()
		return
	}
	l.watcher = w

	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				select {
				case l.wake <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("directory watch error", zap.Error(err))
			}
		}
	}()
}

// Poll reads bytes appended since the last poll, runs them through the
// pipeline and returns the new lines. A shrunk file restarts from
// offset 0; when a newer dated log appears for the avatar, the old
// file is drained and the session moves to the new one. On error the
// returned lines, if any, have still been ingested.
func (l *Log) Poll(ctx context.Context) ([]logline.Line, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines, err := l.pollLocked()
	l.ingest(lines)
	return lines, err
}

func (l *Log) pollLocked() ([]logline.Line, error) {
	info, err := os.Stat(l.source.Path)
	if err != nil {
		return nil, &IngestionError{Path: l.source.Path, Err: err}
	}

	// A shrunk file means the log was rewritten underneath us.
	if info.Size() < l.tok.FeedPos() {
		l.logger.Info("chat log shrank, restarting from the top",
			zap.String("path", l.source.Path))
		if err := l.reopen(); err != nil {
			return nil, err
		}
		if info, err = os.Stat(l.source.Path); err != nil {
			return nil, &IngestionError{Path: l.source.Path, Err: err}
		}
	}

	lines, err := l.readAppended(info.Size())
	if err != nil {
		return nil, err
	}

	rolled, err := l.rollover()
	return append(lines, rolled...), err
}

// reopen reacquires the current file and restarts the tokenizer at
// offset 0, preserving the sequence counter.
func (l *Log) reopen() error {
	file, err := openWithRetry(l.source.Path)
	if err != nil {
		return &IngestionError{Path: l.source.Path, Err: err}
	}
	l.file.Close()
	l.file = file
	l.tok = logline.NewTokenizer(l.source.Path, l.source.Date, 0, l.tok.Seq())
	return nil
}

// readAppended feeds the tokenizer everything between its feed
// position and size.
func (l *Log) readAppended(size int64) ([]logline.Line, error) {
	pos := l.tok.FeedPos()
	if size <= pos {
		return nil, nil
	}

	buf := make([]byte, size-pos)
	n, err := l.file.ReadAt(buf, pos)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &IngestionError{Path: l.source.Path, Err: err}
	}
	return l.tok.Feed(buf[:n]), nil
}

// rollover checks for a newer dated chat log for the avatar. When one
// exists, the unterminated tail of the old day is flushed and the
// session continues in the new file from offset 0.
func (l *Log) rollover() ([]logline.Line, error) {
	logs, err := logline.ListLogs(l.dir)
	if err != nil {
		l.logger.Warn("log directory scan failed", zap.Error(err))
		return nil, nil
	}

	var next *logline.LogFile
	for i := range logs {
		cand := &logs[i]
		if cand.Avatar != l.avatar || !cand.Date.After(l.source.Date) {
			continue
		}
		if next == nil || cand.Date.Before(next.Date) {
			next = cand
		}
	}
	if next == nil {
		return nil, nil
	}

	file, err := openWithRetry(next.Path)
	if err != nil {
		return nil, &IngestionError{Path: next.Path, Err: err}
	}

	var lines []logline.Line
	if l.tok.Pending() {
		lines = l.tok.Feed([]byte("\n"))
	}
	l.file.Close()

	l.file = file
	l.source = *next
	l.tok = logline.NewTokenizer(next.Path, next.Date, 0, l.tok.Seq())
	l.logger.Info("rolled over to new chat log", zap.String("path", next.Path))

	info, err := file.Stat()
	if err != nil {
		return lines, &IngestionError{Path: next.Path, Err: err}
	}
	more, err := l.readAppended(info.Size())
	return append(lines, more...), err
}

// ingest runs lines through extraction and feeds every downstream
// consumer. Extraction failures are counted and skipped.
func (l *Log) ingest(lines []logline.Line) {
	for _, line := range lines {
		ev, err := l.extractor.Extract(line)
		if err != nil {
			l.tally.NoteExtractionError()
			l.logger.Debug("extraction failed", zap.Uint64("seq", line.Seq), zap.Error(err))
			continue
		}
		if ev != nil {
			l.tally.Add(*ev)
		}
	}
	l.index.Append(lines...)
	l.stats.Feed(lines...)
}

// Wait blocks until the log directory changes, max elapses, or ctx is
// done. A quiet directory never blocks longer than max.
func (l *Log) Wait(ctx context.Context, max time.Duration) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}

	timer := time.NewTimer(max)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	case <-l.wake:
	}
	return nil
}

// Close releases the watcher and file handle. It is idempotent.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.watcher != nil {
		l.watcher.Close()
		l.watcher = nil
	}
	var err error
	if l.file != nil {
		err = l.file.Close()
		l.file = nil
	}
	return err
}

// Tally returns the aggregator fed by this session.
func (l *Log) Tally() *aggregate.Tally {
	return l.tally
}

// Index returns the search index fed by this session.
func (l *Log) Index() *search.Index {
	return l.index
}

// Stats returns the stats reader fed by this session.
func (l *Log) Stats() *stats.Reader {
	return l.stats
}

// Source returns the log file the session is currently following.
func (l *Log) Source() logline.LogFile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.source
}
