// # internal/core/analysis/session.go
package analysis

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"proscope/internal/core/errors"
	"proscope/internal/core/ports"
	"proscope/internal/engine/index"
	"proscope/internal/engine/lexer"
	"proscope/internal/engine/parser"
	"proscope/internal/shared/observability"

	"github.com/cespare/xxhash/v2"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultDebounce  = 800 * time.Millisecond
	DefaultMaxReruns = 8
	DefaultFileCache = 64
)

type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateRunningRerunRequested
)

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Debounce       time.Duration
	MaxReruns      int
	SourcePatterns []string // base-name globs of ABL files; empty admits every file
	FileCacheSize  int      // parsed RUN targets kept for parameter lookups
	Locator        ports.FileLocator
	Reporter       ports.ErrorReporter
	Logger         *slog.Logger
}

// Session owns the analysis state of one editor. Edits request a debounced
// reanalysis, at most one pass runs at a time and every pass publishes one
// immutable Snapshot.
type Session struct {
	editor    ports.Editor
	sources   []glob.Glob
	maxReruns int
	locator   ports.FileLocator
	reporter  ports.ErrorReporter
	logger    *slog.Logger
	files     *index.FileCache

	runMu sync.Mutex
	state runState

	timerMu  sync.Mutex
	timer    *time.Timer
	gen      uint64
	debounce time.Duration
	closed   bool
	wg       sync.WaitGroup

	snapMu sync.RWMutex
	snap   *Snapshot

	listenersMu sync.RWMutex
	onStarted   []func()
	onCompleted []func()

	version atomic.Uint64
}

func New(editor ports.Editor, opts Options) (*Session, error) {
	sources := make([]glob.Glob, 0, len(opts.SourcePatterns))
	for _, pattern := range opts.SourcePatterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid source pattern"), "pattern", pattern)
		}
		sources = append(sources, g)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxReruns <= 0 {
		opts.MaxReruns = DefaultMaxReruns
	}
	if opts.FileCacheSize <= 0 {
		opts.FileCacheSize = DefaultFileCache
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Reporter == nil {
		opts.Reporter = errors.NewLogReporter(opts.Logger, 1, 5)
	}
	return &Session{
		editor:    editor,
		sources:   sources,
		maxReruns: opts.MaxReruns,
		locator:   opts.Locator,
		reporter:  opts.Reporter,
		logger:    opts.Logger,
		files:     index.NewFileCache(opts.FileCacheSize),
		debounce:  opts.Debounce,
		snap:      emptySnapshot(),
	}, nil
}

// OnStarted registers fn to run when a request chain starts analysing.
func (s *Session) OnStarted(fn func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.onStarted = append(s.onStarted, fn)
}

// OnCompleted registers fn to run after a request chain published its last
// snapshot.
func (s *Session) OnCompleted(fn func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.onCompleted = append(s.onCompleted, fn)
}

// SetDebounce changes the delay applied to later debounced requests.
func (s *Session) SetDebounce(d time.Duration) {
	if d <= 0 {
		d = DefaultDebounce
	}
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.debounce = d
}

// RequestReanalysis asks for the current document to be analysed. An
// immediate request runs on the calling goroutine. Otherwise the debounce
// timer is (re)armed, so a burst of requests yields a single pass.
func (s *Session) RequestReanalysis(immediate bool) {
	if immediate {
		s.timerMu.Lock()
		if s.closed {
			s.timerMu.Unlock()
			return
		}
		s.wg.Add(1)
		s.timerMu.Unlock()
		defer s.wg.Done()
		s.runChain()
		return
	}

	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil && s.timer.Stop() {
		observability.DebounceResetsTotal.Inc()
		s.wg.Done()
	}
	s.gen++
	gen := s.gen
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.debounce, func() {
		defer s.wg.Done()
		s.timerMu.Lock()
		if gen != s.gen || s.closed {
			s.timerMu.Unlock()
			return
		}
		s.timer = nil
		s.timerMu.Unlock()
		s.runChain()
	})
}

// runChain runs passes until no rerun is pending. A chain that finds another
// one running only flags a rerun and returns.
func (s *Session) runChain() {
	s.runMu.Lock()
	if s.state != stateIdle {
		s.state = stateRunningRerunRequested
		s.runMu.Unlock()
		return
	}
	s.state = stateRunning
	s.runMu.Unlock()

	s.emit(s.startedListeners(), "analysis started")
	for {
		s.pass()

		s.runMu.Lock()
		if s.state == stateRunningRerunRequested {
			s.state = stateRunning
			s.runMu.Unlock()
			continue
		}
		s.state = stateIdle
		s.runMu.Unlock()
		break
	}
	s.emit(s.completedListeners(), "analysis completed")
}

func (s *Session) startedListeners() []func() {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	return append([]func(){}, s.onStarted...)
}

func (s *Session) completedListeners() []func() {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	return append([]func(){}, s.onCompleted...)
}

func (s *Session) emit(listeners []func(), event string) {
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					err := errors.AddContext(errors.FromPanic(r), errors.CtxOperation, event)
					s.reporter.Report(err, "analysis listener")
				}
			}()
			fn()
		}()
	}
}

// pass analyses the current document and publishes exactly one snapshot,
// unless the pass faults. When the document switches while a pass runs, the
// pass repeats against the new document up to maxReruns times; the last
// attempt is then published as stale.
func (s *Session) pass() {
	passID := uuid.NewString()
	ctx, span := observability.Tracer.Start(context.Background(), "analysis.pass",
		trace.WithAttributes(attribute.String("pass", passID)))
	defer span.End()

	start := time.Now()
	var path string
	var attempt int
	defer func() {
		if r := recover(); r != nil {
			err := errors.FromPanic(r)
			err = errors.AddContext(err, errors.CtxPath, path)
			err = errors.AddContext(err, errors.CtxOperation, "analysis_pass")
			err = errors.AddContext(err, errors.CtxPass, passID)
			err = errors.AddContext(err, errors.CtxAttempt, attempt)
			span.RecordError(err)
			span.SetStatus(codes.Error, "pass failed")
			observability.PassesTotal.WithLabelValues("failed").Inc()
			s.reporter.Report(err, "analysis pass")
		}
	}()

	var snap *Snapshot
	for {
		path = s.editor.CurrentFilePath()
		text := ""
		if s.isSource(path) {
			text = s.editor.Text()
		}
		snap = s.analyze(ctx, path, text)

		current := s.editor.CurrentFilePath()
		if current == path {
			break
		}
		if attempt >= s.maxReruns {
			snap.Stale = true
			s.logger.Warn("document kept switching, publishing stale snapshot",
				"pass", passID, "path", path, "current", current, "attempt", attempt)
			break
		}
		attempt++
		observability.PassReruns.Inc()
		s.logger.Debug("document switched during pass, rerunning",
			"pass", passID, "from", path, "to", current, "attempt", attempt)
	}

	snap.PassID = passID
	s.publish(snap)

	outcome := "ok"
	if snap.Stale {
		outcome = "stale"
	}
	observability.PassesTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.String("path", snap.FilePath),
		attribute.Int("items", len(snap.Items)),
		attribute.Bool("parsing_ok", snap.ParsingOk),
	)
	s.logger.Debug("analysis pass published",
		"pass", passID, "path", snap.FilePath, "items", len(snap.Items),
		"parsing_ok", snap.ParsingOk, "attempt", attempt, "duration", time.Since(start))
}

func (s *Session) analyze(ctx context.Context, path, text string) *Snapshot {
	var prior []parser.LineInfo
	if old := s.Snapshot(); old.FilePath == path {
		prior = old.Lines
	}

	tokens := stage(ctx, "tokenize", func() []lexer.Token {
		return lexer.Tokenize(text)
	})
	res := stage(ctx, "parse", func() parser.Result {
		return parser.Parse(tokens, path, prior, true)
	})
	idx := stage(ctx, "index", func() *index.Index {
		return index.Build(res)
	})

	return &Snapshot{
		FilePath:  path,
		Tokens:    tokens,
		Items:     res.Items,
		Lines:     res.Lines,
		ParsingOk: res.ParsingOk,
		Index:     idx,
		TextHash:  xxhash.Sum64String(text),
		CreatedAt: time.Now(),
	}
}

func stage[T any](ctx context.Context, name string, fn func() T) T {
	_, span := observability.Tracer.Start(ctx, "analysis."+name)
	defer span.End()
	start := time.Now()
	v := fn()
	observability.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return v
}

func (s *Session) publish(snap *Snapshot) {
	snap.Version = s.version.Add(1)
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
	observability.PublishedItems.Set(float64(len(snap.Items)))
}

// isSource reports whether path names an ABL file. Other files are analysed
// as empty text.
func (s *Session) isSource(path string) bool {
	if len(s.sources) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	for _, g := range s.sources {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Close stops the debounce timer and waits for in-flight chains, both
// timer-started and immediate ones. Later requests are ignored.
func (s *Session) Close() {
	s.timerMu.Lock()
	s.closed = true
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
	s.timerMu.Unlock()
	s.wg.Wait()
}
