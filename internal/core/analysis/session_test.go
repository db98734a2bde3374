package analysis

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"proscope/internal/core/errors"
	"proscope/internal/engine/index"
	"proscope/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEditor struct {
	mu     sync.Mutex
	path   string
	text   string
	onText func(e *fakeEditor)
}

func (e *fakeEditor) CurrentFilePath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

func (e *fakeEditor) Text() string {
	e.mu.Lock()
	hook := e.onText
	e.mu.Unlock()
	if hook != nil {
		hook(e)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

func (e *fakeEditor) set(path, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.path, e.text = path, text
}

type fakeReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *fakeReporter) Report(err error, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *fakeReporter) reported() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

type fakeLocator map[string]string

func (l fakeLocator) FindFile(name string, _ []string) (string, bool) {
	p, ok := l[name]
	return p, ok
}

type counters struct {
	started   atomic.Int32
	completed atomic.Int32
}

func newSession(t *testing.T, ed *fakeEditor, opts Options) (*Session, *counters) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.SourcePatterns == nil {
		opts.SourcePatterns = []string{"*.p", "*.i", "*.w"}
	}
	s, err := New(ed, opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	c := &counters{}
	s.OnStarted(func() { c.started.Add(1) })
	s.OnCompleted(func() { c.completed.Add(1) })
	return s, c
}

const procedureSource = "PROCEDURE foo:\n  DEFINE VARIABLE x AS INTEGER.\nEND PROCEDURE."

func TestSession_InitialSnapshot(t *testing.T) {
	s, _ := newSession(t, &fakeEditor{}, Options{})

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Zero(t, snap.Version)
	assert.True(t, s.CanIndent())
	assert.Empty(t, s.Completions())
	assert.Equal(t, "", s.LineScope(0))
	require.NotNil(t, s.Outline())
}

func TestSession_ImmediateProcedureScenario(t *testing.T) {
	ed := &fakeEditor{path: "orders.p", text: procedureSource}
	s, c := newSession(t, ed, Options{})

	s.RequestReanalysis(true)

	snap := s.Snapshot()
	assert.Equal(t, "orders.p", snap.FilePath)
	assert.True(t, snap.ParsingOk)
	assert.False(t, snap.Stale)
	assert.NotEmpty(t, snap.PassID)
	assert.Equal(t, 3, snap.LineCount())
	for line := 0; line <= 2; line++ {
		assert.Equal(t, "foo", s.LineScope(line), "line %d", line)
	}

	def, ok := s.FindDefinition("x", 1)
	require.True(t, ok)
	assert.Equal(t, "foo", def.Owner)
	assert.Equal(t, int32(1), c.started.Load())
	assert.Equal(t, int32(1), c.completed.Load())
}

func TestSession_TruncatedProcedure(t *testing.T) {
	ed := &fakeEditor{path: "orders.p", text: "PROCEDURE foo:\n  DEFINE VARIABLE x AS INTEGER."}
	s, _ := newSession(t, ed, Options{})

	s.RequestReanalysis(true)

	assert.False(t, s.CanIndent())
	def, ok := s.FindDefinition("x", 1)
	require.True(t, ok)
	assert.Equal(t, "foo", def.Owner)
}

func TestSession_ImmediateRequestsRunEachTime(t *testing.T) {
	ed := &fakeEditor{path: "a.p", text: "DEFINE VARIABLE x AS INTEGER."}
	s, c := newSession(t, ed, Options{})

	for i := 0; i < 5; i++ {
		s.RequestReanalysis(true)
	}

	assert.Equal(t, int32(5), c.started.Load())
	assert.Equal(t, int32(5), c.completed.Load())
	assert.Equal(t, uint64(5), s.Snapshot().Version)
}

func TestSession_DebounceCoalesces(t *testing.T) {
	tests := []struct {
		name     string
		debounce time.Duration
	}{
		{name: "short window", debounce: 150 * time.Millisecond},
		{name: "default window", debounce: DefaultDebounce},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := &fakeEditor{path: "a.p", text: "DEFINE VARIABLE x AS INTEGER."}
			s, c := newSession(t, ed, Options{Debounce: tt.debounce})

			var startedAt atomic.Int64
			s.OnStarted(func() { startedAt.Store(time.Now().UnixNano()) })

			// five edits inside 100ms
			var last time.Time
			for i := 0; i < 5; i++ {
				if i > 0 {
					time.Sleep(20 * time.Millisecond)
				}
				s.RequestReanalysis(false)
				last = time.Now()
			}

			time.Sleep(tt.debounce - 100*time.Millisecond)
			assert.Equal(t, int32(0), c.started.Load(), "pass started before the debounce elapsed")

			require.Eventually(t, func() bool { return c.completed.Load() == 1 }, tt.debounce+2*time.Second, 10*time.Millisecond)
			time.Sleep(2 * tt.debounce)

			assert.Equal(t, int32(1), c.started.Load())
			assert.Equal(t, int32(1), c.completed.Load())
			assert.Equal(t, uint64(1), s.Snapshot().Version)
			delay := time.Duration(startedAt.Load() - last.UnixNano())
			assert.GreaterOrEqual(t, delay, tt.debounce-30*time.Millisecond)
			assert.Less(t, delay, tt.debounce+700*time.Millisecond)
		})
	}
}

func TestSession_SetDebounce(t *testing.T) {
	ed := &fakeEditor{path: "a.p"}
	s, c := newSession(t, ed, Options{Debounce: time.Hour})

	s.SetDebounce(20 * time.Millisecond)
	s.RequestReanalysis(false)

	require.Eventually(t, func() bool { return c.completed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSession_RerunOnDocumentSwitch(t *testing.T) {
	ed := &fakeEditor{path: "a.p", text: "DEFINE VARIABLE a AS INTEGER."}
	var switched atomic.Bool
	ed.onText = func(e *fakeEditor) {
		if switched.CompareAndSwap(false, true) {
			e.set("b.p", "DEFINE VARIABLE b AS CHARACTER.")
		}
	}
	s, c := newSession(t, ed, Options{})

	s.RequestReanalysis(true)

	snap := s.Snapshot()
	assert.Equal(t, "b.p", snap.FilePath)
	assert.Equal(t, ed.CurrentFilePath(), snap.FilePath)
	assert.False(t, snap.Stale)
	assert.Equal(t, uint64(1), snap.Version, "one snapshot per pass")
	_, ok := s.FindDefinition("b", 0)
	assert.True(t, ok)
	assert.Equal(t, int32(1), c.completed.Load())
}

func TestSession_RerunCapPublishesStale(t *testing.T) {
	ed := &fakeEditor{path: "a.p"}
	ed.onText = func(e *fakeEditor) {
		if e.CurrentFilePath() == "a.p" {
			e.set("b.p", "")
		} else {
			e.set("a.p", "")
		}
	}
	s, _ := newSession(t, ed, Options{MaxReruns: 2})

	s.RequestReanalysis(true)

	snap := s.Snapshot()
	assert.True(t, snap.Stale)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestSession_RerunRequestedWhileBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	ed := &fakeEditor{path: "a.p", text: "DEFINE VARIABLE x AS INTEGER."}
	ed.onText = func(*fakeEditor) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	}
	s, c := newSession(t, ed, Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RequestReanalysis(true)
	}()
	<-entered

	// A request while busy only flags a rerun and returns at once.
	s.RequestReanalysis(true)
	s.RequestReanalysis(true)
	s.runMu.Lock()
	assert.Equal(t, stateRunningRerunRequested, s.state)
	s.runMu.Unlock()

	close(release)
	<-done

	assert.Equal(t, int32(1), c.started.Load())
	assert.Equal(t, int32(1), c.completed.Load())
	assert.Equal(t, uint64(2), s.Snapshot().Version, "a single pending rerun")
	s.runMu.Lock()
	assert.Equal(t, stateIdle, s.state)
	s.runMu.Unlock()
}

func TestSession_PanicIsReportedAndRecovered(t *testing.T) {
	var calls atomic.Int32
	ed := &fakeEditor{path: "a.p", text: "DEFINE VARIABLE x AS INTEGER."}
	ed.onText = func(*fakeEditor) {
		if calls.Add(1) == 1 {
			panic("editor went away")
		}
	}
	rep := &fakeReporter{}
	s, c := newSession(t, ed, Options{Reporter: rep})

	s.RequestReanalysis(true)

	errs := rep.reported()
	require.Len(t, errs, 1)
	assert.True(t, errors.IsCode(errs[0], errors.CodeInternal))
	assert.Contains(t, errs[0].Error(), "a.p")
	assert.Zero(t, s.Snapshot().Version, "faulted pass publishes nothing")
	assert.Equal(t, int32(1), c.completed.Load())

	s.RequestReanalysis(true)
	assert.Equal(t, uint64(1), s.Snapshot().Version)
	_, ok := s.FindDefinition("x", 0)
	assert.True(t, ok)
}

func TestSession_ListenerPanicIsReported(t *testing.T) {
	rep := &fakeReporter{}
	s, c := newSession(t, &fakeEditor{path: "a.p"}, Options{Reporter: rep})
	s.OnStarted(func() { panic("bad listener") })

	s.RequestReanalysis(true)

	assert.Len(t, rep.reported(), 1)
	assert.Equal(t, int32(1), c.completed.Load())
}

func TestSession_NonSourceFileIsAnalysedEmpty(t *testing.T) {
	ed := &fakeEditor{path: "notes.txt", text: "DEFINE VARIABLE x AS INTEGER."}
	s, _ := newSession(t, ed, Options{})

	s.RequestReanalysis(true)

	assert.Equal(t, "notes.txt", s.Snapshot().FilePath)
	assert.Empty(t, s.Snapshot().Items)
}

func TestSession_InvalidSourcePattern(t *testing.T) {
	_, err := New(&fakeEditor{}, Options{SourcePatterns: []string{"["}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestSession_CloseCancelsPendingRequest(t *testing.T) {
	ed := &fakeEditor{path: "a.p"}
	s, c := newSession(t, ed, Options{Debounce: 50 * time.Millisecond})

	s.RequestReanalysis(false)
	s.Close()
	s.RequestReanalysis(false)
	s.RequestReanalysis(true)
	time.Sleep(150 * time.Millisecond)

	assert.Zero(t, c.started.Load())
}

func TestSession_CloseWaitsForImmediateChain(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	ed := &fakeEditor{path: "a.p", text: procedureSource}
	ed.onText = func(*fakeEditor) {
		once.Do(func() { close(entered) })
		<-release
	}
	s, c := newSession(t, ed, Options{})

	go s.RequestReanalysis(true)
	<-entered

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while an immediate chain was running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the chain finished")
	}
	assert.Equal(t, int32(1), c.completed.Load())
	assert.Equal(t, "a.p", s.Snapshot().FilePath)
}

func TestSession_ProcedureParameters(t *testing.T) {
	ed := &fakeEditor{path: "a.p", text: "PROCEDURE calc:\n" +
		"  DEFINE INPUT PARAMETER pIn AS INTEGER.\n" +
		"  DEFINE OUTPUT PARAMETER pOut AS CHARACTER.\n" +
		"END PROCEDURE."}
	s, _ := newSession(t, ed, Options{})
	s.RequestReanalysis(true)

	var calc index.CompletionItem
	for _, c := range s.Completions() {
		if c.Type == index.CompletionProcedure {
			calc = c
		}
	}
	require.Equal(t, "calc", calc.Text)

	params := s.ProcedureParameters(calc)
	require.Len(t, params, 2)
	assert.Equal(t, "pIn", params[0].Name)
	assert.Equal(t, "pOut", params[1].Name)
	assert.Len(t, s.Parameters("calc"), 2)
	assert.Nil(t, s.ProcedureParameters(index.CompletionItem{}))
}

func TestSession_RunParametersAndIncludes(t *testing.T) {
	dir := t.TempDir()
	ext := filepath.Join(dir, "ext.p")
	require.NoError(t, os.WriteFile(ext, []byte("DEFINE INPUT PARAMETER pName AS CHARACTER.\n"), 0o644))

	loc := fakeLocator{"ext": ext, "defs.i": filepath.Join(dir, "defs.i")}
	ed := &fakeEditor{path: "main.p", text: "RUN ext (INPUT \"x\").\nRUN missing.\n{defs.i}\n"}
	s, _ := newSession(t, ed, Options{Locator: loc})
	s.RequestReanalysis(true)

	var runs []*parser.UsePoint
	var inc *parser.Include
	for _, it := range s.Snapshot().Items {
		switch v := it.(type) {
		case *parser.UsePoint:
			runs = append(runs, v)
		case *parser.Include:
			inc = v
		}
	}
	require.Len(t, runs, 2)
	require.NotNil(t, inc)

	params, ok := s.RunParameters(runs[0])
	require.True(t, ok)
	require.Len(t, params, 1)
	assert.Equal(t, "pName", params[0].Name)

	_, ok = s.RunParameters(runs[1])
	assert.False(t, ok)

	path, ok := s.ResolveInclude(inc)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "defs.i"), path)
}
