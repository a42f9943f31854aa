package suite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/streamprobe/internal/pages"
	"github.com/xkilldash9x/streamprobe/internal/reporting"
	"github.com/xkilldash9x/streamprobe/internal/scenario"
)

type fakeWorker struct {
	id     int
	delay  time.Duration
	fail   map[string]bool
	closed atomic.Bool
	ran    atomic.Int32
}

func (w *fakeWorker) RunScenario(ctx context.Context, sc scenario.Scenario) *reporting.Entry {
	w.ran.Add(1)
	select {
	case <-time.After(w.delay):
	case <-ctx.Done():
		return &reporting.Entry{Name: sc.Name, Status: reporting.StatusError, Error: ctx.Err().Error()}
	}
	if w.fail[sc.Name] {
		return NewEntry(sc, &scenario.Result{URL: "https://m.twitch.tv/x"},
			&scenario.AssertionError{Check: "player_visible", Message: "video player not visible"}, "", time.Now())
	}
	return NewEntry(sc, &scenario.Result{Selection: selectionFor(sc)}, nil, fmt.Sprintf("session-%d", w.id), time.Now())
}

func selectionFor(sc scenario.Scenario) pages.Selection {
	return pages.Selection{Requested: sc.StreamerIndex, Actual: sc.StreamerIndex, Available: 5}
}

func (w *fakeWorker) Close() error {
	w.closed.Store(true)
	return nil
}

type pool struct {
	mu        sync.Mutex
	workers   map[int]*fakeWorker
	startedAt map[int]time.Time
	failIDs   map[int]error
	delay     time.Duration
	fail      map[string]bool
}

func newPool() *pool {
	return &pool{workers: map[int]*fakeWorker{}, startedAt: map[int]time.Time{}, failIDs: map[int]error{}}
}

func (p *pool) factory(ctx context.Context, id int) (Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startedAt[id] = time.Now()
	if err := p.failIDs[id]; err != nil {
		return nil, err
	}
	w := &fakeWorker{id: id, delay: p.delay, fail: p.fail}
	p.workers[id] = w
	return w, nil
}

type memReporter struct {
	mu      sync.Mutex
	entries []*reporting.Entry
}

func (r *memReporter) Write(e *reporting.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memReporter) Close() error { return nil }

func scenarios(n int) []scenario.Scenario {
	out := make([]scenario.Scenario, n)
	for i := range out {
		out[i] = scenario.Scenario{Name: fmt.Sprintf("s%d", i), Query: "StarCraft II", StreamerIndex: i % 3}
	}
	return out
}

func TestSuite_EveryScenarioOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newPool()
	p.delay = 5 * time.Millisecond
	rep := &memReporter{}
	scs := scenarios(7)
	s, err := New(scs, p.factory, rep, Options{Workers: 3}, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, out.Entries, 7)
	for i, e := range out.Entries {
		require.NotNil(t, e)
		assert.Equal(t, scs[i].Name, e.Name)
		assert.Equal(t, reporting.StatusPassed, e.Status)
		assert.GreaterOrEqual(t, e.Worker, 1)
		assert.LessOrEqual(t, e.Worker, 3)
	}
	assert.Equal(t, reporting.Summary{Total: 7, Passed: 7, Duration: out.Summary.Duration}, out.Summary)
	assert.Len(t, rep.entries, 7)

	var ran int32
	for _, w := range p.workers {
		assert.True(t, w.closed.Load())
		ran += w.ran.Load()
	}
	assert.Equal(t, int32(7), ran)
}

func TestSuite_FailuresAreEntries(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newPool()
	p.fail = map[string]bool{"s1": true}
	s, err := New(scenarios(3), p.factory, nil, Options{Workers: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reporting.StatusFailed, out.Entries[1].Status)
	assert.Equal(t, "player_visible", out.Entries[1].Check)
	assert.Equal(t, 1, out.Summary.Failed)
	assert.False(t, out.Summary.OK())
}

func TestSuite_ProvisioningFailureSurfaces(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("chrome not installed")
	p := newPool()
	p.failIDs[2] = boom
	s, err := New(scenarios(5), p.factory, nil, Options{Workers: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "worker 2")

	// The healthy worker still runs everything.
	require.Len(t, out.Entries, 5)
	for _, e := range out.Entries {
		assert.Equal(t, reporting.StatusPassed, e.Status)
		assert.Equal(t, 1, e.Worker)
	}
}

func TestSuite_NoWorkerAvailable(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("driver failed to start")
	p := newPool()
	p.failIDs[1] = boom
	rep := &memReporter{}
	s, err := New(scenarios(3), p.factory, rep, Options{Workers: 1}, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := s.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	require.Len(t, out.Entries, 3)
	for _, e := range out.Entries {
		assert.Equal(t, reporting.StatusError, e.Status)
		assert.Contains(t, e.Error, "not run")
		assert.Contains(t, e.Error, boom.Error())
	}
	assert.Len(t, rep.entries, 3)
	assert.Equal(t, 3, out.Summary.Errored)
}

func TestSuite_CancelledBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newPool()
	s, err := New(scenarios(2), p.factory, nil, Options{Workers: 2, StartInterval: time.Hour}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, out.Entries, 2)
	for _, e := range out.Entries {
		assert.Equal(t, reporting.StatusError, e.Status)
	}
}

func TestSuite_StaggersWorkerStarts(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newPool()
	interval := 40 * time.Millisecond
	s, err := New(scenarios(3), p.factory, nil, Options{Workers: 3, StartInterval: interval}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, p.startedAt, 3)
	var first, last time.Time
	for _, ts := range p.startedAt {
		if first.IsZero() || ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	// Three starts with a burst of one need at least two intervals.
	assert.GreaterOrEqual(t, last.Sub(first), 2*interval-10*time.Millisecond)
}

func TestNew(t *testing.T) {
	logger := zaptest.NewLogger(t)
	p := newPool()

	_, err := New(scenarios(1), nil, nil, Options{}, logger)
	assert.Error(t, err)
	_, err = New(scenarios(1), p.factory, nil, Options{}, nil)
	assert.Error(t, err)

	s, err := New(scenarios(2), p.factory, nil, Options{Workers: 8}, logger)
	require.NoError(t, err)
	assert.Equal(t, 2, s.opts.Workers)

	s, err = New(scenarios(2), p.factory, nil, Options{}, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, s.opts.Workers)
}
