package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mblanc/ccmeter/internal/models"
)

type fakeSource struct {
	mu      sync.Mutex
	records []models.UsageRecord
	err     error
	calls   int32

	// entered/release let a test hold a refresh in flight.
	entered chan struct{}
	release chan struct{}
}

func (s *fakeSource) Records(ctx context.Context, since time.Time) ([]models.UsageRecord, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records, s.err
}

func (s *fakeSource) set(records []models.UsageRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.err = err
}

type fakeStore struct {
	cal models.Calibration
	err error
}

func (s *fakeStore) Load() (models.Calibration, error) {
	return s.cal, s.err
}

func testEngine(source Source, store CalibrationStore, now time.Time) *Engine {
	return New(source, store, Options{
		Cutoffs: Cutoffs{Warn: 0.80, Abort: 0.90, Reserve: 0.05},
		Now:     func() time.Time { return now },
	})
}

func TestEngine_RefreshAndPeek(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local)
	source := &fakeSource{records: []models.UsageRecord{
		rec(time.Date(2026, 8, 26, 10, 0, 0, 0, time.Local), "claude-sonnet-4-5", 40),
	}}
	e := testEngine(source, &fakeStore{cal: testCalibration()}, now)

	if e.Peek() != nil {
		t.Error("Peek before first refresh should be nil")
	}

	snap, err := e.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if snap == nil {
		t.Fatal("Refresh returned nil snapshot")
	}
	if snap.Today.CostUSD != 40 {
		t.Errorf("Today cost = %v, want 40", snap.Today.CostUSD)
	}
	if snap.Uncalibrated {
		t.Error("Calibrated store must not mark the snapshot uncalibrated")
	}
	if got := e.Peek(); got != snap {
		t.Error("Peek should return the snapshot the refresh produced")
	}
}

func TestEngine_FailedRefreshKeepsSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local)
	source := &fakeSource{records: []models.UsageRecord{
		rec(time.Date(2026, 8, 26, 10, 0, 0, 0, time.Local), "claude-sonnet-4-5", 40),
	}}
	e := testEngine(source, &fakeStore{cal: testCalibration()}, now)

	first, err := e.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	source.set(nil, models.ErrSourceUnavailable)
	snap, err := e.Refresh(context.Background())
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
	if snap != first {
		t.Error("Failed refresh must return the previous snapshot")
	}
	if e.Peek() != first {
		t.Error("Peek after a failed refresh must be unchanged")
	}
}

func TestEngine_ConcurrentRefreshCoalesces(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local)
	source := &fakeSource{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	e := testEngine(source, &fakeStore{cal: testCalibration()}, now)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = e.Refresh(context.Background())
	}()

	// Wait until the first refresh is inside the source, then start a
	// second; it must coalesce onto the in-flight one.
	<-source.entered
	go func() {
		defer wg.Done()
		_, _ = e.Refresh(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()

	if calls := atomic.LoadInt32(&source.calls); calls != 1 {
		t.Errorf("Source called %d times, want 1 (coalesced)", calls)
	}
}

func TestEngine_CoalescedCallerHonorsContext(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local)
	source := &fakeSource{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	e := testEngine(source, &fakeStore{cal: testCalibration()}, now)

	done := make(chan struct{})
	go func() {
		_, _ = e.Refresh(context.Background())
		close(done)
	}()
	<-source.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	close(source.release)
	<-done
}

func TestEngine_UncalibratedDefaults(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local)
	source := &fakeSource{}
	e := testEngine(source, &fakeStore{cal: models.DefaultCalibration()}, now)

	snap, err := e.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !snap.Uncalibrated {
		t.Error("Default calibration must mark the snapshot uncalibrated")
	}
	if len(snap.Caps) != 2 {
		t.Errorf("Expected 2 default caps, got %d", len(snap.Caps))
	}
	if snap.Gate != models.GatePermit {
		t.Errorf("Empty week should permit, got %v", snap.Gate)
	}
}

func TestEngine_DedupAcrossOverlappingFetches(t *testing.T) {
	now := time.Date(2026, 8, 26, 18, 0, 0, 0, time.Local)
	r := rec(time.Date(2026, 8, 26, 10, 0, 0, 0, time.Local), "claude-sonnet-4-5", 40)
	r.RequestID = "req-1"
	source := &fakeSource{records: []models.UsageRecord{r, r}}
	e := testEngine(source, &fakeStore{cal: testCalibration()}, now)

	snap, err := e.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if snap.Today.CostUSD != 40 {
		t.Errorf("Duplicate record counted twice: cost = %v, want 40", snap.Today.CostUSD)
	}
	if snap.Today.Records != 1 {
		t.Errorf("Records = %d, want 1", snap.Today.Records)
	}
}
