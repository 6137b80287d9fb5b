package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/botwatch/internal/model"
)

// mockSource serves total sessions with ids "0".."total-1".
type mockSource struct {
	total    int
	failAt   int // offset that fails, -1 for none
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration

	mu      sync.Mutex
	offsets []int
}

func (m *mockSource) ListSessions(ctx context.Context, limit, offset int) ([]model.Session, int, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.offsets = append(m.offsets, offset)
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if offset == m.failAt {
		return nil, 0, errors.New("boom")
	}

	var page []model.Session
	for i := offset; i < offset+limit && i < m.total; i++ {
		page = append(page, model.Session{ID: fmt.Sprint(i)})
	}
	return page, m.total, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	sessions []int
	errs     []error
}

func (o *recordingObserver) ObserveCatalogRefresh(sessions int, d time.Duration, err error) {
	o.mu.Lock()
	o.sessions = append(o.sessions, sessions)
	o.errs = append(o.errs, err)
	o.mu.Unlock()
}

func TestPoller_Refresh(t *testing.T) {
	src := &mockSource{total: 23, failAt: -1, delay: 5 * time.Millisecond}
	obs := &recordingObserver{}
	p := New(Config{PageSize: 5, Concurrency: 2}, src, obs, nil)

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	cat := p.Catalog()
	if cat.Total != 23 || len(cat.Sessions) != 23 {
		t.Fatalf("catalog total = %d, len = %d, want 23, 23", cat.Total, len(cat.Sessions))
	}
	for i, s := range cat.Sessions {
		if s.ID != fmt.Sprint(i) {
			t.Fatalf("Sessions[%d].ID = %q, pages out of order", i, s.ID)
		}
	}
	if cat.RefreshedAt.IsZero() {
		t.Error("RefreshedAt not set")
	}
	if got := src.calls.Load(); got != 5 {
		t.Errorf("calls = %d, want 5", got)
	}
	if got := src.peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
	if len(obs.sessions) != 1 || obs.sessions[0] != 23 || obs.errs[0] != nil {
		t.Errorf("observer = %v / %v", obs.sessions, obs.errs)
	}
}

func TestPoller_MaxPages(t *testing.T) {
	src := &mockSource{total: 1000, failAt: -1}
	p := New(Config{PageSize: 10, MaxPages: 3}, src, nil, nil)

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	cat := p.Catalog()
	if len(cat.Sessions) != 30 || cat.Total != 1000 {
		t.Errorf("len = %d, total = %d, want 30, 1000", len(cat.Sessions), cat.Total)
	}
}

func TestPoller_FailedRefreshKeepsCatalog(t *testing.T) {
	src := &mockSource{total: 12, failAt: -1}
	p := New(Config{PageSize: 5}, src, nil, nil)

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	good := p.Catalog()

	src.failAt = 5
	err := p.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if p.LastError() == nil {
		t.Error("LastError() = nil after failure")
	}

	cat := p.Catalog()
	if len(cat.Sessions) != len(good.Sessions) || !cat.RefreshedAt.Equal(good.RefreshedAt) {
		t.Errorf("catalog replaced after failed refresh: %d sessions", len(cat.Sessions))
	}

	src.failAt = -1
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if p.LastError() != nil {
		t.Errorf("LastError() = %v after success", p.LastError())
	}
}

func TestPoller_CatalogIsCopy(t *testing.T) {
	src := &mockSource{total: 2, failAt: -1}
	p := New(Config{}, src, nil, nil)
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	cat := p.Catalog()
	cat.Sessions[0].ID = "mutated"
	if p.Catalog().Sessions[0].ID != "0" {
		t.Error("Catalog() exposes internal slice")
	}
}

func TestPoller_StartStop(t *testing.T) {
	src := &mockSource{total: 3, failAt: -1}
	p := New(Config{Interval: 20 * time.Millisecond}, src, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Initial refresh plus at least one tick.
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if src.calls.Load() < 2 {
		t.Fatalf("calls = %d, want >= 2", src.calls.Load())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	after := src.calls.Load()
	time.Sleep(60 * time.Millisecond)
	if got := src.calls.Load(); got != after {
		t.Errorf("calls after Stop = %d, want %d", got, after)
	}
	if len(p.Catalog().Sessions) != 3 {
		t.Errorf("len(Sessions) = %d, want 3", len(p.Catalog().Sessions))
	}
}
