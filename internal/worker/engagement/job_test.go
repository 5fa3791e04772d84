package engagement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// --- テスト用モック ---

type mockEngagementRepo struct {
	mu       sync.Mutex
	calls    []time.Time
	upserted int64
	removed  int64
	err      error
}

func (m *mockEngagementRepo) Recompute(_ context.Context, at time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, at)
	if m.err != nil {
		return 0, 0, m.err
	}
	return m.upserted, m.removed, nil
}

func (m *mockEngagementRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockMetrics struct {
	upserted, removed int64
	calls             int
}

func (m *mockMetrics) RecordFeedPage(string, int)          {}
func (m *mockMetrics) RecordFeedFailure(string)            {}
func (m *mockMetrics) RecordAssembleLatency(time.Duration) {}
func (m *mockMetrics) RecordThreadNodes(int)               {}
func (m *mockMetrics) RecordHTTPStatus(int)                {}
func (m *mockMetrics) RecordEngagementRecompute(upserted, removed int64) {
	m.calls++
	m.upserted = upserted
	m.removed = removed
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// --- テスト ---

func TestJob_Run_RecomputesAndRecords(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockEngagementRepo{upserted: 12, removed: 3}
	m := &mockMetrics{}
	job := NewJob(repo, m, newTestLogger(&buf))
	fixed := time.Date(2024, 6, 1, 21, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if len(repo.calls) != 1 {
		t.Fatalf("Recompute calls = %d, want 1", len(repo.calls))
	}
	if !repo.calls[0].Equal(fixed) || repo.calls[0].Location() != time.UTC {
		t.Errorf("Recompute at = %v, want %v in UTC", repo.calls[0], fixed)
	}
	if m.calls != 1 || m.upserted != 12 || m.removed != 3 {
		t.Errorf("metrics = %+v", m)
	}

	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry["upserted_count"] == float64(12) && entry["removed_count"] == float64(3) {
			found = true
		}
	}
	if !found {
		t.Errorf("ログに件数が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestJob_Run_Error(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockEngagementRepo{err: errors.New("db down")}
	m := &mockMetrics{}
	job := NewJob(repo, m, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil || !errors.Is(err, repo.err) {
		t.Fatalf("error = %v, want wrapped repository error", err)
	}
	if m.calls != 0 {
		t.Error("metrics must not be recorded on failure")
	}
	if !strings.Contains(buf.String(), "db down") {
		t.Errorf("エラーがログに記録されていない: %s", buf.String())
	}
}

func TestJob_Start_RunsImmediatelyAndStops(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockEngagementRepo{}
	job := NewJob(repo, nil, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for repo.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Recompute calls = %d, want >= 2", repo.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestJob_Start_ContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	repo := &mockEngagementRepo{err: errors.New("db down")}
	job := NewJob(repo, nil, newTestLogger(&buf))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	job.Start(ctx, 10*time.Millisecond)

	if repo.callCount() < 2 {
		t.Errorf("Recompute calls = %d, want retries after failure", repo.callCount())
	}
}
