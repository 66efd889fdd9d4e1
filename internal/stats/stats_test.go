package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"promobot/pkg/logx"
)

type memRecorder struct {
	mu   sync.Mutex
	rows []CampaignResult
	err  error
}

func (r *memRecorder) AppendCampaign(_ context.Context, res CampaignResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, res)
	return nil
}

func TestRecordAccumulates(t *testing.T) {
	t.Parallel()
	a := NewAggregator(nil, logx.Nop())
	ctx := context.Background()

	outs := []Outcome{
		{Delivered: 10, Blocked: 2, Failed: 1},
		{Delivered: 5},
		{Blocked: 1, Failed: 4},
	}
	for i, out := range outs {
		a.Record(ctx, "chat", out.Delivered+out.Blocked+out.Failed, out)
		snap := a.Snapshot()
		if snap.Campaigns != i+1 {
			t.Fatalf("campaigns = %d, want %d", snap.Campaigns, i+1)
		}
	}

	snap := a.Snapshot()
	if snap.Delivered != 15 || snap.Blocked != 3 || snap.Failed != 5 {
		t.Fatalf("cumulative = %+v, want delivered=15 blocked=3 failed=5", snap)
	}
	if snap.Last == nil || snap.Last.Failed != 4 {
		t.Fatalf("last = %+v, want the third campaign", snap.Last)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()
	a := NewAggregator(nil, logx.Nop())
	a.Record(context.Background(), "chat", 3, Outcome{Delivered: 3})

	snap := a.Snapshot()
	snap.Last.ChatName = "mutated"
	snap.Delivered = 999

	again := a.Snapshot()
	if again.Last.ChatName != "chat" || again.Delivered != 3 {
		t.Fatalf("aggregator state leaked through snapshot: %+v", again)
	}
}

func TestRecordSetsTimestamp(t *testing.T) {
	t.Parallel()
	a := NewAggregator(nil, logx.Nop())
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	a.Record(context.Background(), "chat", 1, Outcome{Delivered: 1})
	if got := a.Snapshot().Last.At; !got.Equal(fixed) {
		t.Fatalf("At = %v, want %v", got, fixed)
	}
}

func TestRecorderFailureDoesNotPropagate(t *testing.T) {
	t.Parallel()
	rec := &memRecorder{err: errors.New("disk full")}
	a := NewAggregator(rec, logx.Nop())

	a.Record(context.Background(), "chat", 2, Outcome{Delivered: 2})
	if snap := a.Snapshot(); snap.Campaigns != 1 || snap.Delivered != 2 {
		t.Fatalf("in-memory counters must survive recorder failure: %+v", snap)
	}
}

func TestConcurrentRecords(t *testing.T) {
	t.Parallel()
	a := NewAggregator(&memRecorder{}, logx.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Record(ctx, "chat", 2, Outcome{Delivered: 1, Failed: 1})
		}()
	}
	wg.Wait()

	snap := a.Snapshot()
	if snap.Campaigns != n || snap.Delivered != n || snap.Failed != n {
		t.Fatalf("snapshot = %+v, want %d campaigns", snap, n)
	}
}
