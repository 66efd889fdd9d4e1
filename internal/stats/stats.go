package stats

import (
	"context"
	"sync"
	"time"

	"promobot/pkg/logx"
)

// Outcome mirrors one finished dispatch tally.
type Outcome struct {
	Delivered int
	Blocked   int
	Failed    int
}

// CampaignResult is the immutable record of one completed campaign.
type CampaignResult struct {
	ChatName  string
	Total     int
	Delivered int
	Blocked   int
	Failed    int
	At        time.Time
}

// Snapshot is an immutable copy of the process-wide counters.
type Snapshot struct {
	Campaigns int
	Delivered int
	Blocked   int
	Failed    int
	Last      *CampaignResult
}

// Recorder is the optional persistence port: an implementation may
// append finished campaigns to durable storage. The aggregator itself
// stays in-memory; persistence failures are logged, never propagated.
type Recorder interface {
	AppendCampaign(ctx context.Context, r CampaignResult) error
}

// Aggregator accumulates dispatch outcomes across campaigns. It starts
// empty at process start and has a single mutation point (Record),
// atomic with respect to concurrent campaigns from different operators.
type Aggregator struct {
	mu   sync.Mutex
	snap Snapshot

	rec Recorder
	log logx.Logger
	now func() time.Time
}

func NewAggregator(rec Recorder, log logx.Logger) *Aggregator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Aggregator{rec: rec, log: log, now: time.Now}
}

// Record folds one dispatch outcome into the cumulative counters and
// replaces the most-recent campaign result.
func (a *Aggregator) Record(ctx context.Context, chatName string, total int, out Outcome) {
	res := CampaignResult{
		ChatName:  chatName,
		Total:     total,
		Delivered: out.Delivered,
		Blocked:   out.Blocked,
		Failed:    out.Failed,
		At:        a.now(),
	}

	a.mu.Lock()
	a.snap.Campaigns++
	a.snap.Delivered += out.Delivered
	a.snap.Blocked += out.Blocked
	a.snap.Failed += out.Failed
	a.snap.Last = &res
	a.mu.Unlock()

	if a.rec != nil {
		if err := a.rec.AppendCampaign(ctx, res); err != nil {
			a.log.Warn("campaign history append failed", logx.Err(err), logx.String("chat", chatName))
		}
	}
}

// Snapshot returns a copy safe to read without further locking.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.snap
	if a.snap.Last != nil {
		last := *a.snap.Last
		s.Last = &last
	}
	return s
}
