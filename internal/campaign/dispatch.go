package campaign

import (
	"context"
	"strings"
	"time"

	"promobot/internal/transport"
	"promobot/pkg/logx"
)

// progressEvery is the delivered-count interval between progress reports.
const progressEvery = 20

// Outcome tallies one finished dispatch. The counts always sum to the
// number of recipients handed to Dispatch.
type Outcome struct {
	Delivered int
	Blocked   int
	Failed    int
}

// ProgressFunc reports interim progress. Errors are swallowed: a broken
// reporting surface must never abort a running dispatch.
type ProgressFunc func(delivered, total int) error

// Dispatcher sends one message to every recipient at a bounded rate,
// one in-flight delivery at a time, exactly one attempt per recipient.
type Dispatcher struct {
	delivery Delivery
	log      logx.Logger
}

func NewDispatcher(delivery Delivery, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{delivery: delivery, log: log}
}

// Dispatch walks recipients strictly in order and delivers the handle to
// each. Failures are classified and tallied, never retried, and never
// end the run early: once started, the loop processes the full set.
//
// After every attempt the loop pauses for delay (including after the
// last one; the trailing pause is harmless). ctx cancellation does not
// abort the loop either, it only makes remaining deliveries fail fast,
// so the outcome invariant holds even through shutdown.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []int64, handle transport.MessageRef, delay time.Duration, progress ProgressFunc) Outcome {
	start := time.Now()
	total := len(recipients)
	var out Outcome

	d.log.Info("dispatch started",
		logx.Int("recipients", total),
		logx.Duration("delay", delay),
	)

	for _, id := range recipients {
		err := d.delivery.Deliver(ctx, id, handle)
		switch {
		case err == nil:
			out.Delivered++
			if progress != nil && out.Delivered%progressEvery == 0 {
				if perr := progress(out.Delivered, total); perr != nil {
					d.log.Warn("progress report degraded", logx.Err(perr))
				}
			}
		case recipientBlocked(err):
			out.Blocked++
			d.log.Debug("recipient blocked sender", logx.Int64("recipient", id), logx.Err(err))
		default:
			out.Failed++
			d.log.Warn("delivery failed", logx.Int64("recipient", id), logx.Err(err))
		}

		if delay > 0 {
			sleep(ctx, delay)
		}
	}

	d.log.Info("dispatch finished",
		logx.Int("delivered", out.Delivered),
		logx.Int("blocked", out.Blocked),
		logx.Int("failed", out.Failed),
		logx.Duration("dur", time.Since(start)),
	)
	return out
}

// recipientBlocked classifies a delivery error as "recipient has blocked
// the sender" by substring match on the lowercased diagnostic. The
// delivery collaborator exposes no structured codes, so text matching is
// the documented (and admittedly fragile) classification rule.
func recipientBlocked(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "blocked")
}

func sleep(ctx context.Context, d time.Duration) {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
	case <-tmr.C:
	}
}
