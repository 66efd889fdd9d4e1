// Package digest periodically sends the cumulative campaign statistics
// to every admin. It is an operational convenience, disabled by default.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"promobot/internal/campaign"
	"promobot/internal/stats"
	"promobot/pkg/logx"
	"promobot/pkg/tgui"
)

const defaultSchedule = "0 9 * * *"

type Service struct {
	agg      *stats.Aggregator
	reporter *campaign.Reporter
	admins   []int64
	schedule string
	log      logx.Logger

	cron *cron.Cron
}

func New(agg *stats.Aggregator, reporter *campaign.Reporter, admins []int64, schedule string, log logx.Logger) *Service {
	if schedule == "" {
		schedule = defaultSchedule
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{agg: agg, reporter: reporter, admins: admins, schedule: schedule, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() { s.send(ctx) })
	if err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	c.Start()
	s.log.Info("digest scheduled", logx.String("schedule", s.schedule), logx.Int("admins", len(s.admins)))
	return nil
}

func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(2 * time.Second):
		s.log.Warn("digest stop timed out")
	}
}

func (s *Service) send(ctx context.Context) {
	snap := s.agg.Snapshot()
	text := digestText(snap)
	for _, id := range s.admins {
		s.reporter.Send(ctx, id, text, nil)
	}
	s.log.Debug("digest sent", logx.Int("admins", len(s.admins)), logx.Int("campaigns", snap.Campaigns))
}

func digestText(s stats.Snapshot) string {
	parts := []tgui.H{
		tgui.B("📊 Daily campaign digest"),
		tgui.JoinH("\n",
			tgui.H("Campaigns: ")+tgui.Esc(fmt.Sprintf("%d", s.Campaigns)),
			tgui.H("Delivered: ")+tgui.Esc(fmt.Sprintf("%d", s.Delivered)),
			tgui.H("Blocked: ")+tgui.Esc(fmt.Sprintf("%d", s.Blocked)),
			tgui.H("Failed: ")+tgui.Esc(fmt.Sprintf("%d", s.Failed)),
		),
	}
	if s.Last != nil {
		parts = append(parts, tgui.Esc(fmt.Sprintf("Last: %s — %d/%d delivered (%s)",
			s.Last.ChatName, s.Last.Delivered, s.Last.Total, s.Last.At.Format(time.RFC822))))
	}
	return string(tgui.JoinH("\n\n", parts...))
}
