package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"promobot/internal/stats"
	"promobot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) returned a store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestAppendAndReadBack(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "promobot.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	rows := []stats.CampaignResult{
		{ChatName: "Community", Total: 135, Delivered: 130, Blocked: 3, Failed: 2, At: time.Now().Add(-time.Hour)},
		{ChatName: "Announcements", Total: 40, Delivered: 40, At: time.Now()},
	}
	for _, r := range rows {
		if err := st.AppendCampaign(ctx, r); err != nil {
			t.Fatalf("AppendCampaign error: %v", err)
		}
	}

	got, err := st.RecentCampaigns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentCampaigns error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].ChatName != "Announcements" || got[1].ChatName != "Community" {
		t.Fatalf("unexpected order: %q then %q", got[0].ChatName, got[1].ChatName)
	}
	if got[1].Delivered != 130 || got[1].Blocked != 3 || got[1].Failed != 2 {
		t.Fatalf("counts round-trip failed: %+v", got[1])
	}
}

func TestRecentCampaignsLimit(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "p.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := st.AppendCampaign(ctx, stats.CampaignResult{ChatName: "c", Total: 1, Delivered: 1}); err != nil {
			t.Fatalf("AppendCampaign error: %v", err)
		}
	}
	got, err := st.RecentCampaigns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentCampaigns error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
}
