// Package app wires the bot together: config, transport, campaign
// engine, statistics, persistence and the digest schedule.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"promobot/internal/campaign"
	"promobot/internal/config"
	"promobot/internal/services/digest"
	"promobot/internal/session"
	"promobot/internal/stats"
	"promobot/internal/storage"
	"promobot/internal/transport"
	teleadapter "promobot/internal/transport/telegram/adapter"
	"promobot/internal/transport/telegram/directory"
	"promobot/pkg/logx"
)

const updateQueueSize = 256

// copyDelivery adapts the transport adapter's copy primitive to the
// dispatcher's delivery port.
type copyDelivery struct {
	adapter transport.Adapter
}

func (d copyDelivery) Deliver(ctx context.Context, recipientID int64, handle transport.MessageRef) error {
	return d.adapter.CopyMessage(ctx, recipientID, handle)
}

type App struct {
	log    logx.Logger
	cfgMgr *config.Manager

	adapter *teleadapter.Adapter
	store   storage.Store
	orch    *campaign.Orchestrator
	digest  *digest.Service

	updates chan transport.Update

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(cfgMgr *config.Manager, log logx.Logger) (*App, error) {
	cfg := cfgMgr.Get()
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	pollTimeout, err := config.ParseDuration(cfg.Telegram.PollTimeout, 0)
	if err != nil {
		return nil, err
	}
	adapter, err := teleadapter.New(teleadapter.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	dirTimeout, err := config.ParseDuration(cfg.Directory.Timeout, 0)
	if err != nil {
		return nil, err
	}
	dir, err := directory.New(directory.Config{
		BaseURL: cfg.Directory.BaseURL,
		Timeout: dirTimeout,
	}, log.With(logx.String("comp", "directory")))
	if err != nil {
		return nil, fmt.Errorf("directory client: %w", err)
	}

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDuration(cfg.Storage.BusyTimeout, 0)
		if err != nil {
			return nil, err
		}
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	}

	var recorder stats.Recorder
	if store != nil {
		recorder = store
	}
	agg := stats.NewAggregator(recorder, log.With(logx.String("comp", "stats")))

	reporter := campaign.NewReporter(adapter, log.With(logx.String("comp", "reporter")))
	extractor := campaign.NewExtractor(dir, log.With(logx.String("comp", "extractor")))
	dispatcher := campaign.NewDispatcher(copyDelivery{adapter: adapter}, log.With(logx.String("comp", "dispatcher")))

	orch := campaign.NewOrchestrator(
		session.NewStore(),
		extractor,
		dispatcher,
		agg,
		reporter,
		cfg.Admins,
		cfg.Broadcast.MessagesPerMinute,
		log.With(logx.String("comp", "orchestrator")),
	)
	if store != nil {
		orch.SetHistorian(store)
	}

	var dig *digest.Service
	if cfg.Digest != nil && cfg.Digest.Enabled {
		dig = digest.New(agg, reporter, cfg.Admins, cfg.Digest.Schedule,
			log.With(logx.String("comp", "digest")))
	}

	return &App{
		log:     log,
		cfgMgr:  cfgMgr,
		adapter: adapter,
		store:   store,
		orch:    orch,
		digest:  dig,
		updates: make(chan transport.Update, updateQueueSize),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}

	// Update pump: one goroutine per event. Per-operator serialization
	// happens inside the orchestrator via the session store's locks, so
	// a long dispatch for one operator never stalls the others.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case up := <-a.updates:
				a.wg.Add(1)
				go func() {
					defer a.wg.Done()
					a.orch.HandleUpdate(runCtx, up)
				}()
			}
		}
	}()

	// Config hot reload: only the rate cap applies live; everything
	// else needs a restart.
	sub := a.cfgMgr.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgMgr.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok || cfg == nil {
					return
				}
				old := a.orch.MessagesPerMinute()
				a.orch.SetMessagesPerMinute(cfg.Broadcast.MessagesPerMinute)
				if old != cfg.Broadcast.MessagesPerMinute {
					a.log.Info("send rate updated",
						logx.Int("was", old),
						logx.Int("now", cfg.Broadcast.MessagesPerMinute))
				}
			}
		}
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(runCtx)
	}()

	if a.digest != nil {
		if err := a.digest.Start(runCtx); err != nil {
			return err
		}
	}

	// Best-effort: only meaningful under systemd Type=notify.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	a.log.Info("bot started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	started := a.started
	a.started = false
	a.mu.Unlock()
	if !started {
		return nil
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if cancel != nil {
		cancel()
	}
	if a.digest != nil {
		a.digest.Stop()
	}
	_ = a.adapter.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown wait cut short", logx.Err(ctx.Err()))
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}

	a.log.Info("bot stopped")
	return nil
}
