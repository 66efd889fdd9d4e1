package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"promobot/internal/session"
	"promobot/internal/stats"
	"promobot/internal/transport"
	"promobot/pkg/logx"
	"promobot/pkg/tgui"
)

// Orchestrator is the per-operator campaign state machine. It turns
// operator input events (commands, buttons, text) into calls on the
// session store, the extractor, the dispatcher and the statistics
// aggregator.
//
// All session-touching paths run under the store's per-operator lock,
// so a second input from the same operator queues behind an in-flight
// extraction or dispatch instead of racing it. Inputs from different
// operators proceed concurrently.
type Orchestrator struct {
	log        logx.Logger
	sessions   *session.Store
	extractor  *Extractor
	dispatcher *Dispatcher
	stats      *stats.Aggregator
	reporter   *Reporter

	admins map[int64]struct{}

	// hist is the optional campaign history reader (nil when the
	// persistence layer is disabled).
	hist Historian

	// mpm is the hot-reloadable messages-per-minute cap.
	mpm atomic.Int64
}

// Historian reads back persisted campaign results for the admin panel.
type Historian interface {
	RecentCampaigns(ctx context.Context, limit int) ([]stats.CampaignResult, error)
}

func NewOrchestrator(
	sessions *session.Store,
	extractor *Extractor,
	dispatcher *Dispatcher,
	agg *stats.Aggregator,
	reporter *Reporter,
	adminIDs []int64,
	messagesPerMinute int,
	log logx.Logger,
) *Orchestrator {
	if log.IsZero() {
		log = logx.Nop()
	}
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	o := &Orchestrator{
		log:        log,
		sessions:   sessions,
		extractor:  extractor,
		dispatcher: dispatcher,
		stats:      agg,
		reporter:   reporter,
		admins:     admins,
	}
	o.mpm.Store(int64(messagesPerMinute))
	return o
}

// SetMessagesPerMinute applies a reloaded rate cap. It affects the next
// dispatch; an in-flight one keeps the delay it started with.
func (o *Orchestrator) SetMessagesPerMinute(n int) {
	if n < 0 {
		n = 0
	}
	o.mpm.Store(int64(n))
}

func (o *Orchestrator) MessagesPerMinute() int { return int(o.mpm.Load()) }

// SetHistorian enables the admin history view. Call before Start; the
// field is not guarded.
func (o *Orchestrator) SetHistorian(h Historian) { o.hist = h }

func (o *Orchestrator) isAdmin(id int64) bool {
	_, ok := o.admins[id]
	return ok
}

// HandleUpdate processes one operator input event. It is safe to call
// from concurrent goroutines (the app runs one goroutine per event).
func (o *Orchestrator) HandleUpdate(ctx context.Context, up transport.Update) {
	switch up.Kind {
	case transport.UpdateMessage:
		if up.Message != nil {
			o.handleMessage(ctx, up.Message)
		}
	case transport.UpdateCallback:
		if up.Callback != nil {
			o.handleCallback(ctx, up.Callback)
		}
	}
}

func (o *Orchestrator) handleMessage(ctx context.Context, m *transport.Message) {
	text := strings.TrimSpace(m.Text)
	if strings.HasPrefix(text, "/") {
		o.handleCommand(ctx, m, text)
		return
	}

	// Non-admin plain text is ignored outright: non-admins can never
	// hold a session, and echoing denials at every group message would
	// be noise.
	if !o.isAdmin(m.FromID) {
		return
	}

	unlock := o.sessions.Lock(m.FromID)
	defer unlock()
	o.handleText(ctx, m)
}

func (o *Orchestrator) handleCommand(ctx context.Context, m *transport.Message, text string) {
	cmd, _, _ := strings.Cut(text, " ")
	// Strip the @botname suffix Telegram appends in groups.
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/start":
		if !o.isAdmin(m.FromID) {
			o.reporter.Send(ctx, m.ChatID, string(tgui.Esc(deniedText)), nil)
			return
		}
		o.reporter.Send(ctx, m.ChatID, welcomeText(), mainMenuMarkup())

	case "/myid":
		// Identity helpers are read-only and intentionally unauthenticated:
		// operators use /myid to find the id to put on the allow-list.
		o.reporter.Send(ctx, m.ChatID,
			string(tgui.H("🆔 Your id: ")+tgui.Code(fmt.Sprintf("%d", m.FromID))), nil)

	case "/chatid":
		o.reporter.Send(ctx, m.ChatID,
			string(tgui.H("🆔 This chat id: ")+tgui.Code(fmt.Sprintf("%d", m.ChatID))), nil)

	case "/cancel":
		unlock := o.sessions.Lock(m.FromID)
		defer unlock()
		if o.sessions.Get(m.FromID) != nil {
			o.sessions.Remove(m.FromID)
			o.log.Info("campaign draft cancelled", logx.Int64("operator", m.FromID))
			o.reporter.Send(ctx, m.ChatID, string(tgui.Esc(cancelledText)), nil)
		} else {
			o.reporter.Send(ctx, m.ChatID, string(tgui.Esc(noOperationText)), nil)
		}

	case "/admin":
		if !o.isAdmin(m.FromID) {
			o.reporter.Send(ctx, m.ChatID, string(tgui.Esc(deniedText)), nil)
			return
		}
		o.reporter.Send(ctx, m.ChatID, adminPanelText(), adminMarkup())
	}
	// Unknown commands fall through silently.
}

func (o *Orchestrator) handleCallback(ctx context.Context, cb *transport.Callback) {
	o.reporter.Answer(ctx, cb.ID)

	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	if !o.isAdmin(cb.FromID) {
		o.reporter.Edit(ctx, ref, string(tgui.Esc(deniedText)), nil)
		return
	}

	scope, action := tgui.Split(cb.Data)
	switch scope {
	case "campaign":
		unlock := o.sessions.Lock(cb.FromID)
		defer unlock()
		switch action {
		case "start":
			o.sessions.Put(cb.FromID, &session.Session{Step: session.StepAwaitingChannel})
			o.log.Info("campaign draft started", logx.Int64("operator", cb.FromID))
			o.reporter.Edit(ctx, ref, askChannelText(), nil)
		case "confirm":
			o.runCampaign(ctx, cb.FromID, ref)
		case "cancel":
			o.sessions.Remove(cb.FromID)
			o.log.Info("campaign draft cancelled", logx.Int64("operator", cb.FromID))
			o.reporter.Edit(ctx, ref, string(tgui.Esc(cancelledText)), nil)
		}

	case "help":
		if action == "show" {
			o.reporter.Edit(ctx, ref, helpText(), nil)
		}

	case "stats":
		if action == "view" {
			o.reporter.Edit(ctx, ref, statsText(o.stats.Snapshot()), nil)
		}

	case "admin":
		switch action {
		case "rates":
			o.reporter.Edit(ctx, ref, ratesText(o.MessagesPerMinute()), nil)
		case "history":
			o.reporter.Edit(ctx, ref, o.historyView(ctx), nil)
		}
	}
}

func (o *Orchestrator) historyView(ctx context.Context) string {
	if o.hist == nil {
		return string(tgui.Esc("History is not enabled (no storage configured)."))
	}
	results, err := o.hist.RecentCampaigns(ctx, 10)
	if err != nil {
		o.log.Warn("history read failed", logx.Err(err))
		return string(tgui.Esc("Could not read campaign history."))
	}
	return historyText(results)
}

// handleText advances the draft state machine for a plain message.
// Caller holds the operator lock.
func (o *Orchestrator) handleText(ctx context.Context, m *transport.Message) {
	sess := o.sessions.Get(m.FromID)
	if sess == nil {
		return
	}

	switch sess.Step {
	case session.StepAwaitingChannel:
		o.extractStep(ctx, m, strings.TrimSpace(m.Text))

	case session.StepAwaitingMessage:
		sess.MessageHandle = transport.MessageRef{ChatID: m.ChatID, MessageID: m.ID}
		sess.Step = session.StepReadyToSend
		o.sessions.Put(m.FromID, sess)

		excerpt := tgui.TruncRunes(strings.TrimSpace(m.Text), 300)
		o.reporter.Send(ctx, m.ChatID,
			previewText(sess.ChatDisplayName, len(sess.Recipients), excerpt),
			confirmMarkup())

	default:
		// ReadyToSend takes button input only; stray text is a no-op.
	}
}

func (o *Orchestrator) extractStep(ctx context.Context, m *transport.Message, chatRef string) {
	statusRef := o.reporter.Send(ctx, m.ChatID, extractingText(), nil)

	ext, err := o.extractor.Extract(ctx, chatRef)
	if err != nil {
		// Extraction failures are terminal for the draft.
		o.sessions.Remove(m.FromID)
		o.log.Warn("extraction failed",
			logx.Int64("operator", m.FromID),
			logx.String("chat_ref", chatRef),
			logx.Err(err),
		)
		o.reporter.Edit(ctx, statusRef, extractionFailureText(err), nil)
		return
	}

	o.sessions.Put(m.FromID, &session.Session{
		Step:            session.StepAwaitingMessage,
		TargetChatRef:   chatRef,
		ChatDisplayName: ext.DisplayName,
		Recipients:      ext.Recipients,
	})
	o.reporter.Edit(ctx, statusRef, extractedText(ext.DisplayName, len(ext.Recipients)), nil)
}

func extractionFailureText(err error) string {
	switch {
	case errors.Is(err, ErrNoEligibleMembers):
		return string(tgui.B(noMembersText))
	case errors.Is(err, ErrChatNotResolvable):
		return string(tgui.JoinH("\n\n", tgui.B(extractFailTitle), tgui.Esc(err.Error())))
	default:
		return string(tgui.JoinH("\n\n", tgui.B(extractErrTitle), tgui.Esc(err.Error())))
	}
}

// runCampaign executes a confirmed draft end to end: dispatch, stats,
// final report. The session is consumed up front so a campaign runs at
// most once no matter how the rest of the flow goes. Caller holds the
// operator lock.
func (o *Orchestrator) runCampaign(ctx context.Context, operatorID int64, ref transport.MessageRef) {
	sess := o.sessions.Get(operatorID)
	if sess == nil || sess.Step != session.StepReadyToSend {
		o.reporter.Edit(ctx, ref, string(tgui.Esc(noCampaignText)), nil)
		return
	}
	o.sessions.Remove(operatorID)

	if len(sess.Recipients) == 0 || sess.MessageHandle.MessageID == 0 {
		o.reporter.Edit(ctx, ref, string(tgui.Esc(missingDataText)), nil)
		return
	}

	total := len(sess.Recipients)
	o.reporter.Edit(ctx, ref, sendingText(0, total), nil)

	delay := DelayFor(o.MessagesPerMinute())
	o.log.Info("campaign confirmed",
		logx.Int64("operator", operatorID),
		logx.String("chat", sess.ChatDisplayName),
		logx.Int("recipients", total),
		logx.Duration("delay", delay),
	)

	out := o.dispatcher.Dispatch(ctx, sess.Recipients, sess.MessageHandle, delay,
		func(delivered, totalN int) error {
			o.reporter.Progress(ctx, ref, sendingText(delivered, totalN))
			return nil
		})

	o.stats.Record(ctx, sess.ChatDisplayName, total, stats.Outcome{
		Delivered: out.Delivered,
		Blocked:   out.Blocked,
		Failed:    out.Failed,
	})

	o.reporter.Edit(ctx, ref, reportText(out, total), nil)
}
