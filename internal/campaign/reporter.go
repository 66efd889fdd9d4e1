package campaign

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"promobot/internal/transport"
	"promobot/pkg/logx"
)

// Reporter renders status, progress and result messages to operators.
// Every method is best-effort: a formatting rejection degrades to plain
// text, any other failure is logged and swallowed. The campaign flow
// must never fail because the reporting surface did.
type Reporter struct {
	adapter transport.Adapter
	log     logx.Logger

	// limiter throttles progress edits so a fast dispatch cannot flood
	// the platform's message-edit quota. Progress skipped by the
	// limiter is simply lost; the final report is never throttled.
	limiter *rate.Limiter
}

func NewReporter(adapter transport.Adapter, log logx.Logger) *Reporter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reporter{
		adapter: adapter,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

func (r *Reporter) opts(markup any) *transport.SendOptions {
	return &transport.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: markup}
}

// Send delivers a message to the operator chat, falling back to plain
// text when HTML rendering is rejected. The returned ref is zero when
// both attempts failed.
func (r *Reporter) Send(ctx context.Context, chatID int64, html string, markup any) transport.MessageRef {
	to := transport.ChatTarget{ChatID: chatID}
	ref, err := r.adapter.SendText(ctx, to, html, r.opts(markup))
	if err == nil {
		return ref
	}
	ref, err2 := r.adapter.SendText(ctx, to, stripTags(html), &transport.SendOptions{ReplyMarkup: markup})
	if err2 == nil {
		r.log.Debug("report degraded to plain text", logx.Int64("chat_id", chatID), logx.Err(err))
		return ref
	}
	r.log.Warn("report rendering failed", logx.Int64("chat_id", chatID), logx.Err(err2))
	return transport.MessageRef{}
}

// Edit rewrites a previously sent message in place.
func (r *Reporter) Edit(ctx context.Context, ref transport.MessageRef, html string, markup any) {
	if ref.ChatID == 0 {
		return
	}
	err := r.adapter.EditText(ctx, ref, html, r.opts(markup))
	if err == nil {
		return
	}
	if err2 := r.adapter.EditText(ctx, ref, stripTags(html), &transport.SendOptions{ReplyMarkup: markup}); err2 != nil {
		r.log.Warn("report edit failed", logx.Int64("chat_id", ref.ChatID), logx.Err(err2))
	} else {
		r.log.Debug("report edit degraded to plain text", logx.Int64("chat_id", ref.ChatID), logx.Err(err))
	}
}

// Progress is like Edit but throttled.
func (r *Reporter) Progress(ctx context.Context, ref transport.MessageRef, html string) {
	if !r.limiter.Allow() {
		return
	}
	r.Edit(ctx, ref, html, nil)
}

// Answer acknowledges a callback query so the client stops its spinner.
func (r *Reporter) Answer(ctx context.Context, callbackID string) {
	if callbackID == "" {
		return
	}
	if err := r.adapter.AnswerCallback(ctx, callbackID, ""); err != nil {
		r.log.Debug("callback answer failed", logx.Err(err))
	}
}

var tagRe = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)

// stripTags removes HTML markup for the plain-text fallback. Entities
// common in our templates are unescaped so the fallback stays readable.
func stripTags(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	repl := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&#34;", `"`, "&#39;", "'")
	return repl.Replace(s)
}
