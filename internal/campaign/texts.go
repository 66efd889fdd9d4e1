package campaign

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"promobot/internal/stats"
	"promobot/pkg/tgui"
)

// Callback routes. Data format is "scope:action" (see pkg/tgui).
const (
	cbCampaignStart   = "campaign:start"
	cbCampaignConfirm = "campaign:confirm"
	cbCampaignCancel  = "campaign:cancel"
	cbHelpShow        = "help:show"
	cbStatsView       = "stats:view"
	cbAdminRates      = "admin:rates"
	cbAdminHistory    = "admin:history"
)

func mainMenuMarkup() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("🚀 Start campaign", cbCampaignStart)).
		Row(tgui.Btn("📊 Statistics", cbStatsView), tgui.Btn("ℹ️ Help", cbHelpShow)).
		Markup()
}

func confirmMarkup() *tele.ReplyMarkup {
	return tgui.ConfirmInline(
		tgui.Btn("✅ Send", cbCampaignConfirm),
		tgui.Btn("❌ Cancel", cbCampaignCancel),
	).Markup()
}

func adminMarkup() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("📊 Cumulative statistics", cbStatsView)).
		Row(tgui.Btn("⚙️ Send rate", cbAdminRates)).
		Row(tgui.Btn("🗂 Campaign history", cbAdminHistory)).
		Markup()
}

func welcomeText() string {
	return string(tgui.JoinH("\n\n",
		tgui.B("🤖 Promo broadcast bot"),
		tgui.Esc("Send one message to every member of your channel or group."),
		tgui.Esc("Pick an option to begin:"),
	))
}

func helpText() string {
	return string(tgui.JoinH("\n\n",
		tgui.B("ℹ️ How to use the bot"),
		tgui.Esc("1. Press \"Start campaign\"\n"+
			"2. Send the channel or group (@username or numeric id)\n"+
			"3. Wait while members are extracted\n"+
			"4. Send the promo message\n"+
			"5. Confirm the send"),
		tgui.Esc("Use /cancel at any point to stop. /start shows this menu again."),
	))
}

func askChannelText() string {
	return string(tgui.JoinH("\n\n",
		tgui.B("📢 Step 1: target chat"),
		tgui.Esc("Send me the chat id or the @username.")+"\n\n"+
			tgui.JoinH("\n",
				tgui.H("• ")+tgui.Code("@mycommunity"),
				tgui.H("• ")+tgui.Code("-1001234567890"),
			),
		tgui.Esc("Send /cancel to stop."),
	))
}

func extractingText() string {
	return string(tgui.JoinH("\n\n",
		tgui.B("⏳ Extracting members…"),
		tgui.I("This can take a while for large chats."),
	))
}

func extractedText(chatName string, eligible int) string {
	return string(tgui.JoinH("\n\n",
		tgui.B("✅ Members extracted"),
		tgui.JoinH("\n",
			tgui.H("📢 Chat: ")+tgui.Esc(chatName),
			tgui.H("👥 Eligible members: ")+tgui.B(fmt.Sprintf("%d", eligible)),
		),
		tgui.Esc("Now send me the promo message (text or media). Send /cancel to stop."),
	))
}

func previewText(chatName string, recipients int, excerpt string) string {
	parts := []tgui.H{
		tgui.B("📋 Preview"),
		tgui.JoinH("\n",
			tgui.H("📢 Chat: ")+tgui.Esc(chatName),
			tgui.H("👥 Recipients: ")+tgui.B(fmt.Sprintf("%d", recipients)),
		),
	}
	if excerpt != "" {
		parts = append(parts, tgui.H("📝 Message:\n")+tgui.Pre(excerpt))
	} else {
		parts = append(parts, tgui.I("The message you just sent will be copied to every recipient."))
	}
	parts = append(parts, tgui.Esc("Go ahead?"))
	return string(tgui.JoinH("\n\n", parts...))
}

func sendingText(sent, total int) string {
	return string(tgui.JoinH("\n\n",
		tgui.B("📤 Sending messages…"),
		tgui.Esc(fmt.Sprintf("Sent: %d/%d", sent, total)),
	))
}

func reportText(out Outcome, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(out.Delivered) / float64(total) * 100
	}
	return string(tgui.JoinH("\n\n",
		tgui.B("✅ Send complete"),
		tgui.JoinH("\n",
			tgui.B("📊 Results:"),
			tgui.H("✔️ Delivered: ")+tgui.Esc(fmt.Sprintf("%d", out.Delivered)),
			tgui.H("🚫 Blocked by: ")+tgui.Esc(fmt.Sprintf("%d", out.Blocked)),
			tgui.H("❌ Failures: ")+tgui.Esc(fmt.Sprintf("%d", out.Failed)),
			tgui.H("👥 Total: ")+tgui.Esc(fmt.Sprintf("%d", total)),
		),
		tgui.Esc(fmt.Sprintf("Success: %.1f%%", pct)),
	))
}

func statsText(s stats.Snapshot) string {
	parts := []tgui.H{
		tgui.B("📊 Cumulative statistics"),
		tgui.JoinH("\n",
			tgui.H("Campaigns: ")+tgui.Esc(fmt.Sprintf("%d", s.Campaigns)),
			tgui.H("Delivered: ")+tgui.Esc(fmt.Sprintf("%d", s.Delivered)),
			tgui.H("Blocked: ")+tgui.Esc(fmt.Sprintf("%d", s.Blocked)),
			tgui.H("Failed: ")+tgui.Esc(fmt.Sprintf("%d", s.Failed)),
		),
	}
	if s.Last != nil {
		parts = append(parts, tgui.JoinH("\n",
			tgui.B("Last campaign:"),
			tgui.Esc(fmt.Sprintf("%s — %d/%d delivered (%s)",
				s.Last.ChatName, s.Last.Delivered, s.Last.Total,
				s.Last.At.Format(time.RFC822))),
		))
	} else {
		parts = append(parts, tgui.I("No campaigns run yet."))
	}
	return string(tgui.JoinH("\n\n", parts...))
}

func ratesText(messagesPerMinute int) string {
	var pacing tgui.H
	if messagesPerMinute <= 0 {
		pacing = tgui.Esc("Rate cap: unlimited")
	} else {
		pacing = tgui.Esc(fmt.Sprintf("Rate cap: %d messages/minute (pause %s between sends)",
			messagesPerMinute, DelayFor(messagesPerMinute)))
	}
	return string(tgui.JoinH("\n\n",
		tgui.B("⚙️ Send rate"),
		tgui.JoinH("\n",
			pacing,
			tgui.Esc(fmt.Sprintf("Progress report every %d deliveries.", progressEvery)),
		),
		tgui.I("Edit broadcast.messages_per_minute in the config file; it reloads live."),
	))
}

func historyText(results []stats.CampaignResult) string {
	if len(results) == 0 {
		return string(tgui.JoinH("\n\n",
			tgui.B("🗂 Campaign history"),
			tgui.I("No campaigns recorded yet."),
		))
	}
	lines := make([]tgui.H, 0, len(results))
	for _, r := range results {
		lines = append(lines,
			tgui.H("• ")+tgui.Esc(fmt.Sprintf("%s  %s: %d/%d delivered, %d blocked, %d failed",
				r.At.Format("02 Jan 15:04"), r.ChatName,
				r.Delivered, r.Total, r.Blocked, r.Failed)))
	}
	return string(tgui.JoinH("\n\n",
		tgui.B("🗂 Campaign history"),
		tgui.JoinH("\n", lines...),
	))
}

func adminPanelText() string {
	return string(tgui.JoinH("\n\n",
		tgui.B("🛠 Admin panel"),
		tgui.Esc("Pick a view:"),
	))
}

const (
	deniedText       = "❌ You are not allowed to use this bot."
	cancelledText    = "❌ Operation cancelled. Use /start to begin again."
	noOperationText  = "No operation in progress."
	noCampaignText   = "❌ No campaign in progress. Use /start to begin one."
	missingDataText  = "❌ Campaign data is incomplete. Start over with /start."
	extractFailTitle = "❌ Could not access that chat"
	noMembersText    = "❌ No real members found in this chat."
	extractErrTitle  = "❌ Error extracting members"
)
