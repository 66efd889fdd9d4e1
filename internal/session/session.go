package session

import "promobot/internal/transport"

// Step is the position of an operator inside a campaign draft.
type Step int

const (
	StepIdle Step = iota
	StepAwaitingChannel
	StepAwaitingMessage
	StepReadyToSend
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepAwaitingChannel:
		return "awaiting_channel"
	case StepAwaitingMessage:
		return "awaiting_message"
	case StepReadyToSend:
		return "ready_to_send"
	default:
		return "unknown"
	}
}

// Session is one operator's in-progress campaign draft. It lives only
// in memory: an operator mid-campaign at restart loses the draft.
//
// Invariants (enforced by the orchestrator, not here):
//   - Recipients is non-empty whenever Step >= StepAwaitingMessage.
//   - MessageHandle is set iff Step == StepReadyToSend.
type Session struct {
	Step Step

	// TargetChatRef is the operator-supplied chat reference
	// ("@username" or a numeric chat id).
	TargetChatRef string

	// ChatDisplayName is the resolved human-readable chat label,
	// used in previews and reports.
	ChatDisplayName string

	// Recipients holds eligible member ids in discovery order,
	// duplicates already removed.
	Recipients []int64

	// MessageHandle references the payload message to redeliver.
	MessageHandle transport.MessageRef
}
