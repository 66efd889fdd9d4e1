package campaign

import (
	"context"

	"promobot/internal/transport"
)

// ChatRef is a parsed operator-supplied chat reference: exactly one of
// Username (leading-@ form, marker stripped) or ID is set.
type ChatRef struct {
	Username string
	ID       int64
}

// ChatInfo is a resolved chat handle.
type ChatInfo struct {
	ID    int64
	Title string
}

// Member is one membership descriptor returned by the directory.
type Member struct {
	ID        int64
	IsBot     bool
	IsDeleted bool
}

// Directory resolves chat references and pages through chat membership.
// The concrete implementation talks to an MTProto gateway sidecar; the
// Bot API alone cannot enumerate members.
type Directory interface {
	Resolve(ctx context.Context, ref ChatRef) (ChatInfo, error)
	MembersPage(ctx context.Context, chatID int64, offset, limit int) ([]Member, error)
}

// Delivery sends the referenced payload message to one recipient.
type Delivery interface {
	Deliver(ctx context.Context, recipientID int64, handle transport.MessageRef) error
}
