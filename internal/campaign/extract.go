package campaign

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"promobot/pkg/logx"
)

// pageSize is the membership page size requested from the directory.
const pageSize = 100

// Extraction is the successful result of a membership run.
type Extraction struct {
	DisplayName string
	Recipients  []int64
}

// Extractor turns an operator-supplied chat reference into the
// deduplicated set of eligible recipient ids.
type Extractor struct {
	dir Directory
	log logx.Logger
}

func NewExtractor(dir Directory, log logx.Logger) *Extractor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Extractor{dir: dir, log: log}
}

// Extract resolves rawRef and pages through the chat membership,
// filtering out bots and deleted accounts. It never mutates session
// state; the caller decides what a failure means for the draft.
func (e *Extractor) Extract(ctx context.Context, rawRef string) (Extraction, error) {
	ref, err := parseChatRef(rawRef)
	if err != nil {
		return Extraction{}, err
	}

	chat, err := e.dir.Resolve(ctx, ref)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrChatNotResolvable, err)
	}

	var members []Member
	offset := 0
	pages := 0
	for {
		page, err := e.dir.MembersPage(ctx, chat.ID, offset, pageSize)
		if err != nil {
			return Extraction{}, fmt.Errorf("%w: %v", ErrExtractionTransport, err)
		}
		pages++
		if len(page) == 0 {
			break
		}
		members = append(members, page...)
		// Advance by what was actually returned, never by pageSize:
		// mid-run insertions on the remote side must not loop us forever.
		offset += len(page)
		if len(page) < pageSize {
			break
		}
	}

	seen := make(map[int64]struct{}, len(members))
	recipients := make([]int64, 0, len(members))
	for _, m := range members {
		if m.IsBot || m.IsDeleted {
			continue
		}
		// Pages can overlap when the remote membership shifts mid-run;
		// a recipient must never be sent to twice.
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		recipients = append(recipients, m.ID)
	}

	e.log.Info("membership extracted",
		logx.Int64("chat_id", chat.ID),
		logx.Int("pages", pages),
		logx.Int("members", len(members)),
		logx.Int("eligible", len(recipients)),
	)

	if len(recipients) == 0 {
		return Extraction{}, ErrNoEligibleMembers
	}

	name := chat.Title
	if name == "" {
		name = strings.TrimSpace(rawRef)
	}
	return Extraction{DisplayName: name, Recipients: recipients}, nil
}

func parseChatRef(raw string) (ChatRef, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "@") {
		u := strings.TrimPrefix(raw, "@")
		if u == "" {
			return ChatRef{}, fmt.Errorf("%w: empty username", ErrChatNotResolvable)
		}
		return ChatRef{Username: u}, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ChatRef{}, fmt.Errorf("%w: %q is neither @username nor a chat id", ErrChatNotResolvable, raw)
	}
	return ChatRef{ID: id}, nil
}
