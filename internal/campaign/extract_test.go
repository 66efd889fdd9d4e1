package campaign

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"promobot/pkg/logx"
)

// fakeDirectory serves a fixed member list in pageSize slices and
// records how it was called.
type fakeDirectory struct {
	chats   map[string]ChatInfo // keyed by username or decimal id
	members []Member

	resolveErr error
	pageErr    error
	pageCalls  int
}

func (d *fakeDirectory) Resolve(_ context.Context, ref ChatRef) (ChatInfo, error) {
	if d.resolveErr != nil {
		return ChatInfo{}, d.resolveErr
	}
	key := ref.Username
	if key == "" {
		key = fmt.Sprintf("%d", ref.ID)
	}
	info, ok := d.chats[key]
	if !ok {
		return ChatInfo{}, errors.New("peer not found")
	}
	return info, nil
}

func (d *fakeDirectory) MembersPage(_ context.Context, _ int64, offset, limit int) ([]Member, error) {
	d.pageCalls++
	if d.pageErr != nil {
		return nil, d.pageErr
	}
	if offset >= len(d.members) {
		return nil, nil
	}
	end := offset + limit
	if end > len(d.members) {
		end = len(d.members)
	}
	return d.members[offset:end], nil
}

func membersN(n int) []Member {
	out := make([]Member, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Member{ID: int64(1000 + i)})
	}
	return out
}

func TestExtractTwoPagesWithFiltering(t *testing.T) {
	t.Parallel()

	// 150 members across two pages (100, then 50); 10 bots, 5 deleted.
	members := membersN(150)
	for i := 0; i < 10; i++ {
		members[i*3].IsBot = true
	}
	for i := 0; i < 5; i++ {
		members[50+i*7].IsDeleted = true
	}
	dir := &fakeDirectory{
		chats:   map[string]ChatInfo{"community": {ID: -100123, Title: "Community"}},
		members: members,
	}

	ext, err := NewExtractor(dir, logx.Nop()).Extract(context.Background(), "@community")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if got := len(ext.Recipients); got != 135 {
		t.Fatalf("eligible recipients = %d, want 135", got)
	}
	if dir.pageCalls != 2 {
		t.Fatalf("page requests = %d, want 2", dir.pageCalls)
	}
	if ext.DisplayName != "Community" {
		t.Fatalf("DisplayName = %q, want %q", ext.DisplayName, "Community")
	}
	for _, id := range ext.Recipients {
		for _, m := range members {
			if m.ID == id && (m.IsBot || m.IsDeleted) {
				t.Fatalf("filtered member %d leaked into recipients", id)
			}
		}
	}
}

func TestExtractPaginationTermination(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		total     int
		wantPages int
	}{
		{name: "empty first page", total: 0, wantPages: 1},
		{name: "single short page", total: 40, wantPages: 1},
		{name: "exact page then empty", total: 100, wantPages: 2},
		{name: "two full one short", total: 230, wantPages: 3},
		{name: "three exact pages then empty", total: 300, wantPages: 4},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			dir := &fakeDirectory{
				chats:   map[string]ChatInfo{"c": {ID: 1, Title: "c"}},
				members: membersN(tt.total),
			}
			_, err := NewExtractor(dir, logx.Nop()).Extract(context.Background(), "@c")
			if tt.total == 0 {
				if !errors.Is(err, ErrNoEligibleMembers) {
					t.Fatalf("err = %v, want ErrNoEligibleMembers", err)
				}
			} else if err != nil {
				t.Fatalf("Extract error: %v", err)
			}
			if dir.pageCalls != tt.wantPages {
				t.Fatalf("page requests = %d, want %d", dir.pageCalls, tt.wantPages)
			}
		})
	}
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	t.Run("malformed reference", func(t *testing.T) {
		t.Parallel()
		dir := &fakeDirectory{chats: map[string]ChatInfo{}}
		_, err := NewExtractor(dir, logx.Nop()).Extract(context.Background(), "not a chat ref")
		if !errors.Is(err, ErrChatNotResolvable) {
			t.Fatalf("err = %v, want ErrChatNotResolvable", err)
		}
		if dir.pageCalls != 0 {
			t.Fatalf("paging attempted after failed parse")
		}
	})

	t.Run("unresolvable username", func(t *testing.T) {
		t.Parallel()
		dir := &fakeDirectory{chats: map[string]ChatInfo{}}
		_, err := NewExtractor(dir, logx.Nop()).Extract(context.Background(), "@ghost")
		if !errors.Is(err, ErrChatNotResolvable) {
			t.Fatalf("err = %v, want ErrChatNotResolvable", err)
		}
	})

	t.Run("numeric id accepted", func(t *testing.T) {
		t.Parallel()
		dir := &fakeDirectory{
			chats:   map[string]ChatInfo{"-1001234567890": {ID: -1001234567890, Title: "Group"}},
			members: membersN(3),
		}
		ext, err := NewExtractor(dir, logx.Nop()).Extract(context.Background(), "-1001234567890")
		if err != nil {
			t.Fatalf("Extract error: %v", err)
		}
		if len(ext.Recipients) != 3 {
			t.Fatalf("recipients = %d, want 3", len(ext.Recipients))
		}
	})

	t.Run("all members filtered", func(t *testing.T) {
		t.Parallel()
		members := membersN(5)
		for i := range members {
			members[i].IsBot = true
		}
		dir := &fakeDirectory{
			chats:   map[string]ChatInfo{"bots": {ID: 7, Title: "Bots"}},
			members: members,
		}
		_, err := NewExtractor(dir, logx.Nop()).Extract(context.Background(), "@bots")
		if !errors.Is(err, ErrNoEligibleMembers) {
			t.Fatalf("err = %v, want ErrNoEligibleMembers", err)
		}
	})

	t.Run("paging transport failure", func(t *testing.T) {
		t.Parallel()
		dir := &fakeDirectory{
			chats:   map[string]ChatInfo{"c": {ID: 1, Title: "c"}},
			pageErr: errors.New("flood wait"),
		}
		_, err := NewExtractor(dir, logx.Nop()).Extract(context.Background(), "@c")
		if !errors.Is(err, ErrExtractionTransport) {
			t.Fatalf("err = %v, want ErrExtractionTransport", err)
		}
	})
}
