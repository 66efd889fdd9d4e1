// Package directory implements the chat directory over an MTProto
// gateway sidecar. The Bot API cannot enumerate group members, so
// resolution and membership paging go through this HTTP collaborator.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"promobot/internal/campaign"
	"promobot/pkg/logx"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	base string
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("directory base_url is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

// gateway error envelope: {"error": "..."}
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		if ae.Error != "" {
			return fmt.Errorf("directory gateway: %s (http=%d)", ae.Error, resp.StatusCode)
		}
		return fmt.Errorf("directory gateway: http=%d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Resolve turns a chat reference into a chat handle via GET /resolve.
func (c *Client) Resolve(ctx context.Context, ref campaign.ChatRef) (campaign.ChatInfo, error) {
	q := url.Values{}
	if ref.Username != "" {
		q.Set("username", ref.Username)
	} else {
		q.Set("chat_id", strconv.FormatInt(ref.ID, 10))
	}

	var out struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := c.get(ctx, "/resolve", q, &out); err != nil {
		return campaign.ChatInfo{}, err
	}
	if out.ID == 0 {
		return campaign.ChatInfo{}, errors.New("directory gateway: empty resolve result")
	}
	return campaign.ChatInfo{ID: out.ID, Title: out.Title}, nil
}

// MembersPage fetches one membership page via GET /members.
func (c *Client) MembersPage(ctx context.Context, chatID int64, offset, limit int) ([]campaign.Member, error) {
	q := url.Values{}
	q.Set("chat_id", strconv.FormatInt(chatID, 10))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var out struct {
		Members []struct {
			ID      int64 `json:"id"`
			Bot     bool  `json:"bot"`
			Deleted bool  `json:"deleted"`
		} `json:"members"`
	}
	if err := c.get(ctx, "/members", q, &out); err != nil {
		return nil, err
	}

	members := make([]campaign.Member, 0, len(out.Members))
	for _, m := range out.Members {
		members = append(members, campaign.Member{ID: m.ID, IsBot: m.Bot, IsDeleted: m.Deleted})
	}
	return members, nil
}
