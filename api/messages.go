package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/talentlink/messenger/models"
)

// IssueWSTicket, POST /messages/ws-ticket: session'ı kısa ömürlü bir
// real-time kanal ticket'ına çevirir.
func (c *Client) IssueWSTicket(ctx context.Context) (*models.Ticket, error) {
	var t models.Ticket
	err := c.do(ctx, request{
		op:     "issue ws ticket",
		method: http.MethodPost,
		path:   []string{"messages", "ws-ticket"},
	}, &t)
	if err != nil {
		return nil, err
	}
	t.IssuedAt = c.clock()
	return &t, nil
}

// SendMessage, POST /messages/send. req önceden Validate edilmiş olmalıdır.
func (c *Client) SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	var msg models.Message
	err := c.do(ctx, request{
		op:     "send message",
		method: http.MethodPost,
		path:   []string{"messages", "send"},
		body:   req,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListConversations, GET /messages/conversations.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	list := make([]models.Conversation, 0)
	err := c.do(ctx, request{
		op:     "list conversations",
		method: http.MethodGet,
		path:   []string{"messages", "conversations"},
	}, &list)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Normalize()
	}
	return list, nil
}

// GetThread, GET /messages/conversations/{id}?skip=&limit=: dönen mesajlar
// eskiden yeniye sıralıdır.
func (c *Client) GetThread(ctx context.Context, counterpartID int64, skip, limit int) ([]models.Message, error) {
	msgs := make([]models.Message, 0)
	err := c.do(ctx, request{
		op:     "get thread",
		method: http.MethodGet,
		path:   []string{"messages", "conversations", strconv.FormatInt(counterpartID, 10)},
		query: url.Values{
			"skip":  {strconv.Itoa(skip)},
			"limit": {strconv.Itoa(limit)},
		},
	}, &msgs)
	if err != nil {
		return nil, err
	}
	models.SortMessages(msgs)
	return msgs, nil
}

// MarkRead, PATCH /messages/conversations/{id}/read.
func (c *Client) MarkRead(ctx context.Context, counterpartID int64) error {
	return c.do(ctx, request{
		op:     "mark read",
		method: http.MethodPatch,
		path:   []string{"messages", "conversations", strconv.FormatInt(counterpartID, 10), "read"},
	}, nil)
}

// UnreadCount, GET /messages/unread-count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var s models.UnreadSummary
	err := c.do(ctx, request{
		op:     "unread count",
		method: http.MethodGet,
		path:   []string{"messages", "unread-count"},
	}, &s)
	if err != nil {
		return 0, err
	}
	if s.Count < 0 {
		s.Count = 0
	}
	return s.Count, nil
}

// SearchUsers, GET /messages/users?q=&limit=&offset=.
// Sorgu uzunluğu kontrolü çağıranın işidir (bkz. services.UserSearch).
func (c *Client) SearchUsers(ctx context.Context, q string, limit, offset int) ([]models.UserSummary, error) {
	users := make([]models.UserSummary, 0)
	err := c.do(ctx, request{
		op:     "search users",
		method: http.MethodGet,
		path:   []string{"messages", "users"},
		query: url.Values{
			"q":      {q},
			"limit":  {strconv.Itoa(limit)},
			"offset": {strconv.Itoa(offset)},
		},
	}, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}
