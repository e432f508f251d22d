package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/services"
)

func TestChatView_PrintsOnlyNewMessages(t *testing.T) {
	var out bytes.Buffer
	v := newChatView(&out, 1)
	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	snap := services.Snapshot{
		Conversations: []models.Conversation{{CounterpartID: 2, DisplayName: "bob"}},
		ActiveID:      2,
		Messages: []models.Message{
			{ID: 1, SenderID: 2, ReceiverID: 1, Content: "hi", Timestamp: t0},
		},
	}
	v.Render(snap)
	v.Render(snap) // değişiklik yok

	snap.Messages = append(snap.Messages, models.Message{ID: 2, SenderID: 1, ReceiverID: 2, Content: "hey", Timestamp: t0.Add(time.Second)})
	v.Render(snap)

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "== bob =="))
	assert.Equal(t, 1, strings.Count(text, "bob: hi"))
	assert.Equal(t, 1, strings.Count(text, "you: hey"))

	out.Reset()
	snap.ActiveID = 0
	snap.Messages = nil
	v.Render(snap)
	assert.Contains(t, out.String(), "(conversation closed)")
}

func TestChatView_UnreadRealtimeAndErrors(t *testing.T) {
	var out bytes.Buffer
	v := newChatView(&out, 1)

	v.Render(services.Snapshot{TotalUnread: 2})
	assert.NotContains(t, out.String(), "unread", "initial count is not announced")

	v.Render(services.Snapshot{TotalUnread: 3, Realtime: true})
	assert.Contains(t, out.String(), "(3 unread)")
	assert.Contains(t, out.String(), "(live updates on)")

	out.Reset()
	boom := errors.New("backend down")
	v.Render(services.Snapshot{TotalUnread: 3, Realtime: true, ListErr: boom})
	v.Render(services.Snapshot{TotalUnread: 3, Realtime: true, ListErr: boom})
	assert.Equal(t, 1, strings.Count(out.String(), "conversation list refresh failed"))
}

func TestChatView_PendingConversationHeader(t *testing.T) {
	var out bytes.Buffer
	v := newChatView(&out, 1)

	p := models.NewPlaceholderConversation(models.UserSummary{ID: 7, Username: "anna"})
	v.Render(services.Snapshot{Pending: &p, ActiveID: 7})

	assert.Contains(t, out.String(), "== anna ==")
	assert.Contains(t, out.String(), "new conversation")
}

func TestChatView_SearchResultsAndPick(t *testing.T) {
	var out bytes.Buffer
	v := newChatView(&out, 1)

	v.SearchUpdate(services.SearchState{Query: "an", Pending: true})
	assert.Empty(t, out.String())

	users := []models.UserSummary{
		{ID: 7, Username: "anna", Role: models.RoleClient},
		{ID: 9, Username: "dan"},
	}
	v.SearchUpdate(services.SearchState{Query: "an", Users: users})
	assert.Contains(t, out.String(), " 1) anna (id 7, client)")
	assert.Contains(t, out.String(), " 2) dan (id 9)")

	u, ok := v.Pick(2)
	require.True(t, ok)
	assert.Equal(t, int64(9), u.ID)
	_, ok = v.Pick(3)
	assert.False(t, ok)

	// Kısa sorgu sonuçları temizler.
	v.SearchUpdate(services.SearchState{Query: "a"})
	_, ok = v.Pick(1)
	assert.False(t, ok)
}

func TestFormatConversationList(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := models.NewPlaceholderConversation(models.UserSummary{ID: 7, Username: "anna"})
	text := formatConversationList(services.Snapshot{
		Conversations: []models.Conversation{
			{CounterpartID: 2, DisplayName: "bob", LastMessagePreview: strings.Repeat("x", 60), LastMessageAt: at, UnreadCount: 3},
			{CounterpartID: 3, DisplayName: ""},
		},
		Pending:     &p,
		ActiveID:    2,
		TotalUnread: 3,
	})

	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "anna (new)")
	assert.True(t, strings.HasPrefix(lines[1], "* 2"))
	assert.Contains(t, lines[1], "bob [3]")
	assert.Contains(t, lines[1], "…")
	assert.Contains(t, lines[2], "user 3")
	assert.Equal(t, "3 unread in total", lines[3])

	assert.Contains(t, formatConversationList(services.Snapshot{}), "no conversations yet")
}
