package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/services"
)

const (
	timeLayout     = "15:04"
	previewMaxRune = 40
)

// chatView, Messenger snapshot'larını satır tabanlı terminal çıktısına çevirir.
//
// Her Render çağrısında sadece önceki çağrıdan bu yana değişen kısım yazılır:
// aktif konuşma değiştiyse başlık ve tüm thread, değilse sadece yeni mesajlar.
// Render poller goroutine'inden de çağrılır; yazımlar mutex ile sıralanır.
type chatView struct {
	out    io.Writer
	selfID int64

	mu        sync.Mutex
	started   bool
	activeID  int64
	last      *models.Message // aktif thread'de son yazılan mesaj
	unread    int
	realtime  bool
	listErr   string
	threadErr string
	results   []models.UserSummary
}

func newChatView(out io.Writer, selfID int64) *chatView {
	return &chatView{out: out, selfID: selfID}
}

// Render, snapshot'taki değişiklikleri yazar.
func (v *chatView) Render(s services.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s.Realtime != v.realtime {
		v.realtime = s.Realtime
		if s.Realtime {
			v.printf("(live updates on)\n")
		} else {
			v.printf("(live updates off, polling)\n")
		}
	}

	if s.ActiveID != v.activeID {
		v.activeID = s.ActiveID
		v.last = nil
		if s.Active() {
			v.printf("== %s ==\n", conversationName(s, s.ActiveID))
			if s.Pending != nil && s.Pending.CounterpartID == s.ActiveID {
				v.printf("(new conversation, say hi)\n")
			}
		} else if v.started {
			v.printf("(conversation closed)\n")
		}
	}

	if s.Active() {
		name := conversationName(s, s.ActiveID)
		for i := range s.Messages {
			msg := s.Messages[i]
			if v.last != nil && !after(msg, *v.last) {
				continue
			}
			v.printf("%s\n", formatMessage(msg, v.selfID, name))
			v.last = &msg
		}
	}

	if s.TotalUnread != v.unread {
		if s.TotalUnread > v.unread && v.started {
			v.printf("(%d unread)\n", s.TotalUnread)
		}
		v.unread = s.TotalUnread
	}

	v.listErr = v.reportError("conversation list", s.ListErr, v.listErr)
	v.threadErr = v.reportError("thread", s.ThreadErr, v.threadErr)
	v.started = true
}

// reportError, hata yeni ortaya çıktıysa bir kez yazar.
func (v *chatView) reportError(what string, err error, prev string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if msg != prev {
		v.printf("! %s refresh failed: %s (showing last known data)\n", what, msg)
	}
	return msg
}

// SearchUpdate, UserSearch state'i tamamlandığında sonuçları numaralı yazar.
func (v *chatView) SearchUpdate(st services.SearchState) {
	if st.Pending {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case st.Err != nil:
		v.printf("! search failed: %s\n", st.Err)
		return
	case len([]rune(strings.TrimSpace(st.Query))) < models.MinSearchQueryLength:
		v.results = nil
		return
	case len(st.Users) == 0:
		v.results = nil
		v.printf("no users match %q\n", st.Query)
		return
	}

	v.results = append([]models.UserSummary(nil), st.Users...)
	v.printf("%s", formatSearchResults(v.results))
	v.printf("use /pick <n> to start a conversation\n")
}

// Pick, son arama sonuçlarından n'incisini (1 tabanlı) döner.
func (v *chatView) Pick(n int) (models.UserSummary, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n < 1 || n > len(v.results) {
		return models.UserSummary{}, false
	}
	return v.results[n-1], true
}

// List, konuşma listesini yazar.
func (v *chatView) List(s services.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("%s", formatConversationList(s))
}

func (v *chatView) Println(a ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, a...)
}

func (v *chatView) Error(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.printf("! %s\n", err)
}

func (v *chatView) printf(format string, a ...any) {
	fmt.Fprintf(v.out, format, a...)
}

func after(a, b models.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

func displayName(username string, id int64) string {
	if username != "" {
		return username
	}
	return fmt.Sprintf("user %d", id)
}

func conversationName(s services.Snapshot, id int64) string {
	if c, ok := models.FindConversation(s.Conversations, id); ok {
		return displayName(c.DisplayName, id)
	}
	if s.Pending != nil && s.Pending.CounterpartID == id {
		return displayName(s.Pending.DisplayName, id)
	}
	return displayName("", id)
}

func formatMessage(msg models.Message, selfID int64, counterpartName string) string {
	who := counterpartName
	if msg.SenderID == selfID {
		who = "you"
	}
	return fmt.Sprintf("[%s] %s: %s", msg.Timestamp.Local().Format(timeLayout), who, msg.Content)
}

func formatConversationList(s services.Snapshot) string {
	var b strings.Builder
	if len(s.Conversations) == 0 && s.Pending == nil {
		b.WriteString("no conversations yet, use /search to find someone\n")
		return b.String()
	}
	if s.Pending != nil {
		fmt.Fprintf(&b, "* %-6d %s (new)\n", s.Pending.CounterpartID, displayName(s.Pending.DisplayName, s.Pending.CounterpartID))
	}
	for _, c := range s.Conversations {
		marker := " "
		if c.CounterpartID == s.ActiveID {
			marker = "*"
		}
		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprintf(" [%d]", c.UnreadCount)
		}
		when := ""
		if !c.LastMessageAt.IsZero() {
			when = c.LastMessageAt.Local().Format(timeLayout) + " "
		}
		fmt.Fprintf(&b, "%s %-6d %s%s  %s%s\n",
			marker, c.CounterpartID, displayName(c.DisplayName, c.CounterpartID), unread,
			when, truncate(c.LastMessagePreview, previewMaxRune))
	}
	fmt.Fprintf(&b, "%d unread in total\n", s.TotalUnread)
	return b.String()
}

func formatSearchResults(users []models.UserSummary) string {
	var b strings.Builder
	for i, u := range users {
		fmt.Fprintf(&b, "%2d) %s (id %d", i+1, u.Username, u.ID)
		if u.Role != "" {
			fmt.Fprintf(&b, ", %s", u.Role)
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
