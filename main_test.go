package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talentlink/messenger/config"
	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
)

// fakeBackend, mesajlaşma REST API'sinin bellek içi taklidi.
type fakeBackend struct {
	mu       sync.Mutex
	selfID   int64
	now      time.Time
	nextID   int64
	convs    []models.Conversation
	threads  map[int64][]models.Message
	users    []models.UserSummary
	marked   []int64
	authSeen []string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		selfID:  1,
		now:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		nextID:  100,
		threads: make(map[int64][]models.Message),
		users:   []models.UserSummary{{ID: 7, Username: "anna", Role: models.RoleClient}},
	}
	b.convs = []models.Conversation{{
		CounterpartID: 2, DisplayName: "bob", LastMessagePreview: "hi",
		LastMessageAt: b.now.Add(-time.Minute), UnreadCount: 1,
	}}
	b.threads[2] = []models.Message{{
		ID: 1, SenderID: 2, ReceiverID: 1, Content: "hi", Timestamp: b.now.Add(-time.Minute),
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /messages/conversations", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.authSeen = append(b.authSeen, r.Header.Get("Authorization"))
		writeJSON(w, b.convs)
	})
	mux.HandleFunc("GET /messages/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		msgs := b.threads[id]
		if msgs == nil {
			msgs = []models.Message{}
		}
		writeJSON(w, msgs)
	})
	mux.HandleFunc("PATCH /messages/conversations/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.marked = append(b.marked, id)
		for i := range b.convs {
			if b.convs[i].CounterpartID == id {
				b.convs[i].UnreadCount = 0
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /messages/unread-count", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		total := 0
		for _, c := range b.convs {
			total += c.UnreadCount
		}
		writeJSON(w, models.UnreadSummary{Count: total})
	})
	mux.HandleFunc("GET /messages/users", func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(r.URL.Query().Get("q"))
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []models.UserSummary{}
		for _, u := range b.users {
			if strings.Contains(strings.ToLower(u.Username), q) {
				out = append(out, u)
			}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("POST /messages/send", func(w http.ResponseWriter, r *http.Request) {
		var req models.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"detail":"bad body"}`, http.StatusUnprocessableEntity)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.nextID++
		b.now = b.now.Add(time.Second)
		msg := models.Message{ID: b.nextID, SenderID: b.selfID, ReceiverID: req.ReceiverID, Content: req.Content, Timestamp: b.now}
		b.threads[req.ReceiverID] = append(b.threads[req.ReceiverID], msg)

		found := false
		for i := range b.convs {
			if b.convs[i].CounterpartID == req.ReceiverID {
				b.convs[i].LastMessagePreview = req.Content
				b.convs[i].LastMessageAt = b.now
				found = true
			}
		}
		if !found {
			b.convs = append(b.convs, models.Conversation{
				CounterpartID: req.ReceiverID, LastMessagePreview: req.Content, LastMessageAt: b.now,
			})
		}
		writeJSON(w, msg)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		API:      config.APIConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
		Realtime: config.RealtimeConfig{Enabled: false, Path: "/messages/ws"},
		Polling:  config.PollingConfig{Interval: time.Hour},
		Search:   config.SearchConfig{Debounce: 10 * time.Millisecond, Limit: 20},
		Thread:   config.ThreadConfig{PageSize: 50},
		Storage: config.StorageConfig{
			DatabasePath:  filepath.Join(t.TempDir(), "data", "talentlink.db"),
			EncryptionKey: "test-storage-key-0123456789",
		},
		Log: config.LogConfig{Level: "error"},
	}
}

func testToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  1,
		"username": "me",
		"role":     "freelancer",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return tok
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line, cmd, arg string
	}{
		{"hello", "", "hello"},
		{"  /open 12 ", "open", "12"},
		{"/SEARCH anna smith", "search", "anna smith"},
		{"/quit", "quit", ""},
	}
	for _, tt := range tests {
		cmd, arg := parseCommand(tt.line)
		assert.Equal(t, tt.cmd, cmd, tt.line)
		assert.Equal(t, tt.arg, arg, tt.line)
	}
}

func TestApp_RequiresLogin(t *testing.T) {
	_, srv := newFakeBackend(t)
	app, err := initApp(context.Background(), testConfig(t, srv.URL), zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	err = app.requireSession(context.Background())
	assert.ErrorIs(t, err, pkg.ErrNoSession)
}

func TestApp_LoginPersistsAcrossRuns(t *testing.T) {
	_, srv := newFakeBackend(t)
	cfg := testConfig(t, srv.URL)
	ctx := context.Background()

	app, err := initApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	sess, err := app.Session.Login(ctx, "Bearer "+testToken(t))
	require.NoError(t, err)
	assert.Equal(t, int64(1), sess.UserID)
	app.Close()

	app, err = initApp(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, app.requireSession(ctx))

	unread, err := app.API.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, app.Session.Logout(ctx))
	assert.ErrorIs(t, app.requireSession(ctx), pkg.ErrNoSession)
}

func TestChat_OpenSendAndMarkRead(t *testing.T) {
	backend, srv := newFakeBackend(t)
	ctx := context.Background()

	app, err := initApp(ctx, testConfig(t, srv.URL), zap.NewNop())
	require.NoError(t, err)
	_, err = app.Session.Login(ctx, testToken(t))
	require.NoError(t, err)

	in := strings.NewReader(strings.Join([]string{
		"/list",
		"/open 2",
		"  hello bob  ",
		"/read",
		"/open 99",
		"/quit",
	}, "\n") + "\n")
	var out bytes.Buffer

	require.NoError(t, runChat(in, &out)(ctx, app))
	app.Close()

	text := out.String()
	assert.Contains(t, text, "bob [1]")
	assert.Contains(t, text, "== bob ==")
	assert.Contains(t, text, "bob: hi")
	assert.Contains(t, text, "you: hello bob")
	assert.Contains(t, text, "conversation 99 not found")

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.threads[2], 2)
	assert.Equal(t, "hello bob", backend.threads[2][1].Content)
	assert.Equal(t, []int64{2}, backend.marked)
	for _, h := range backend.authSeen {
		assert.True(t, strings.HasPrefix(h, "Bearer "), h)
	}
}
