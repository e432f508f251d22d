package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
)

type fakeIssuer struct {
	n   atomic.Int32
	err error
}

func (f *fakeIssuer) IssueWSTicket(context.Context) (*models.Ticket, error) {
	n := f.n.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Ticket{Value: fmt.Sprintf("t%d", n), IssuedAt: time.Now()}, nil
}

// wsServer, test için minimal real-time sunucu.
type wsServer struct {
	*httptest.Server

	mu         sync.Mutex
	tickets    []string
	heartbeats int

	// script, bağlantı kurulunca gönderilecek frame'ler.
	script []Event
	// hangUp true ise script'ten sonra bağlantı kapatılır.
	hangUp bool
}

func newWSServer(t *testing.T, script []Event, hangUp bool) *wsServer {
	t.Helper()
	s := &wsServer{script: script, hangUp: hangUp}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" {
			http.Error(w, "missing ticket", http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		s.tickets = append(s.tickets, ticket)
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, ev := range s.script {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		if s.hangUp {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart"))
			return
		}

		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			if ev.Op == OpHeartbeat {
				s.mu.Lock()
				s.heartbeats++
				s.mu.Unlock()
				if err := conn.WriteJSON(Event{Op: OpHeartbeatAck}); err != nil {
					return
				}
			}
		}
	}))
	return s
}

func (s *wsServer) urlFor(ticket string) string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/messages/ws?ticket=" + ticket
}

func (s *wsServer) seenTickets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tickets...)
}

func (s *wsServer) heartbeatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeats
}

func rawData(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestClient_ReceivesEventsAndHeartbeats(t *testing.T) {
	defer goleak.VerifyNone(t)

	msg := models.Message{ID: 11, SenderID: 2, ReceiverID: 1, Content: "hey"}
	srv := newWSServer(t, []Event{
		{Op: OpReady, Data: rawData(t, ReadyData{UserID: 1}), Seq: 1},
		{Op: OpDMMessageCreate, Data: rawData(t, msg), Seq: 2},
		{Op: OpDMMessageRead, Data: rawData(t, DMReadData{ReaderID: 2, CounterpartID: 1}), Seq: 4},
	}, false)
	defer srv.Close()

	d := NewDispatcher(nil)
	var (
		mu       sync.Mutex
		received []models.Message
		gaps     [][2]int64
		states   []bool
	)
	d.On(OpDMMessageCreate, func(ev Event) {
		var m models.Message
		assert.NoError(t, ev.Decode(&m))
		mu.Lock()
		received = append(received, m)
		mu.Unlock()
	})
	d.OnGap(func(expected, got int64) {
		mu.Lock()
		gaps = append(gaps, [2]int64{expected, got})
		mu.Unlock()
	})

	c := NewClient(&fakeIssuer{}, srv.urlFor, d, Options{HeartbeatInterval: 20 * time.Millisecond})
	c.OnConnectionChange(func(v bool) {
		mu.Lock()
		states = append(states, v)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && len(gaps) == 1
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return srv.heartbeatCount() >= 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, c.Connected())
	assert.Equal(t, int64(4), d.LastSeq())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hey", received[0].Content)
	assert.Equal(t, [2]int64{3, 4}, gaps[0])
	assert.Equal(t, []bool{true, false}, states)
	assert.False(t, c.Connected())
	assert.Equal(t, []string{"t1"}, srv.seenTickets())
}

func TestClient_ReconnectsWithFreshTicket(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newWSServer(t, []Event{{Op: OpReady, Seq: 1}}, true)
	defer srv.Close()

	issuer := &fakeIssuer{}
	c := NewClient(issuer, srv.urlFor, NewDispatcher(nil), Options{
		HeartbeatInterval: time.Hour,
		ReconnectInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(srv.seenTickets()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	// Her dial kendi ticket'ını kullanır.
	seen := map[string]bool{}
	for _, tk := range srv.seenTickets() {
		assert.False(t, seen[tk], "ticket %s reused", tk)
		seen[tk] = true
	}
}

func TestClient_TicketFailureRetriesWithoutDial(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newWSServer(t, nil, false)
	defer srv.Close()

	issuer := &fakeIssuer{err: &pkg.NetworkError{Op: "issue ws ticket", StatusCode: 503}}
	c := NewClient(issuer, srv.urlFor, NewDispatcher(nil), Options{ReconnectInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return issuer.n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Empty(t, srv.seenTickets())
	assert.False(t, c.Connected())
}

func TestClient_DialRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := newWSServer(t, nil, false)
	defer srv.Close()

	// Boş ticket: sunucu 401 döner.
	emptyTicket := func(string) string { return srv.urlFor("") }
	c := NewClient(&fakeIssuer{}, emptyTicket, NewDispatcher(nil), Options{})
	err := c.connectOnce(context.Background())

	var netErr *pkg.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusUnauthorized, netErr.StatusCode)
	assert.ErrorIs(t, err, pkg.ErrNetwork)
}
