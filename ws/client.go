package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/pkg/logger"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir frame'i yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// maxMessageSize: Sunucudan kabul edilen en büyük frame (byte).
	maxMessageSize = 64 * 1024

	// missedHeartbeats: Bu kadar heartbeat aralığı boyunca hiçbir frame
	// gelmezse bağlantı kopmuş sayılır.
	missedHeartbeats = 3

	DefaultHeartbeatInterval = 30 * time.Second
	DefaultReconnectInterval = 5 * time.Second
)

// TicketIssuer, real-time kanal için tek kullanımlık ticket üretir.
// *api.Client bu interface'i karşılar.
type TicketIssuer interface {
	IssueWSTicket(ctx context.Context) (*models.Ticket, error)
}

// URLFunc, ticket'tan bağlanılacak ws:// URL'ini üretir.
type URLFunc func(ticket string) string

// Options, Client ayarları. Sıfır değerler varsayılanlara düşer.
type Options struct {
	HeartbeatInterval time.Duration
	ReconnectInterval time.Duration
	Dialer            *websocket.Dialer
	Logger            *zap.Logger
}

// Client, backend'in real-time kanalına bağlanır ve gelen event'leri
// Dispatcher'a iletir. Bağlantı koparsa ReconnectInterval aralıklarla
// yeni ticket alıp tekrar dener.
//
// Her bağlantı için iki goroutine çalışır:
// - readPump: frame'leri okur, Dispatcher'a verir
// - heartbeat: periyodik heartbeat yazar
type Client struct {
	tickets    TicketIssuer
	urlFor     URLFunc
	dispatcher *Dispatcher
	heartbeat  time.Duration
	dialer     *websocket.Dialer
	limiter    *rate.Limiter
	log        *zap.Logger

	mu        sync.Mutex
	connected bool
	onChange  []func(bool)

	writeMu sync.Mutex // conn yazmalarını korur
}

// NewClient, yeni bir real-time client oluşturur. Bağlanmak için Run çağrılır.
func NewClient(tickets TicketIssuer, urlFor URLFunc, dispatcher *Dispatcher, opts Options) *Client {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: writeWait,
		}
	}
	return &Client{
		tickets:    tickets,
		urlFor:     urlFor,
		dispatcher: dispatcher,
		heartbeat:  opts.HeartbeatInterval,
		dialer:     opts.Dialer,
		// burst 1: ilk deneme hemen, sonrakiler aralıklı
		limiter: rate.NewLimiter(rate.Every(opts.ReconnectInterval), 1),
		log:     logger.OrNop(opts.Logger).Named("realtime"),
	}
}

// OnConnectionChange, bağlantı durumu değiştiğinde çağrılacak callback ekler.
func (c *Client) OnConnectionChange(fn func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Connected, şu an açık bir bağlantı var mı?
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Run, ctx iptal edilene kadar bağlı kalmaya çalışır. Her zaman ctx.Err() döner.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch {
		case errors.Is(err, pkg.ErrNoSession), errors.Is(err, pkg.ErrUnauthorized):
			c.log.Debug("realtime connect skipped", zap.Error(err))
		case err != nil:
			c.log.Warn("realtime connection lost", zap.Error(err))
		}
	}
}

// issueTicket, dial için geçerli bir ticket alır. Sunucunun verdiği ticket
// dial'e kadar bayatlamışsa bir kez daha istenir.
func (c *Client) issueTicket(ctx context.Context) (*models.Ticket, error) {
	var ticket *models.Ticket
	for attempt := 0; attempt < 2; attempt++ {
		t, err := c.tickets.IssueWSTicket(ctx)
		if err != nil {
			return nil, err
		}
		ticket = t
		if !ticket.Expired(time.Now()) {
			return ticket, nil
		}
	}
	return nil, &pkg.NetworkError{Op: "issue ws ticket", Message: "ticket expired before dial"}
}

func (c *Client) connectOnce(ctx context.Context) error {
	ticket, err := c.issueTicket(ctx)
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.urlFor(ticket.Value), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return &pkg.NetworkError{Op: "dial realtime", StatusCode: status, Err: err}
	}
	defer conn.Close()

	c.dispatcher.Reset()
	c.setConnected(true)
	defer c.setConnected(false)
	c.log.Info("realtime connected")

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	// ctx iptalinde close frame gönder ve okumayı çöz
	go func() {
		defer wg.Done()
		<-connCtx.Done()
		if ctx.Err() != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		}
		conn.Close()
	}()

	go func() {
		defer wg.Done()
		c.heartbeatLoop(connCtx, conn)
		cancel()
	}()

	err = c.readPump(conn)
	cancel()
	wg.Wait()
	return err
}

func (c *Client) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	deadline := time.Duration(missedHeartbeats) * c.heartbeat
	if err := conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return &pkg.NetworkError{Op: "read realtime", Err: err}
		}

		// Her frame bağlantının canlı olduğunu gösterir.
		if err := conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		if err := c.dispatcher.Dispatch(raw); err != nil {
			c.log.Warn("invalid realtime frame", zap.Error(err))
		}
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeEvent(conn, Event{Op: OpHeartbeat}); err != nil {
				c.log.Debug("heartbeat write failed", zap.Error(err))
				return
			}
		}
	}
}

// writeEvent, bağlantıya tek bir event yazar (mutex ile korunur).
func (c *Client) writeEvent(conn *websocket.Conn, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	if c.connected == v {
		c.mu.Unlock()
		return
	}
	c.connected = v
	hooks := append([]func(bool){}, c.onChange...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(v)
	}
}
