// Package api, TalentLink backend'ine giden tüm HTTP çağrılarını taşıyan
// paylaşımlı client'ı içerir.
//
// Tüm çağrılar tek bir noktadan (do) geçer:
//   - Authorization header'ı TokenSource'tan enjekte edilir
//   - Her isteğe X-Request-ID eklenir (sunucu log'larıyla eşleştirmek için)
//   - Transport hatası ve 2xx dışı status *pkg.NetworkError'a çevrilir
//
// Client state tutmaz; cache, sıralama ve stale kontrolü services katmanının işidir.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/pkg/logger"
)

// maxResponseBody, okunacak en büyük yanıt gövdesi. Daha büyüğü kesilir.
const maxResponseBody = 4 << 20

// TokenSource, o anki session token'ını verir.
// Oturum yoksa pkg.ErrNoSession dönmelidir.
type TokenSource interface {
	Token() (string, error)
}

// Client, backend'in REST yüzeyi.
type Client struct {
	baseURL *url.URL
	wsPath  string
	tokens  TokenSource
	http    *http.Client
	log     *zap.Logger
	clock   func() time.Time
}

// Option, Client'ı yapılandırır.
type Option func(*Client)

// WithHTTPClient, varsayılan (otelhttp sarılı) http.Client yerine verilenini kullanır.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout, tek bir isteğin üst süresini ayarlar.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger, client log'larının gideceği logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logger.OrNop(l).Named("api") }
}

// WithWebSocketPath, base URL'e göre real-time kanal path'i (varsayılan /messages/ws).
func WithWebSocketPath(p string) Option {
	return func(c *Client) { c.wsPath = p }
}

// New, baseURL'e bağlı bir Client oluşturur. baseURL path içerebilir
// (ör: https://host/api): endpoint'ler bu path'in altına eklenir.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL: u,
		wsPath:  "/messages/ws",
		tokens:  tokens,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		log:   zap.NewNop(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request, tek bir API çağrısının tarifi.
type request struct {
	op     string // NetworkError.Op ve log için
	method string
	path   []string
	query  url.Values
	body   any
}

// do, isteği gönderir ve 2xx yanıtı out'a decode eder (out nil ise gövde atılır).
func (c *Client) do(ctx context.Context, r request, out any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	u := c.baseURL.JoinPath(r.path...)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", r.op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := c.clock()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("op", r.op),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &pkg.NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &pkg.NetworkError{Op: r.op, StatusCode: resp.StatusCode, Err: err}
	}

	c.log.Debug("request done",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("took", c.clock().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkg.DecodeErrorBody(r.op, resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &pkg.NetworkError{
			Op:         r.op,
			StatusCode: resp.StatusCode,
			Message:    "malformed response body",
			Err:        err,
		}
	}
	return nil
}

// WebSocketURL, ticket ile real-time kanal adresini kurar.
// http → ws, https → wss. Session token URL'e asla konmaz.
func (c *Client) WebSocketURL(ticket string) string {
	u := c.baseURL.JoinPath(strings.Split(strings.Trim(c.wsPath, "/"), "/")...)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	return u.String()
}
