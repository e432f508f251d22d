// Package config, client'ın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Her alt bölüm ayrı bir struct: her biri tek bir concern'ü temsil eder
// (API, real-time kanal, polling, arama, depolama, gönderim limiti, log).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	API      APIConfig
	Realtime RealtimeConfig
	Polling  PollingConfig
	Search   SearchConfig
	Thread   ThreadConfig
	Storage  StorageConfig
	Send     SendConfig
	Log      LogConfig
}

// APIConfig, REST backend ayarları.
type APIConfig struct {
	BaseURL string        // ör: http://localhost:8000 veya https://api.talentlink.app/api
	Timeout time.Duration // Tek bir HTTP isteğinin üst süresi
}

// RealtimeConfig, WebSocket kanalı ayarları.
type RealtimeConfig struct {
	Enabled           bool
	Path              string        // Base URL'e göre WS path'i (ör: /messages/ws)
	HeartbeatInterval time.Duration // Client → server heartbeat periyodu
	ReconnectInterval time.Duration // Bağlantı denemeleri arası minimum süre
}

// PollingConfig, periyodik yenileme ayarları.
// Real-time kanal açık olsa bile polling fallback olarak çalışır.
type PollingConfig struct {
	Interval time.Duration
}

// SearchConfig, kullanıcı arama ayarları.
type SearchConfig struct {
	Debounce time.Duration // Son tuş vuruşundan sonra beklenen sessizlik süresi
	Limit    int           // Sayfa başına sonuç (1-100)
	CacheTTL time.Duration // Aynı sorgunun sonucunun bellekte tutulma süresi
}

// ThreadConfig, mesaj geçmişi ayarları.
type ThreadConfig struct {
	PageSize int // GET /messages/conversations/{id} limit parametresi
}

// StorageConfig, lokal kalıcı depolama ayarları.
type StorageConfig struct {
	DatabasePath  string // SQLite dosya yolu
	EncryptionKey string // Session token'ı şifrelemek için secret: GİZLİ TUTULMALI
}

// SendConfig, client tarafı gönderim limiti.
type SendConfig struct {
	MaxMessages int           // Window başına izin verilen mesaj (0 = limitsiz)
	Window      time.Duration
	Cooldown    time.Duration
}

// LogConfig, log ayarları.
type LogConfig struct {
	Level       string // debug | info | warn | error
	Development bool
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler; yoksa sessizce devam eder.
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiTimeout, err := getDuration("TALENTLINK_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	wsEnabled, err := strconv.ParseBool(getEnv("TALENTLINK_WS_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid TALENTLINK_WS_ENABLED: %w", err)
	}

	heartbeat, err := getDuration("TALENTLINK_WS_HEARTBEAT", "30s")
	if err != nil {
		return nil, err
	}

	reconnect, err := getDuration("TALENTLINK_WS_RECONNECT", "5s")
	if err != nil {
		return nil, err
	}

	pollInterval, err := getDuration("TALENTLINK_POLL_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}

	debounce, err := getDuration("TALENTLINK_SEARCH_DEBOUNCE", "300ms")
	if err != nil {
		return nil, err
	}

	searchLimit, err := getInt("TALENTLINK_SEARCH_LIMIT", "20")
	if err != nil {
		return nil, err
	}

	searchTTL, err := getDuration("TALENTLINK_SEARCH_CACHE_TTL", "30s")
	if err != nil {
		return nil, err
	}

	pageSize, err := getInt("TALENTLINK_THREAD_PAGE_SIZE", "50")
	if err != nil {
		return nil, err
	}

	sendMax, err := getInt("TALENTLINK_SEND_MAX_MESSAGES", "5")
	if err != nil {
		return nil, err
	}

	sendWindow, err := getDuration("TALENTLINK_SEND_WINDOW", "5s")
	if err != nil {
		return nil, err
	}

	sendCooldown, err := getDuration("TALENTLINK_SEND_COOLDOWN", "15s")
	if err != nil {
		return nil, err
	}

	storageKey := getEnv("TALENTLINK_STORAGE_KEY", "")
	if storageKey == "" {
		return nil, fmt.Errorf("TALENTLINK_STORAGE_KEY environment variable is required")
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("TALENTLINK_API_URL", "http://localhost:8000"), "/"),
			Timeout: apiTimeout,
		},
		Realtime: RealtimeConfig{
			Enabled:           wsEnabled,
			Path:              getEnv("TALENTLINK_WS_PATH", "/messages/ws"),
			HeartbeatInterval: heartbeat,
			ReconnectInterval: reconnect,
		},
		Polling: PollingConfig{
			Interval: pollInterval,
		},
		Search: SearchConfig{
			Debounce: debounce,
			Limit:    searchLimit,
			CacheTTL: searchTTL,
		},
		Thread: ThreadConfig{
			PageSize: pageSize,
		},
		Storage: StorageConfig{
			DatabasePath:  getEnv("TALENTLINK_DB_PATH", "./data/talentlink.db"),
			EncryptionKey: storageKey,
		},
		Send: SendConfig{
			MaxMessages: sendMax,
			Window:      sendWindow,
			Cooldown:    sendCooldown,
		},
		Log: LogConfig{
			Level:       getEnv("TALENTLINK_LOG_LEVEL", "info"),
			Development: getEnv("TALENTLINK_ENV", "production") == "development",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate, değerlerin birbiriyle ve kendi sınırlarıyla tutarlı olduğunu kontrol eder.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("TALENTLINK_API_URL must start with http:// or https://, got %q", c.API.BaseURL)
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("TALENTLINK_POLL_INTERVAL must be positive")
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("TALENTLINK_SEARCH_DEBOUNCE must not be negative")
	}
	if c.Search.Limit < 1 || c.Search.Limit > 100 {
		return fmt.Errorf("TALENTLINK_SEARCH_LIMIT must be between 1 and 100, got %d", c.Search.Limit)
	}
	if c.Thread.PageSize < 1 || c.Thread.PageSize > 200 {
		return fmt.Errorf("TALENTLINK_THREAD_PAGE_SIZE must be between 1 and 200, got %d", c.Thread.PageSize)
	}
	if c.Realtime.Enabled && c.Realtime.HeartbeatInterval <= 0 {
		return fmt.Errorf("TALENTLINK_WS_HEARTBEAT must be positive")
	}
	if c.Realtime.Enabled && c.Realtime.ReconnectInterval <= 0 {
		return fmt.Errorf("TALENTLINK_WS_RECONNECT must be positive")
	}
	if c.Send.MaxMessages < 0 {
		return fmt.Errorf("TALENTLINK_SEND_MAX_MESSAGES must not be negative")
	}
	return nil
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key, fallback string) (int, error) {
	v, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key, fallback string) (time.Duration, error) {
	v, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
