// Package ws, backend'in gerçek zamanlı kanalını dinleyen client tarafını içerir.
//
// Bağlantı tek kullanımlık bir ticket ile açılır (POST /messages/ws-ticket).
// Sunucudan gelen her frame bir Event'tir; client yalnızca heartbeat gönderir,
// mesaj gönderimi HTTP üzerinden yapılır.
package ws

import (
	"encoding/json"
	"fmt"
)

// Event, WebSocket üzerinden taşınan tek bir frame.
//
// Wire formatı: {"op": "dm_message_create", "d": {...}, "seq": 42}
// Seq sunucunun bağlantı başına artan sayacıdır; heartbeat frame'lerinde 0'dır.
type Event struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// Bağlantı yaşam döngüsü
const (
	OpReady        = "ready"         // Bağlantı kabul edildi
	OpHeartbeat    = "heartbeat"     // Client → Server
	OpHeartbeatAck = "heartbeat_ack" // Server → Client
)

// DM event'leri
const (
	OpDMMessageCreate = "dm_message_create" // Yeni mesaj (gelen veya başka cihazdan giden)
	OpDMMessageRead   = "dm_message_read"   // Karşı taraf veya başka cihaz okudu
)

// ReadyData, bağlantı kurulduğunda gelen ilk event'in payload'ı.
type ReadyData struct {
	UserID int64 `json:"user_id"`
}

// DMReadData, dm_message_read payload'ı.
type DMReadData struct {
	ReaderID      int64 `json:"reader_id"`
	CounterpartID int64 `json:"counterpart_id"`
}

// Decode, event payload'ını v'ye çözer.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %q has no payload", e.Op)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %q payload: %w", e.Op, err)
	}
	return nil
}
