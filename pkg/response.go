package pkg

import (
	"encoding/json"
	"strings"
)

// APIResponse, backend'in hata gövdesi için bilinen format.
// İki farklı backend sürümü var:
//   - Envelope: {"success": false, "error": "..."}
//   - FastAPI:  {"detail": "..."} veya {"detail": [{"loc": [...], "msg": "..."}]}
//
// Başarılı yanıtlar envelope'suz gelir, bu yüzden Data burada sadece
// tolerans amaçlı tutulur.
type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// validationDetail, FastAPI'nin 422 yanıtındaki tek bir alan hatası.
type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// DecodeErrorBody, 2xx dışı bir yanıtın gövdesini NetworkError'a çevirir.
// Gövde parse edilemezse ham metin (kısaltılmış) mesaj olarak kullanılır.
func DecodeErrorBody(op string, status int, body []byte) *NetworkError {
	return &NetworkError{
		Op:         op,
		StatusCode: status,
		Message:    errorMessage(body),
	}
}

func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var resp APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return truncate(trimmed, 200)
	}
	if resp.Error != "" {
		return resp.Error
	}
	if len(resp.Detail) == 0 {
		return truncate(trimmed, 200)
	}

	var detail string
	if err := json.Unmarshal(resp.Detail, &detail); err == nil {
		return detail
	}

	var details []validationDetail
	if err := json.Unmarshal(resp.Detail, &details); err == nil && len(details) > 0 {
		msgs := make([]string, 0, len(details))
		for _, d := range details {
			msgs = append(msgs, d.Msg)
		}
		return strings.Join(msgs, "; ")
	}

	return truncate(string(resp.Detail), 200)
}

// truncate, n rune'dan uzun metni rune sınırında keser.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
