// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya client tarafındaki error taksonomisini içerir.
//
// İki katman var:
//   - Sentinel error'lar (errors.New) → errors.Is ile karşılaştırılır
//   - Typed error'lar (NetworkError, ValidationError, StaleResultError) → detay taşır
//
// Typed error'lar Unwrap() []error ile sentinel'lere bağlanır, böylece çağıran taraf
// hangi tipin döndüğünü bilmek zorunda kalmaz:
//
//	if errors.Is(err, pkg.ErrNetwork) { ... }      // herhangi bir ağ hatası
//	if errors.Is(err, pkg.ErrUnauthorized) { ... } // 401 dönen NetworkError dahil
package pkg

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTP status karşılığı olan sentinel'ler.
// Sunucudan gelen status code'lar bunlara map'lenir (bkz. StatusSentinel).
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrBadRequest      = errors.New("bad request")
	ErrTooManyRequests = errors.New("too many requests")
	ErrInternal        = errors.New("internal error")
)

// Client'a özgü sentinel'ler.
var (
	ErrNetwork     = errors.New("network error")
	ErrValidation  = errors.New("validation error")
	ErrStale       = errors.New("stale result")
	ErrNoSession   = errors.New("no active session")
	ErrRateLimited = errors.New("rate limited")
	ErrClosed      = errors.New("closed")
)

// NetworkError, isteğin hiç tamamlanamadığı (transport hatası) veya
// sunucunun 2xx dışı bir status döndüğü durumu temsil eder.
//
// StatusCode 0 ise istek sunucuya ulaşamamıştır; Err transport hatasını taşır.
type NetworkError struct {
	Op         string // Hangi API çağrısı (ör: "list conversations")
	StatusCode int
	Message    string // Sunucunun döndüğü hata metni (varsa)
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": network error"
	}
}

// Unwrap, Go 1.20+ çoklu unwrap: ErrNetwork, status sentinel'i ve transport
// hatası aynı anda errors.Is ile yakalanabilir.
func (e *NetworkError) Unwrap() []error {
	errs := []error{ErrNetwork}
	if s := StatusSentinel(e.StatusCode); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Temporary, tekrar denenmesi anlamlı bir hata mı?
// 4xx (429 hariç) kullanıcı/istek hatasıdır, tekrar denemek sonucu değiştirmez.
func (e *NetworkError) Temporary() bool {
	if e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// ValidationError, istek hiç gönderilmeden lokal olarak reddedilen girdiyi temsil eder
// (boş mesaj, kısa arama sorgusu vb.).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError, kısa yol constructor.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StaleResultError, artık aktif olmayan bir seçim/sorgu için gelen sonucu işaretler.
// Kullanıcıya gösterilmez: tespit eden component sessizce atar.
type StaleResultError struct {
	Op         string
	Generation uint64
}

func (e *StaleResultError) Error() string {
	return fmt.Sprintf("%s: result of generation %d superseded", e.Op, e.Generation)
}

func (e *StaleResultError) Unwrap() error { return ErrStale }

// StatusSentinel, HTTP status code'unu domain sentinel'ine eşler.
// Eşleşme yoksa nil döner (ör: 2xx veya bilinmeyen 4xx).
func StatusSentinel(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	case status == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case status >= 500:
		return ErrInternal
	default:
		return nil
	}
}
