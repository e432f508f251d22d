// Package crypto: lokal olarak saklanan session token'ı için AES-256-GCM.
//
// Session token uzun ömürlüdür ve tüm API'ye erişim sağlar; diskteki SQLite
// dosyasına düz metin olarak yazılmaz.
//
// Anahtar doğrudan kullanıcıdan alınmaz: TALENTLINK_STORAGE_KEY değeri
// HKDF-SHA256 ile 32 byte'lık AES anahtarına genişletilir. Böylece herhangi
// uzunlukta bir secret (hex veya passphrase) kullanılabilir.
//
// Kullanım:
//
//	key, _ := crypto.DeriveKey(cfg.Storage.EncryptionKey)
//	enc, _ := crypto.Encrypt(token, key)
//	token, _ := crypto.Decrypt(enc, key)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize, AES-256 anahtar uzunluğu.
const KeySize = 32

// hkdfSalt / hkdfInfo sabittir: aynı secret her zaman aynı anahtarı üretmeli,
// yoksa önceki çalıştırmada şifrelenen token çözülemez.
var (
	hkdfSalt = []byte("talentlink-messenger/v1")
	hkdfInfo = []byte("session-token")
)

// DeriveKey, secret'tan 32-byte AES-256 anahtarı türetir.
// Kısa secret'lar (16 karakterden az) reddedilir.
func DeriveKey(secret string) ([]byte, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("storage key must be at least 16 characters, got %d", len(secret))
	}

	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(secret), hkdfSalt, hkdfInfo)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// Encrypt, plaintext'i AES-256-GCM ile şifreler.
// Dönen string base64: nonce (12 byte) + ciphertext + tag.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce generation: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt, Encrypt çıktısını çözer. Yanlış anahtar veya bozuk veri hata döner.
func Decrypt(encoded string, key []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open (wrong key or corrupted data): %w", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be exactly %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
