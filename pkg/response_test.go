package pkg

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDecodeErrorBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"envelope", `{"success":false,"error":"user not found"}`, "user not found"},
		{"detail string", `{"detail":"Not authenticated"}`, "Not authenticated"},
		{"detail list", `{"detail":[{"loc":["body","content"],"msg":"field required"},{"loc":["query","q"],"msg":"too short"}]}`, "field required; too short"},
		{"plain text", "Bad Gateway", "Bad Gateway"},
		{"empty", "  ", ""},
		{"unknown json", `{"foo":"bar"}`, `{"foo":"bar"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodeErrorBody("op", 400, []byte(tt.body))
			assert.Equal(t, 400, err.StatusCode)
			assert.Equal(t, "op", err.Op)
			assert.Equal(t, tt.want, err.Message)
		})
	}
}

func TestDecodeErrorBody_TruncatesLongText(t *testing.T) {
	err := DecodeErrorBody("op", 502, []byte(strings.Repeat("x", 500)))
	assert.Len(t, err.Message, 203)
	assert.True(t, strings.HasSuffix(err.Message, "..."))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("ğ", 10)
	got := truncate(s, 4)
	assert.Equal(t, "ğğğğ...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, s, truncate(s, 10))

	// Uzun, Türkçe karakterli detail gövdesi geçerli UTF-8 kalmalı.
	body := `{"detail":{"reason":"` + strings.Repeat("ş", 300) + `"}}`
	err := DecodeErrorBody("op", 400, []byte(body))
	assert.True(t, utf8.ValidString(err.Message))
	assert.True(t, strings.HasSuffix(err.Message, "..."))
}
