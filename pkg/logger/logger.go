// Package logger, zap logger'ını config'e göre kurar.
//
// Production: JSON çıktı (log toplayıcılar için).
// Development: renkli console çıktı, caller bilgisi.
//
// Component'ler logger'ı parametre olarak alır ve Named() ile etiketler:
//
//	log := logger.Named("poller")
//	log.Warn("refresh failed", zap.Error(err))
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New, seviye ve ortama göre zap logger oluşturur.
// level: "debug", "info", "warn", "error".
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	// Interaktif chat stdout'u kullanıyor: loglar stderr'e.
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

// OrNop, nil logger yerine no-op logger döner.
// Constructor'lar opsiyonel logger aldığında kullanılır.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
