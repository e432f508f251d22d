// Package main: lokal store başlatma.
//
// openStore, SQLite dosyasını açar, embed edilmiş migration'ları çalıştırır
// ve repository'leri oluşturur.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/talentlink/messenger/config"
	"github.com/talentlink/messenger/database"
	"github.com/talentlink/messenger/repository"
)

// Repositories, lokal store'un repository instance'ları.
type Repositories struct {
	Session           repository.SessionRepository
	ConversationCache repository.ConversationCacheRepository
}

// openStore, veritabanını açar ve repository'leri döner.
// Dönen DB'yi kapatmak çağıranın sorumluluğudur.
func openStore(ctx context.Context, c config.StorageConfig, log *zap.Logger) (*database.DB, *Repositories, error) {
	if c.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.DatabasePath), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := database.New(ctx, c.DatabasePath, database.Migrations(), log)
	if err != nil {
		return nil, nil, err
	}

	return db, &Repositories{
		Session:           repository.NewSQLiteSessionRepo(db.Conn),
		ConversationCache: repository.NewSQLiteConversationCacheRepo(db.Conn),
	}, nil
}
