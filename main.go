// Package main, talentlink mesajlaşma client'ının giriş noktasıdır.
//
// Wire-up sırası (her komut için):
//  1. Config'i yükle (.env + ortam değişkenleri)
//  2. Logger'ı kur
//  3. Lokal store'u aç (SQLite + migration'lar)       → init_store.go
//  4. Session'ı geri yükle, API client'ı oluştur       → init_services.go
//  5. Bileşenleri ve Messenger'ı oluştur               → init_services.go
//  6. Real-time callback'lerini bağla                  → init_callbacks.go
//
// Oturum gerektirmeyen komutlar (login) 4. adımda durur.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talentlink/messenger/config"
	"github.com/talentlink/messenger/pkg/logger"
)

var (
	cfg *config.Config
	log *zap.Logger

	// Global flag'ler
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "talentlink",
	Short: "TalentLink direct messaging client",
	Long: `Terminal client for TalentLink direct messages.

Log in once with a token issued by the TalentLink web app, then use
'talentlink chat' for the interactive conversation view.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		log, err = logger.New(level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		log.Debug("config loaded",
			zap.String("api_url", cfg.API.BaseURL),
			zap.String("db_path", cfg.Storage.DatabasePath),
			zap.Bool("realtime", cfg.Realtime.Enabled))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
