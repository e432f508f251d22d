package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginToken string

// loginCmd, web uygulamasından alınan token'ı şifreleyip lokal store'a yazar.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a TalentLink access token",
	Long: `Store the bearer token issued by the TalentLink web app.

The token is encrypted with TALENTLINK_STORAGE_KEY before it is written
to the local database. Claims (user id, username, role, expiry) are read
from the token; the signature is checked by the server on every request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *App) error {
			sess, err := a.Session.Login(ctx, loginToken)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in as %s (id %d)\n", displayName(sess.Username, sess.UserID), sess.UserID)
			if sess.ExpiresAt != nil {
				fmt.Fprintf(out, "Token expires %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token and cached conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *App) error {
			if err := a.Session.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in account and unread message count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *App) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			sess, _ := a.Session.Current()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (id %d)", displayName(sess.Username, sess.UserID), sess.UserID)
			if sess.Role != "" {
				fmt.Fprintf(out, ", %s", sess.Role)
			}
			fmt.Fprintln(out)

			unread, err := a.API.UnreadCount(ctx)
			if err != nil {
				a.log.Warn("failed to fetch unread count", zap.Error(err))
				return nil
			}
			fmt.Fprintf(out, "%d unread message(s)\n", unread)
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Access token issued by the TalentLink web app (required)")
	_ = loginCmd.MarkFlagRequired("token")
}

// withApp, sinyal ile iptal edilen bir context altında App'i kurar, fn'i
// çalıştırır ve App'i kapatır.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}
