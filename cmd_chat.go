package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/services"
)

const chatHelp = `commands:
  /list            show conversations
  /open <id>       open the conversation with user <id>
  /close           close the open conversation
  /search <text>   find users by name
  /pick <n>        start a conversation with search result <n>
  /read            mark the open conversation as read
  /unread          show the total unread count
  /retry           send the last failed message again
  /quit            exit
anything else is sent to the open conversation`

var searchLimit int

// searchCmd, tek seferlik kullanıcı araması.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find users to message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *App) error {
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			search := services.NewUserSearch(a.API, services.SearchOptions{Limit: cfg.Search.Limit}, log)
			defer search.Close()

			page, err := search.Search(ctx, strings.Join(args, " "), searchLimit, 0)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case page.Skipped:
				fmt.Fprintln(out, "query too short, type at least 2 characters")
			case len(page.Users) == 0:
				fmt.Fprintln(out, "no users found")
			default:
				fmt.Fprint(out, formatSearchResults(page.Users))
			}
			return nil
		})
	},
}

// chatCmd, interaktif mesajlaşma görünümü.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive conversation view",
	Long: `Open the interactive conversation view.

The conversation list and the open thread refresh every
TALENTLINK_POLL_INTERVAL. When the realtime channel is enabled, incoming
messages trigger an immediate refresh as well.

` + chatHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, runChat(cmd.InOrStdin(), cmd.OutOrStdout()))
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (default from TALENTLINK_SEARCH_LIMIT)")
}

func runChat(in io.Reader, out io.Writer) func(ctx context.Context, a *App) error {
	return func(ctx context.Context, a *App) error {
		if err := a.requireSession(ctx); err != nil {
			return err
		}
		a.initMessenger()

		sess, _ := a.Session.Current()
		view := newChatView(out, sess.UserID)
		a.Messenger.OnChange(view.Render)
		a.Messenger.Searcher().OnUpdate(view.SearchUpdate)

		ctx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		defer func() {
			cancel()
			wg.Wait()
		}()

		if a.Realtime != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = a.Realtime.Run(ctx)
			}()
		}
		a.Messenger.Start(ctx)
		// İlk prompt'tan önce liste hazır olsun. Hata Render'da gösterilir.
		_ = a.Messenger.RefreshAll(ctx)

		view.Println(chatHelp)
		lines := readLines(in)
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				quit, err := handleChatLine(ctx, a.Messenger, view, line)
				if err != nil {
					view.Error(err)
				}
				if quit {
					return nil
				}
			}
		}
	}
}

// readLines, in'den satırları bir channel'a aktarır. in kapanınca channel kapanır.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

// parseCommand, "/open 12" → ("open", "12"). Komut değilse cmd boş döner.
func parseCommand(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	cmd, arg, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

// handleChatLine, tek bir kullanıcı satırını işler. quit true ise REPL biter.
func handleChatLine(ctx context.Context, m *services.Messenger, view *chatView, line string) (quit bool, err error) {
	if strings.TrimSpace(line) == "" {
		return false, nil
	}

	cmd, arg := parseCommand(line)
	switch cmd {
	case "":
		// Düz metin: taslağı gönder. Trim'i Composer yapar.
		_, err = m.SendText(ctx, line)
		return false, err

	case "quit", "exit", "q":
		return true, nil

	case "help":
		view.Println(chatHelp)

	case "list":
		view.List(m.Snapshot())

	case "open":
		id, perr := strconv.ParseInt(arg, 10, 64)
		if perr != nil {
			return false, pkg.NewValidationError("id", "usage: /open <id>")
		}
		return false, m.Select(ctx, id)

	case "close":
		m.CloseConversation()

	case "search":
		m.Searcher().Type(arg)
		if len([]rune(strings.TrimSpace(arg))) < models.MinSearchQueryLength {
			view.Println(fmt.Sprintf("type at least %d characters", models.MinSearchQueryLength))
		}

	case "pick":
		n, perr := strconv.Atoi(arg)
		if perr != nil {
			return false, pkg.NewValidationError("n", "usage: /pick <n>")
		}
		u, ok := view.Pick(n)
		if !ok {
			return false, pkg.NewValidationError("n", "no search result %d", n)
		}
		return false, m.StartConversation(ctx, u)

	case "read":
		return false, m.MarkRead(ctx)

	case "unread":
		view.Println(fmt.Sprintf("%d unread", m.Snapshot().TotalUnread))

	case "retry":
		if m.Snapshot().Draft == "" {
			return false, errors.New("nothing to retry")
		}
		_, err = m.Send(ctx)
		return false, err

	default:
		return false, pkg.NewValidationError("command", "unknown command /%s, try /help", cmd)
	}
	return false, nil
}
