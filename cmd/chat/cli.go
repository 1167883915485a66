package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/abadojack/whatlanggo"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"vanish-chat/domain"
	"vanish-chat/search"
	"vanish-chat/services"
)

// ConsoleView renders every published snapshot to the terminal. It is
// the UI-side SnapshotSink; rendering failures never propagate back
// into the sync engine.
type ConsoleView struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleView(out io.Writer) *ConsoleView {
	return &ConsoleView{out: out}
}

func (v *ConsoleView) Consume(_ context.Context, s domain.Snapshot) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s.Degraded {
		fmt.Fprintln(v.out, color.Yellow.Sprint("! sync degraded, showing last known messages"))
	}
	fmt.Fprintln(v.out, color.Gray.Sprintf("--- chat log (%d messages) ---", len(s.Messages)))
	for _, msg := range s.Messages {
		stamp := color.Gray.Sprint(msg.CreatedAt.Local().Format("15:04:05"))
		text := msg.Text
		if msg.Vanishing() {
			text = color.Magenta.Sprintf("%s (vanishing)", text)
		}
		fmt.Fprintf(v.out, "%s  %s\n", stamp, text)
	}
	return nil
}

// CLI drives the login prompt and the chat input loop.
type CLI struct {
	log         *slog.Logger
	auth        services.IAuthService
	composer    *services.Composer
	chat        services.IChatService
	index       *search.MessageIndex
	searchLimit int

	session *domain.Session
}

func NewCLI(log *slog.Logger, auth services.IAuthService, chat services.IChatService,
	index *search.MessageIndex, searchLimit int) *CLI {
	return &CLI{
		log:         log,
		auth:        auth,
		chat:        chat,
		composer:    services.NewComposer(chat),
		index:       index,
		searchLimit: searchLimit,
	}
}

// Run reads lines from stdin until /quit or context cancellation.
func (c *CLI) Run(ctx context.Context) {
	fmt.Println("vanish-chat. Commands: /signup <email> <password>, /login <email> <password>,")
	fmt.Println("/vanish, /history, /search <terms>, /logout, /quit. Anything else is sent as a message.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !c.handle(ctx, line) {
				return
			}
		}
	}
}

// handle processes one input line; it returns false to exit the loop.
func (c *CLI) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	command := ""
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		command = fields[0]
	}

	switch command {
	case "/quit":
		return false

	case "/signup", "/login":
		if len(fields) != 3 {
			color.Red.Printf("usage: %s <email> <password>\n", command)
			return true
		}
		var session domain.Session
		var err error
		if command == "/signup" {
			session, err = c.auth.Register(fields[1], fields[2])
		} else {
			session, err = c.auth.Login(fields[1], fields[2])
		}
		if err != nil {
			color.Red.Printf("authentication failed: %v\n", err)
			return true
		}
		c.session = &session
		color.Green.Printf("signed in as %s\n", session.Email)
		return true

	case "/logout":
		if c.requireSession() {
			c.auth.Logout()
			c.session = nil
			color.Green.Println("signed out")
		}
		return true

	case "/vanish":
		if c.requireSession() {
			enabled := c.composer.ToggleVanish()
			color.Cyan.Printf("vanishing messages: %v\n", enabled)
		}
		return true

	case "/history":
		if c.requireSession() {
			c.printHistory()
		}
		return true

	case "/search":
		if c.requireSession() {
			c.printSearch(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/search")))
		}
		return true

	case "":
		if line == "" {
			return true
		}
		if !c.requireSession() {
			return true
		}
		c.composer.SetText(line)
		if _, err := c.composer.Submit(*c.session); err != nil {
			// The draft stays in the composer for a retry.
			color.Red.Printf("send failed: %v\n", err)
		}
		return true

	default:
		color.Red.Printf("unknown command %s\n", command)
		return true
	}
}

func (c *CLI) requireSession() bool {
	if c.session == nil {
		color.Red.Println("sign in first (/login or /signup)")
		return false
	}
	return true
}

func (c *CLI) printHistory() {
	messages, err := c.chat.History(*c.session)
	if err != nil {
		color.Red.Printf("history unavailable: %v\n", err)
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Message", "Vanishes", "Lang"})
	for _, msg := range messages {
		vanishes := "-"
		if deadline, ok := msg.VanishDeadline(); ok {
			vanishes = deadline.Local().Format("15:04:05")
		}
		lang := whatlanggo.Detect(msg.Text).Lang.String()
		table.Append([]string{
			msg.CreatedAt.Local().Format("15:04:05"),
			msg.Text,
			vanishes,
			lang,
		})
	}
	table.Render()
}

func (c *CLI) printSearch(ctx context.Context, terms string) {
	if terms == "" {
		color.Red.Println("usage: /search <terms>")
		return
	}
	results, err := c.index.Search(ctx, c.session.UserID, terms, c.searchLimit)
	if err != nil {
		color.Red.Printf("search failed: %v\n", err)
		return
	}
	if len(results) == 0 {
		color.Gray.Println("no matches")
		return
	}
	for _, res := range results {
		fmt.Printf("%s  %s\n", color.Gray.Sprint(res.ID.String()[:8]), res.Text)
	}
}
