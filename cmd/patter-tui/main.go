// ABOUTME: Interactive terminal client for the patter chat backend
// ABOUTME: Provides slash commands for login, directory, and live one-to-one chat

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/patterhq/patter/internal/api"
	"github.com/patterhq/patter/internal/channel"
	"github.com/patterhq/patter/internal/chat"
)

// Version is set by goreleaser at build time.
var version = "dev"

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	gray   = color.New(color.FgHiBlack)
)

// app holds the interactive session state around the chat client: the
// mobile number awaiting verification and the directory as last listed,
// so /chat can select by index.
type app struct {
	client        *chat.Client
	pendingMobile string
	directory     []chat.User
}

func main() {
	server := flag.String("server", "", "Backend server URL (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging to stderr")
	flag.Parse()

	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	serverURL := cfg.Server.URL
	if *server != "" {
		serverURL = *server
	}

	logLevel := slog.LevelWarn
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(serverURL, "/"), "http") + "/ws"

	client := chat.New(
		api.NewClient(serverURL, logger),
		channel.NewDialer(wsURL, logger),
		logger,
	)

	fmt.Printf("patter-tui %s connected to %s\n", version, serverURL)
	fmt.Println("Type /help for commands. Ctrl+C to quit.")
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{client: client}
	if err := a.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Tear the session down so the channel closes cleanly
	client.Logout()
	fmt.Println("\nGoodbye!")
}

func (a *app) run(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)

	// Live messages land asynchronously; repaint the prompt after each one.
	a.client.OnMessage(func(msg chat.Message) {
		fmt.Print("\r")
		a.printMessage(msg)
		a.printPrompt()
	})

	for {
		a.printPrompt()

		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if input == "/quit" || input == "/exit" || input == "/q" {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			if err := a.handleCommand(ctx, input); err != nil {
				red.Printf("[error] %v\n", err)
			}
			fmt.Println()
			continue
		}

		// Bare text goes to the selected partner
		partner := a.client.Selected()
		if partner == nil {
			yellow.Println("No conversation selected. Use /users then /chat <n>.")
			fmt.Println()
			continue
		}
		if err := a.client.SendMessage(ctx, partner.ID, input); err != nil {
			red.Printf("[error] %v\n", err)
		}
	}
}

func (a *app) handleCommand(ctx context.Context, input string) error {
	cmd, args := input, ""
	if i := strings.IndexByte(input, ' '); i >= 0 {
		cmd, args = input[:i], strings.TrimSpace(input[i+1:])
	}

	switch cmd {
	case "/help":
		printHelp()
		return nil

	case "/login":
		if args == "" {
			return fmt.Errorf("usage: /login <mobile number>")
		}
		if err := a.client.Login(ctx, args); err != nil {
			return err
		}
		a.pendingMobile = args
		green.Println("Verification code requested. Enter it with /verify <code>.")
		return nil

	case "/verify":
		if args == "" {
			return fmt.Errorf("usage: /verify <code>")
		}
		if a.pendingMobile == "" {
			return fmt.Errorf("no login pending; use /login <mobile number> first")
		}
		if err := a.client.VerifyCode(ctx, a.pendingMobile, args); err != nil {
			return err
		}
		a.pendingMobile = ""
		session := a.client.Session()
		green.Printf("Logged in as %s\n", session.User.DisplayName())
		return nil

	case "/users":
		if !a.client.Session().Authenticated {
			return fmt.Errorf("not logged in")
		}
		users := a.client.ListUsers(ctx)
		a.directory = users
		if len(users) == 0 {
			fmt.Println("Nobody else is registered yet.")
			return nil
		}
		fmt.Println("Users:")
		for i, u := range users {
			fmt.Printf("  %d. %s ", i+1, u.DisplayName())
			gray.Printf("(%s)\n", u.MobileNumber)
		}
		return nil

	case "/chat":
		if args == "" {
			a.client.SelectConversation(ctx, nil)
			fmt.Println("Cleared conversation selection.")
			return nil
		}
		user, err := a.findUser(args)
		if err != nil {
			return err
		}
		a.client.SelectConversation(ctx, &user)
		cyan.Printf("Chatting with %s\n", user.DisplayName())
		for _, msg := range a.client.Messages() {
			a.printMessage(msg)
		}
		return nil

	case "/status":
		a.printStatus()
		return nil

	case "/logout":
		a.client.Logout()
		a.directory = nil
		a.pendingMobile = ""
		fmt.Println("Logged out.")
		return nil

	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// findUser resolves a /chat argument against the last listed directory:
// a 1-based index, a mobile number, or a user ID.
func (a *app) findUser(arg string) (chat.User, error) {
	if len(a.directory) == 0 {
		return chat.User{}, fmt.Errorf("no directory loaded; run /users first")
	}

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(a.directory) {
			return chat.User{}, fmt.Errorf("index %d out of range", n)
		}
		return a.directory[n-1], nil
	}

	for _, u := range a.directory {
		if u.MobileNumber == arg || string(u.ID) == arg {
			return u, nil
		}
	}
	return chat.User{}, fmt.Errorf("no user matching %q", arg)
}

func (a *app) printPrompt() {
	if partner := a.client.Selected(); partner != nil {
		fmt.Printf("[%s]> ", partner.DisplayName())
	} else {
		fmt.Print("> ")
	}
}

func (a *app) printMessage(msg chat.Message) {
	session := a.client.Session()
	if session.User != nil && msg.Sender.Identity() == session.User.ID {
		green.Print("you: ")
	} else {
		cyan.Printf("%s: ", msg.Sender.DisplayName())
	}
	fmt.Print(msg.Body)
	if !msg.SentAt.IsZero() {
		gray.Printf("  %s", msg.SentAt.Local().Format("15:04"))
	}
	fmt.Println()
}

func (a *app) printStatus() {
	session := a.client.Session()
	if !session.Authenticated {
		fmt.Println("Not logged in.")
		return
	}
	fmt.Printf("Logged in as %s ", session.User.DisplayName())
	gray.Printf("(%s)\n", session.User.MobileNumber)
	if a.client.Connected() {
		green.Println("Live channel: connected")
	} else {
		yellow.Println("Live channel: disconnected")
	}
	if partner := a.client.Selected(); partner != nil {
		fmt.Printf("Chatting with %s\n", partner.DisplayName())
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /login <number>   Request a verification code")
	fmt.Println("  /verify <code>    Complete login with the code")
	fmt.Println("  /users            List registered users")
	fmt.Println("  /chat <n|number>  Open a conversation (index from /users)")
	fmt.Println("  /chat             Clear the conversation selection")
	fmt.Println("  /status           Show session and channel state")
	fmt.Println("  /logout           End the session")
	fmt.Println("  /help             Show this help")
	fmt.Println("  /quit             Exit")
	fmt.Println()
	fmt.Println("Anything else you type is sent to the selected conversation.")
}
