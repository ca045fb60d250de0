package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Resume(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	Status(ctx context.Context) error
	Metrics(ctx context.Context) error
	Me(ctx context.Context) error
	History(ctx context.Context) error
	Shelf(ctx context.Context) error
	ClearHistory(ctx context.Context) error
	Avatar(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the shelfkeeper CLI.
//
// It reads a line from r, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user types
// "exit" or "quit".
//
//	Not logged in:
//	  - help             show available commands
//	  - register         create an account
//	  - login            authenticate
//	  - resume           restore the stored session
//	  - reset            reset a forgotten password
//	  - status           show session state
//	  - metrics          show session and channel counters
//	  - exit | quit      leave the program
//
//	Logged in:
//	  - me               show profile
//	  - history          show reading history
//	  - shelf            show the bookshelf
//	  - clearhistory     clear reading history
//	  - avatar           set avatar URL
//	  - status           show session state
//	  - metrics          show session and channel counters
//	  - logout           log out
//	  - exit | quit      leave the program
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors to the user.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("shelf %s> ", statusFn()))
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, history, shelf, clearhistory, avatar, status, metrics, logout, exit")
			} else {
				printlnFn("Available commands: register, login, resume, reset, status, metrics, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "resume":
			_ = a.Resume(ctx)

		case "reset":
			_ = a.ForgotPassword(ctx)

		case "status":
			_ = a.Status(ctx)

		case "metrics":
			_ = a.Metrics(ctx)

		case "me", "history", "shelf", "clearhistory", "avatar":
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			switch cmd {
			case "me":
				_ = a.Me(ctx)
			case "history":
				_ = a.History(ctx)
			case "shelf":
				_ = a.Shelf(ctx)
			case "clearhistory":
				_ = a.ClearHistory(ctx)
			case "avatar":
				_ = a.Avatar(ctx)
			}

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
