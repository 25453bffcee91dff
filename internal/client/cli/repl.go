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
// Handlers receive the words following the command; missing values are
// prompted for.
type execIface interface {
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Enable(ctx context.Context, args []string) error
	Disable(ctx context.Context, args []string) error
	Articles(ctx context.Context, args []string) error
	AddArticle(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  login [username]         save hypothes.is credentials (token is read without echo)
  logout                   forget the saved credentials
  enable | disable         turn annotation sync on or off
  articles                 list articles
  addarticle [url]         add an article
  add [article-id]         annotate an article
  (l)ist [article-id]      list annotations
  edit <id>                change an annotation's text and tags
  delete <id>              delete an annotation
  sync                     run a full sync pass now
  status                   show account and sync state
  exit | quit              leave the program`

// runREPL starts a simple read-eval-print loop for the annosync CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on a. Command handlers read their own prompts from
// the same reader. The loop exits on EOF or when the user types "exit" or
// "quit". Handler errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("annosync %s> ", statusFn()))
		line, readErr := reader.ReadString('\n')
		if readErr != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if readErr != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "login":
			err = a.Login(ctx, args)

		case "logout":
			err = a.Logout(ctx, args)

		case "enable":
			err = a.Enable(ctx, args)

		case "disable":
			err = a.Disable(ctx, args)

		case "articles":
			err = a.Articles(ctx, args)

		case "addarticle":
			err = a.AddArticle(ctx, args)

		case "add":
			err = a.Add(ctx, args)

		case "l", "list":
			err = a.List(ctx, args)

		case "edit":
			err = a.Edit(ctx, args)

		case "delete":
			err = a.Delete(ctx, args)

		case "sync":
			err = a.Sync(ctx, args)

		case "status":
			err = a.Status(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
		if readErr != nil {
			return
		}
	}
}
