package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	needsLogin() bool
	notifyError(err error)

	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Verify(ctx context.Context) error

	List(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error

	Categories(ctx context.Context) error
	AddCategory(ctx context.Context) error
	EditCategory(ctx context.Context, args []string) error
	DeleteCategory(ctx context.Context, args []string) error

	Inventory(ctx context.Context) error
	AddStock(ctx context.Context, args []string) error
}

const helpLoggedOut = "Available commands: login, help, exit"

const helpLoggedIn = `Available commands:
  (l)ist                  list products
  show <id>               product details
  add                     create a product
  edit <id>               edit a product
  delete <id>             delete a product
  categories              list categories
  addcategory             create a category
  editcategory <id>       rename a category
  deletecategory <id>     delete a category
  inventory               list inventory entries
  addstock [product id]   record received stock
  whoami | verify         session info
  logout | exit`

// public commands run without a session.
var public = map[string]bool{"help": true, "login": true, "exit": true, "quit": true}

// runREPL starts a simple read–eval–print loop for the catalog admin CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user types
// "exit" or "quit".
//
// Every command except help, login and exit needs a session. When the
// session guard has discarded the session, the next command first goes
// through the login prompt. Errors returned by handlers are reported with
// notifyError; the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("foamy%s> ", statusSuffix(statusFn())))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !public[cmd] {
			if a.needsLogin() {
				printlnFn("Your session has expired. Please log in again.")
				if err := a.Login(ctx); err != nil {
					a.notifyError(err)
					continue
				}
			}
			if !a.isLoggedIn(ctx) {
				printlnFn("Please log in first (type 'login').")
				continue
			}
		}

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "verify":
			cmdErr = a.Verify(ctx)

		case "l", "list":
			cmdErr = a.List(ctx)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "add":
			cmdErr = a.Add(ctx)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)

		case "categories":
			cmdErr = a.Categories(ctx)
		case "addcategory":
			cmdErr = a.AddCategory(ctx)
		case "editcategory":
			cmdErr = a.EditCategory(ctx, args)
		case "deletecategory":
			cmdErr = a.DeleteCategory(ctx, args)

		case "inventory":
			cmdErr = a.Inventory(ctx)
		case "addstock":
			cmdErr = a.AddStock(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			a.notifyError(cmdErr)
		}
	}
}

func statusSuffix(status string) string {
	if status == "" {
		return ""
	}
	return " " + status
}
