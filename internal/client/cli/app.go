package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dmitrijs2005/foamyadmin/internal/client/client"
	"github.com/dmitrijs2005/foamyadmin/internal/client/config"
	"github.com/dmitrijs2005/foamyadmin/internal/client/productlist"
	"github.com/dmitrijs2005/foamyadmin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/foamyadmin/internal/client/services"
	"github.com/dmitrijs2005/foamyadmin/internal/logging"
	"golang.org/x/term"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	catalog     services.CatalogService
	products    *productlist.List
	store       metadata.Repository
	closer      io.Closer
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer
	interactive bool

	// loginRequired is set when the session guard discarded the session.
	loginRequired atomic.Bool
	userName      string
}

// NewApp opens the local session store and wires the API client, the
// services and the product list cache.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(c.LogLevel, os.Stderr)

	repos, err := client.InitDatabase(ctx, c.StorageDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	a, err := newApp(c, repos.Metadata, repos, os.Stdin, os.Stdout, log)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}
	a.interactive = term.IsTerminal(int(os.Stdin.Fd()))
	return a, nil
}

func newApp(c *config.Config, store metadata.Repository, closer io.Closer, in io.Reader, out io.Writer, log logging.Logger) (*App, error) {
	a := &App{
		config: c,
		store:  store,
		closer: closer,
		log:    log,
		reader: bufio.NewReader(in),
		out:    out,
	}

	apiClient, err := client.NewSessionClient(c.APIBaseURL, nil, store, c.HTTPTimeout, log, a.sessionExpired)
	if err != nil {
		return nil, err
	}

	a.authService = services.NewAuthService(apiClient, store, log)
	a.catalog = services.NewCatalogService(apiClient, log)
	a.products = productlist.New(a.catalog,
		productlist.WithDedupeInterval(c.DedupeInterval),
		productlist.WithActive(a.authService.IsAuthenticated),
		productlist.WithLogger(log.With("component", "productlist")),
	)
	return a, nil
}

// sessionExpired is the guard's OnExpired hook: the next command goes
// through the login prompt first.
func (a *App) sessionExpired() {
	a.loginRequired.Store(true)
}

func (a *App) needsLogin() bool {
	return a.loginRequired.Load()
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.authService.IsAuthenticated(ctx)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Run blocks until the user exits, then releases the local store.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.closer != nil {
			_ = a.closer.Close()
		}
	}()
	a.Root(ctx)
}

// Root restores a saved session (or asks for a login), starts the periodic
// product list revalidation, which idles while logged out, and runs the REPL.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.printf("Foamy catalog admin (type 'help' for commands)\n")

	user, err := a.authService.CurrentUser(ctx)
	if err != nil {
		a.log.Error(ctx, "restore session", "error", err)
	}
	if user != nil {
		a.userName = user.Username
		a.printf("Welcome back, %s!\n", user.Username)
	} else if err := a.Login(ctx); err != nil {
		a.notifyError(err)
	}

	go a.products.StartRevalidation(ctx, a.config.RevalidateInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
