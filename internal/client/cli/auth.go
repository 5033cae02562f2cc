package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/foamyadmin/internal/client/session"
	"github.com/dmitrijs2005/foamyadmin/internal/common"
)

// Login prompts for credentials and stores the new session. The password is
// wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := a.ask("Enter username")
	if err != nil {
		return err
	}

	password, err := a.askPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.authService.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	a.loginRequired.Store(false)
	a.userName = user.Username
	a.printf("Welcome, %s!\n", user.Username)

	if _, err := a.products.Revalidate(ctx); err != nil {
		a.log.Warn(ctx, "initial product list fetch failed", "error", err)
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	a.printf("Logged out.\n")
	return nil
}

// WhoAmI prints the stored profile and, for JWT access tokens, when the
// token expires.
func (a *App) WhoAmI(ctx context.Context) error {
	user, err := a.authService.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		a.printf("Not logged in.\n")
		return nil
	}

	a.printf("User:  %s (id %d)\n", user.Username, user.ID)
	a.printf("Email: %s\n", orNA(user.Email))

	access, err := a.store.Get(ctx, session.AccessTokenKey)
	if err != nil {
		return err
	}
	if exp, ok := session.AccessTokenExpiry(string(access)); ok {
		left := time.Until(exp).Round(time.Second)
		if left > 0 {
			a.printf("Access token expires in %s (refreshed automatically).\n", left)
		} else {
			a.printf("Access token expired; it will be refreshed on the next request.\n")
		}
	}
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	if err := a.authService.Verify(ctx); err != nil {
		return err
	}
	a.printf("Access token is valid.\n")
	return nil
}
