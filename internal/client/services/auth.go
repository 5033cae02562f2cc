// Package services contains application services for the catalog admin
// client. This file defines the authentication service: login, logout and
// restoring the session kept in local storage.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/foamyadmin/internal/client/client"
	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
	"github.com/dmitrijs2005/foamyadmin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/foamyadmin/internal/client/session"
	"github.com/dmitrijs2005/foamyadmin/internal/logging"
)

const defaultLoginMessage = "login failed"

// LoginError is a rejected login. Message is what the user should see: the
// backend's detail text or a generic "login failed".
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }

func (e *LoginError) Unwrap() error { return e.Err }

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: obtain a token pair and persist access token, refresh token and
//     user profile together.
//   - Logout: remove the three session entries.
//   - IsAuthenticated: an access token and a user profile are stored.
//   - CurrentUser: the stored profile, or nil when there is none.
//   - Verify: ask the backend whether the stored access token is valid.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) (*models.User, error)
	Logout(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	CurrentUser(ctx context.Context) (*models.User, error)
	Verify(ctx context.Context) error
}

type authService struct {
	client client.Client
	store  metadata.Repository
	log    logging.Logger
}

func NewAuthService(c client.Client, store metadata.Repository, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{client: c, store: store, log: log}
}

// Login replaces the stored session on success. A failed login leaves the
// previous session as it was.
func (a *authService) Login(ctx context.Context, username string, password []byte) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return nil, &LoginError{
			Message: "username and password are required",
			Err:     models.ErrValidation,
		}
	}

	pair, err := a.client.ObtainToken(ctx, models.Credentials{Username: username, Password: string(password)})
	if err != nil {
		a.log.Warn(ctx, "login failed", "username", username, "error", err)
		msg := client.Detail(err)
		if msg == "" {
			msg = defaultLoginMessage
		}
		return nil, &LoginError{Message: msg, Err: err}
	}

	user, err := json.Marshal(pair.User)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	if err := a.store.SetAll(ctx, map[string][]byte{
		session.AccessTokenKey:  []byte(pair.Access),
		session.RefreshTokenKey: []byte(pair.Refresh),
		session.UserKey:         user,
	}); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	a.log.Info(ctx, "logged in", "username", pair.User.Username)
	return &pair.User, nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := session.Clear(ctx, a.store); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *authService) IsAuthenticated(ctx context.Context) bool {
	access, err := a.store.Get(ctx, session.AccessTokenKey)
	if err != nil || len(access) == 0 {
		return false
	}
	user, err := a.store.Get(ctx, session.UserKey)
	return err == nil && len(user) > 0
}

// CurrentUser restores the profile saved at login. A profile that cannot be
// decoded invalidates the whole session.
func (a *authService) CurrentUser(ctx context.Context) (*models.User, error) {
	if !a.IsAuthenticated(ctx) {
		return nil, nil
	}

	raw, err := a.store.Get(ctx, session.UserKey)
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}

	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		a.log.Error(ctx, "stored user is corrupted, clearing session", "error", err)
		if clearErr := session.Clear(ctx, a.store); clearErr != nil {
			return nil, errors.Join(err, clearErr)
		}
		return nil, nil
	}
	return &u, nil
}

func (a *authService) Verify(ctx context.Context) error {
	access, err := a.store.Get(ctx, session.AccessTokenKey)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	if len(access) == 0 {
		return client.ErrUnauthorized
	}
	return a.client.VerifyToken(ctx, string(access))
}
