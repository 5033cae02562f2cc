package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/foamyadmin/internal/client/client"
	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
	"github.com/dmitrijs2005/foamyadmin/internal/client/services"
	"github.com/dmitrijs2005/foamyadmin/internal/client/session"
)

// notifyError prints a failure the way the user should read it.
func (a *App) notifyError(err error) {
	a.printf("Error: %s\n", userMessage(err))
}

func userMessage(err error) string {
	var loginErr *services.LoginError
	switch {
	case errors.As(err, &loginErr):
		return loginErr.Message
	case errors.Is(err, session.ErrSessionExpired):
		return "your session has expired, please log in again"
	case errors.Is(err, models.ErrValidation):
		return err.Error()
	case errors.Is(err, client.ErrUnavailable):
		return "the server is unavailable, try again later"
	case errors.Is(err, client.ErrNotFound):
		return "not found"
	}

	if detail := client.Detail(err); detail != "" {
		return detail
	}
	return fmt.Sprint(err)
}
