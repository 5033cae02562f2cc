package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/foamyadmin/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

// askDefault shows the current value; an empty answer keeps it.
func (a *App) askDefault(prompt, current string) (string, error) {
	v, err := a.ask(fmt.Sprintf("%s [%s]", prompt, current))
	if err != nil {
		return "", err
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

func (a *App) askMultiline(prompt string) (string, error) {
	return getMultiline(a.reader, prompt, a.out)
}

// askPassword reads without echo on a terminal and as a plain line otherwise.
func (a *App) askPassword() ([]byte, error) {
	if a.interactive {
		return getPassword(a.out)
	}
	line, err := a.ask("Enter password")
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

func (a *App) confirm(prompt string) (bool, error) {
	v, err := a.ask(prompt + " [y/N]")
	if err != nil {
		return false, err
	}
	v = strings.ToLower(v)
	return v == "y" || v == "yes", nil
}

// idArg takes the id from the command arguments or asks for it.
func (a *App) idArg(args []string, prompt string) (int64, error) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	} else {
		v, err := a.ask(prompt)
		if err != nil {
			return 0, err
		}
		raw = v
	}
	return parseID(raw)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a valid id", models.ErrValidation, raw)
	}
	return id, nil
}

func parseInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a whole number", models.ErrValidation, field)
	}
	return n, nil
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
