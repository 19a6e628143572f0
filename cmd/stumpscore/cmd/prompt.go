package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stumpscore/stumpscore/internal/apperr"
	"golang.org/x/term"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

func (c *client) prompt(label string) (string, error) {
	c.printf("%s: ", label)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", apperr.Wrap(apperr.KindCancelled, "Input closed", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo on a terminal and falls back to a plain
// line when input is piped.
func (c *client) promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return c.prompt(label)
	}

	c.printf("%s: ", label)
	pw, err := readPassword(fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", apperr.Wrap(apperr.KindCancelled, "Input closed", err)
	}
	return string(pw), nil
}

// orPrompt returns v, or asks for it when empty.
func (c *client) orPrompt(v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	return c.prompt(label)
}

func message(err error) string {
	e := apperr.As(err)
	if e.Kind == apperr.KindServer && !errors.As(err, new(*apperr.Error)) {
		return err.Error()
	}
	if e.Kind == apperr.KindValidation && e.Err != nil {
		return e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Message
}
