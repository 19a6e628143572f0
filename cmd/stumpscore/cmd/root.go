package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/stumpscore/stumpscore/internal/client/api"
	"github.com/stumpscore/stumpscore/internal/client/auth"
	"github.com/stumpscore/stumpscore/internal/client/session"
	"github.com/stumpscore/stumpscore/internal/config"
	"github.com/stumpscore/stumpscore/internal/logger"
)

// client is everything a command needs, built once per invocation.
type client struct {
	cfg     *config.ClientConfig
	store   *session.SQLiteStore
	api     *api.Client
	auth    *auth.Controller
	in      *bufio.Reader
	out     io.Writer
	now     func() time.Time
	verbose bool
}

func NewRootCmd() *cobra.Command {
	c := &client{cfg: config.LoadClient(), now: time.Now}

	root := &cobra.Command{
		Use:           "stumpscore",
		Short:         "Live cricket scores and StumpScore Premium from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.store != nil {
				return c.store.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfg.APIURL, "api", c.cfg.APIURL, "StumpScore API base URL (STUMPSCORE_API)")
	flags.StringVar(&c.cfg.SessionPath, "session", c.cfg.SessionPath, "session database file (STUMPSCORE_SESSION)")
	flags.DurationVar(&c.cfg.Timeout, "timeout", c.cfg.Timeout, "per-request timeout")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		signupCmd(c),
		loginCmd(c),
		googleCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		subscribeCmd(c),
		historyCmd(c),
		openCmd(c),
		matchesCmd(c),
	)

	return root
}

func (c *client) open(cmd *cobra.Command) error {
	if c.verbose {
		logger.InitWriter(cmd.ErrOrStderr(), true, "")
	} else {
		logger.InitWriter(io.Discard, false, "")
	}

	store, err := session.OpenSQLite(c.cfg.SessionPath)
	if err != nil {
		return err
	}

	c.store = store
	c.in = bufio.NewReader(cmd.InOrStdin())
	c.out = cmd.OutOrStdout()
	c.api = api.New(c.cfg.APIURL, api.WithTimeout(c.cfg.Timeout))
	c.auth = auth.NewController(c.api, store, auth.NewGoogleProvider(c.cfg.GoogleClientID, c.openBrowser))
	return nil
}

func (c *client) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// openBrowser prints the URL and makes a best-effort attempt to launch a
// browser.
func (c *client) openBrowser(url string) error {
	c.printf("Open this link to continue:\n  %s\n", url)

	var launcher string
	switch runtime.GOOS {
	case "darwin":
		launcher = "open"
	case "windows":
		return nil
	default:
		launcher = "xdg-open"
	}
	if _, err := exec.LookPath(launcher); err != nil {
		return nil
	}
	cmd := exec.Command(launcher, url)
	cmd.Stdout, cmd.Stderr = io.Discard, io.Discard
	_ = cmd.Start()
	return nil
}

// Execute runs the CLI and prints failures in a single line.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", message(err))
		return 1
	}
	return 0
}
