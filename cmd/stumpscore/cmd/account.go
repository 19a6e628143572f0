package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/client/session"
	"github.com/stumpscore/stumpscore/internal/model"
)

func signupCmd(c *client) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := c.orPrompt(name, "Name")
			if err != nil {
				return err
			}
			email, err := c.orPrompt(email, "Email")
			if err != nil {
				return err
			}
			password, err := c.promptPassword("Password")
			if err != nil {
				return err
			}

			user, err := c.auth.Signup(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			c.printf("Welcome to StumpScore, %s!\n", user.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func loginCmd(c *client) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := c.orPrompt(email, "Email")
			if err != nil {
				return err
			}
			password, err := c.promptPassword("Password")
			if err != nil {
				return err
			}

			user, err := c.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			c.printf("Signed in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func googleCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "google",
		Short: "Sign in with Google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.auth.LoginWithGoogle(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("Signed in as %s\n", user.Email)
			return nil
		},
	}
}

func logoutCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.auth.Logout(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("Signed out\n")
			return nil
		},
	}
}

func whoamiCmd(c *client) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and premium status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var user *model.UserView
			var err error
			if offline {
				user, err = c.auth.CurrentUser(cmd.Context())
			} else {
				user, err = c.auth.RefreshUser(cmd.Context())
			}
			if errors.Is(err, session.ErrNoSession) || errors.Is(err, apperr.ErrNoToken) {
				c.printf("Not signed in\n")
				return nil
			}
			if err != nil {
				return err
			}

			c.printf("%s <%s>\n", user.Name, user.Email)
			c.printf("Premium: %s\n", premiumStatus(user, c.now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "use the cached session without contacting the server")
	return cmd
}

func premiumStatus(user *model.UserView, now time.Time) string {
	switch {
	case user.IsPremiumAt(now) && user.PremiumUntil != nil:
		return "active until " + user.PremiumUntil.Local().Format("2 Jan 2006")
	case user.IsPremiumAt(now):
		return "active"
	case user.IsPremium:
		return "expired on " + user.PremiumUntil.Local().Format("2 Jan 2006")
	default:
		return "not subscribed"
	}
}
