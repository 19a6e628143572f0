package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stumpscore/stumpscore/internal/app"
	"github.com/stumpscore/stumpscore/internal/config"
	"github.com/stumpscore/stumpscore/internal/logger"
	"github.com/stumpscore/stumpscore/internal/service"
)

func SeedCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo account for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if !cfg.IsDevelopment() {
				return errors.New("seed only runs with APP_ENV=development")
			}
			logger.Init(true, "")

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.AuthService.Register(cmd.Context(), name, email, password)
			if errors.Is(err, service.ErrEmailAlreadyExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", email)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Demo Fan", "display name")
	cmd.Flags().StringVar(&email, "email", "demo@stumpscore.local", "account email")
	cmd.Flags().StringVar(&password, "password", "demo1234", "account password")

	return cmd
}
