package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stumpscore/stumpscore/internal/client/guard"
	"github.com/stumpscore/stumpscore/internal/model"
)

func openCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open a screen, as the app would, after the access check",
		Example: "  stumpscore open /predictions\n" +
			"  stumpscore open /profile",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := guard.New(c.store, guard.Routes, c.now)
			d, err := g.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			switch {
			case d.Allow:
				return c.render(cmd.Context(), guard.Normalize(args[0]))
			case d.From != "":
				c.printf("Sign in to open %s (redirecting to %s)\n", d.From, d.RedirectTo)
			default:
				c.printf("%s needs StumpScore Premium (redirecting to %s). Run `stumpscore subscribe`.\n", args[0], d.RedirectTo)
			}
			return nil
		},
	}
}

func matchesCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "matches",
		Short: "Show live and upcoming matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showMatches(cmd.Context())
		},
	}
}

func (c *client) render(ctx context.Context, path string) error {
	switch path {
	case "/", "/matches":
		return c.showMatches(ctx)
	case "/predictions":
		return c.showPredictions(ctx)
	case "/premium":
		c.printf("StumpScore Premium plans: %s\n", planList())
		return nil
	default:
		c.printf("Opened %s\n", path)
		return nil
	}
}

func (c *client) showMatches(ctx context.Context) error {
	matches, err := c.api.LiveMatches(ctx)
	if err != nil {
		return err
	}
	for _, m := range matches {
		c.printf("%-9s %s\n", m.Status, matchLine(m))
		if m.CurrentStatus != "" {
			c.printf("          %s\n", m.CurrentStatus)
		}
	}
	return nil
}

func (c *client) showPredictions(ctx context.Context) error {
	var predictions []model.Prediction
	err := c.auth.Authorized(ctx, func(ctx context.Context, token string) error {
		var err error
		predictions, err = c.api.Predictions(ctx, token)
		return err
	})
	if err != nil {
		return err
	}

	for _, p := range predictions {
		c.printf("%s %.0f%% vs %s %.0f%% (%s confidence)\n", p.Team1, p.Team1WinPct, p.Team2, p.Team2WinPct, p.Confidence)
	}
	return nil
}

func matchLine(m model.Match) string {
	return fmt.Sprintf("%s %s v %s %s @ %s", m.Team1.Name, teamScore(m.Team1), m.Team2.Name, teamScore(m.Team2), m.Venue)
}

func teamScore(t model.TeamScore) string {
	if t.Score == nil {
		return "-"
	}
	s := fmt.Sprintf("%d", *t.Score)
	if t.Wickets != nil {
		s += fmt.Sprintf("/%d", *t.Wickets)
	}
	if t.Overs != nil {
		s += fmt.Sprintf(" (%s ov)", *t.Overs)
	}
	return s
}
