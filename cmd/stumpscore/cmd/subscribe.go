package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stumpscore/stumpscore/internal/apperr"
	"github.com/stumpscore/stumpscore/internal/client/api"
	"github.com/stumpscore/stumpscore/internal/client/payment"
	"github.com/stumpscore/stumpscore/internal/entitlement"
	"github.com/stumpscore/stumpscore/internal/model"
	"github.com/stumpscore/stumpscore/internal/validation"
)

func subscribeCmd(c *client) *cobra.Command {
	var plan string
	var card validation.Card

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Buy StumpScore Premium",
		Long: "Buy a monthly or annual StumpScore Premium plan.\n\n" +
			"Pass --card to pay through the card form; otherwise the provider's hosted checkout is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var checkout payment.Checkout = payment.Hosted{Gateway: c.gateway()}
			if card.Number != "" {
				checkout = payment.CardForm{Card: card, Gateway: c.gateway(), Now: c.now}
			}

			orch := payment.NewOrchestrator(c.api, c.auth)
			attempt, err := orch.Run(cmd.Context(), plan, checkout)
			if err != nil {
				if attempt != nil {
					c.printf("Payment %s\n", strings.ToLower(string(attempt.State())))
				}
				return err
			}

			res := attempt.Result()
			if res.Replayed {
				c.printf("This payment was already applied.\n")
			} else {
				c.printf("%s activated.\n", attempt.Plan.Name)
			}
			c.printf("Premium: %s\n", premiumStatus(&res.User, c.now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&plan, "plan", string(entitlement.PlanMonthly), "plan to buy: "+planList())
	cmd.Flags().StringVar(&card.Number, "card", "", "16-digit card number")
	cmd.Flags().StringVar(&card.Expiry, "expiry", "", "card expiry as MM/YY")
	cmd.Flags().StringVar(&card.CVV, "cvv", "", "card security code")
	cmd.Flags().StringVar(&card.Holder, "holder", "", "cardholder name")
	return cmd
}

// gateway charges in the sandbox when a sandbox secret is configured, and
// otherwise walks the user through the provider checkout.
func (c *client) gateway() payment.Gateway {
	if c.cfg.SandboxSecret != "" {
		return payment.SandboxGateway{KeySecret: c.cfg.SandboxSecret}
	}
	return payment.GatewayFunc(c.promptCheckout)
}

func (c *client) promptCheckout(ctx context.Context, order api.Order) (*api.Proof, error) {
	c.printf("Order %s: %s %.2f via %s\n", order.ID, order.Currency, float64(order.Amount)/100, order.Provider)
	if order.CheckoutURL != "" {
		_ = c.openBrowser(order.CheckoutURL)
	} else if order.KeyID != "" {
		c.printf("Pay with key %s, then paste the payment details below.\n", order.KeyID)
	}

	paymentID, err := c.prompt("Payment ID (empty to cancel)")
	if err != nil {
		return nil, err
	}
	if paymentID == "" {
		return nil, apperr.ErrCancelled
	}
	signature, err := c.prompt("Signature")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.ErrCancelled.WithCause(err)
	}

	return &api.Proof{OrderID: order.ID, PaymentID: paymentID, Signature: signature}, nil
}

func historyCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your premium payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []model.PaymentRecord
			err := c.auth.Authorized(cmd.Context(), func(ctx context.Context, token string) error {
				var err error
				records, err = c.api.History(ctx, token)
				return err
			})
			if err != nil {
				return err
			}

			if len(records) == 0 {
				c.printf("No payments yet\n")
				return nil
			}
			for _, r := range records {
				c.printf("%s  %-8s %8s  %s\n", r.CreatedAt.Local().Format("2006-01-02"), r.PlanType, r.FormatPrice(), r.PaymentID)
			}
			return nil
		},
	}
}

func planList() string {
	var names []string
	for _, p := range entitlement.Plans() {
		names = append(names, fmt.Sprintf("%s (%d)", p.Type, p.Price))
	}
	return strings.Join(names, ", ")
}
