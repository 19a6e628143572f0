package model

import (
	"fmt"
	"time"
)

const (
	ProviderRazorpay = "razorpay"
	ProviderStripe   = "stripe"
	ProviderPolar    = "polar"
)

const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
)

// Order is a payment intent minted by a provider before the user pays.
// Amount is in minor units.
type Order struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	PlanType  string     `db:"plan_type"`
	Amount    int64      `db:"amount"`
	Currency  string     `db:"currency"`
	Provider  string     `db:"provider"`
	Status    string     `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
	PaidAt    *time.Time `db:"paid_at"`
}

func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// PaymentRecord is one verified payment. Records are append-only; Amount is in
// the major currency unit.
type PaymentRecord struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	OrderID   string    `db:"order_id" json:"orderId"`
	PaymentID string    `db:"payment_id" json:"paymentId"`
	PlanType  string    `db:"plan_type" json:"planType"`
	Amount    int64     `db:"amount" json:"amount"`
	Currency  string    `db:"currency" json:"currency"`
	Provider  string    `db:"provider" json:"provider"`
	CreatedAt time.Time `db:"created_at" json:"date"`
}

func (p *PaymentRecord) FormatPrice() string {
	symbols := map[string]string{
		"INR": "₹",
		"USD": "$",
		"EUR": "€",
	}
	symbol, ok := symbols[p.Currency]
	if !ok {
		symbol = p.Currency + " "
	}
	return fmt.Sprintf("%s%d", symbol, p.Amount)
}

// Subscription is the subscription status response. Active is evaluated at
// response time and is not persisted anywhere.
type Subscription struct {
	IsPremium      bool            `json:"isPremium"`
	PremiumUntil   *time.Time      `json:"premiumUntil"`
	Active         bool            `json:"active"`
	PaymentHistory []PaymentRecord `json:"paymentHistory"`
}
