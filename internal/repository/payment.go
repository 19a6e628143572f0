package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stumpscore/stumpscore/internal/model"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrPaymentClaimed means the payment id is already recorded for another user.
	ErrPaymentClaimed = errors.New("payment already recorded for another account")
	// ErrOrderPaid means the order was already settled by a different payment.
	ErrOrderPaid = errors.New("order already paid")
)

// Grant is one verified payment to be turned into premium time. PremiumUntil
// is the end of the purchased period; an entitlement that already runs later
// is kept.
type Grant struct {
	Record       model.PaymentRecord
	PremiumUntil time.Time
	At           time.Time
}

type PaymentRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	OrderByID(ctx context.Context, id string) (*model.Order, error)
	History(ctx context.Context, userID string) ([]model.PaymentRecord, error)
	// GrantPremium records the payment and extends the user's entitlement in
	// one transaction. A payment id that is already recorded for the same user
	// is a replay: nothing is written and replayed is true. A second payment
	// for an order that is already paid fails with ErrOrderPaid.
	GrantPremium(ctx context.Context, grant Grant) (user *model.User, replayed bool, err error)
}

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (id, user_id, plan_type, amount, currency, provider, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.PlanType,
		order.Amount,
		order.Currency,
		order.Provider,
		order.Status,
		order.CreatedAt,
	)
	return err
}

func (r *paymentRepository) OrderByID(ctx context.Context, id string) (*model.Order, error) {
	order := &model.Order{}

	err := r.db.GetContext(ctx, order, `SELECT * FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *paymentRepository) History(ctx context.Context, userID string) ([]model.PaymentRecord, error) {
	records := []model.PaymentRecord{}
	query := `SELECT * FROM payments WHERE user_id = $1 ORDER BY created_at ASC, id ASC`

	err := r.db.SelectContext(ctx, &records, query, userID)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *paymentRepository) GrantPremium(ctx context.Context, grant Grant) (*model.User, bool, error) {
	var (
		user     *model.User
		replayed bool
	)

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		rec := grant.Record

		// Insert-if-absent keyed by the provider payment id
		result, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, user_id, order_id, payment_id, plan_type, amount, currency, provider, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (payment_id) DO NOTHING
		`,
			rec.ID,
			rec.UserID,
			rec.OrderID,
			rec.PaymentID,
			rec.PlanType,
			rec.Amount,
			rec.Currency,
			rec.Provider,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			return err
		}

		if inserted == 0 {
			var owner string
			err = tx.GetContext(ctx, &owner, `SELECT user_id FROM payments WHERE payment_id = $1`, rec.PaymentID)
			if err != nil {
				return fmt.Errorf("lookup recorded payment: %w", err)
			}
			if owner != rec.UserID {
				return ErrPaymentClaimed
			}
			replayed = true
		} else {
			err = markOrderPaid(ctx, tx, rec.OrderID, rec.UserID, grant.At)
			if err != nil {
				return err
			}

			current := &model.User{}
			err = tx.GetContext(ctx, current, `SELECT * FROM users WHERE id = $1`, rec.UserID)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			if err != nil {
				return fmt.Errorf("load user: %w", err)
			}

			until := grant.PremiumUntil
			if current.IsPremium && current.PremiumUntil != nil && current.PremiumUntil.After(until) {
				until = *current.PremiumUntil
			}

			_, err = tx.ExecContext(ctx, `
				UPDATE users
				SET is_premium = $1, premium_until = $2, updated_at = $3
				WHERE id = $4
			`, true, until, grant.At, rec.UserID)
			if err != nil {
				return fmt.Errorf("update entitlement: %w", err)
			}
		}

		user = &model.User{}
		return tx.GetContext(ctx, user, `SELECT * FROM users WHERE id = $1`, rec.UserID)
	})
	if err != nil {
		return nil, false, err
	}

	return user, replayed, nil
}

func markOrderPaid(ctx context.Context, tx *sqlx.Tx, orderID, userID string, at time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, paid_at = $2
		WHERE id = $3 AND user_id = $4 AND status <> $1
	`, model.OrderStatusPaid, at, orderID, userID)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var status string
	err = tx.GetContext(ctx, &status, `SELECT status FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup order: %w", err)
	}
	return ErrOrderPaid
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}
