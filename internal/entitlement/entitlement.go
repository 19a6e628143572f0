// Package entitlement decides whether a user currently has premium access and
// holds the catalogue of purchasable plans.
package entitlement

import (
	"time"

	"github.com/stumpscore/stumpscore/internal/apperr"
)

// IsPremium is the single entitlement rule. A nil premiumUntil with the flag
// set means premium without expiry. The result is never stored.
func IsPremium(isPremium bool, premiumUntil *time.Time, now time.Time) bool {
	if !isPremium {
		return false
	}
	return premiumUntil == nil || premiumUntil.After(now)
}

// Lapsed reports a user whose premium flag is still set but whose period is over.
func Lapsed(isPremium bool, premiumUntil *time.Time, now time.Time) bool {
	return isPremium && !IsPremium(isPremium, premiumUntil, now)
}

type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanAnnual  PlanType = "annual"
)

type Plan struct {
	Type PlanType
	Name string
	// Price is in the major currency unit.
	Price  int64
	months int
	years  int
}

var plans = map[PlanType]Plan{
	PlanMonthly: {Type: PlanMonthly, Name: "Monthly Premium", Price: 50, months: 1},
	PlanAnnual:  {Type: PlanAnnual, Name: "Annual Premium", Price: 200, years: 1},
}

// Plans returns the catalogue in display order.
func Plans() []Plan {
	return []Plan{plans[PlanMonthly], plans[PlanAnnual]}
}

// LookupPlan fails closed: anything outside the catalogue is ErrInvalidPlan.
func LookupPlan(name string) (Plan, error) {
	p, ok := plans[PlanType(name)]
	if !ok {
		return Plan{}, apperr.ErrInvalidPlan
	}
	return p, nil
}

// MinorAmount is the price in the smallest currency unit.
func (p Plan) MinorAmount() int64 {
	return p.Price * 100
}

// ExtendFrom returns the end of a period starting at from, using calendar
// arithmetic (Jan 31 + 1 month normalises the way time.AddDate does).
func (p Plan) ExtendFrom(from time.Time) time.Time {
	return from.AddDate(p.years, p.months, 0)
}
