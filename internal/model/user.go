package model

import (
	"time"

	"github.com/stumpscore/stumpscore/internal/entitlement"
)

// GooglePasswordSentinel is stored as the password hash of accounts created
// through Google sign-in. It is not a bcrypt hash, so no password matches it.
const GooglePasswordSentinel = "GOOGLE_AUTH_USER"

type User struct {
	ID             string     `db:"id"`
	Name           string     `db:"name"`
	Email          string     `db:"email"`
	PasswordHash   string     `db:"password_hash"`
	IsPremium      bool       `db:"is_premium"`
	PremiumUntil   *time.Time `db:"premium_until"`
	GoogleID       *string    `db:"google_id"`
	ProfilePicture *string    `db:"profile_picture"`
	LastLoginAt    *time.Time `db:"last_login_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != "" && u.PasswordHash != GooglePasswordSentinel
}

func (u *User) IsPremiumAt(now time.Time) bool {
	return entitlement.IsPremium(u.IsPremium, u.PremiumUntil, now)
}

// View is the projection sent to clients. It never carries the password hash.
func (u *User) View() UserView {
	return UserView{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		IsPremium:      u.IsPremium,
		PremiumUntil:   u.PremiumUntil,
		GoogleID:       u.GoogleID,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// UserView is the public shape of a user, both on the wire and in the
// client's cached session.
type UserView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	IsPremium      bool       `json:"isPremium"`
	PremiumUntil   *time.Time `json:"premiumUntil"`
	GoogleID       *string    `json:"googleId,omitempty"`
	ProfilePicture *string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (v UserView) IsPremiumAt(now time.Time) bool {
	return entitlement.IsPremium(v.IsPremium, v.PremiumUntil, now)
}
