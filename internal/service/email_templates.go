package service

import (
	"fmt"
	"time"
)

// Receipt is the content of a premium purchase confirmation.
type Receipt struct {
	Name         string
	PlanName     string
	Price        string
	PaymentID    string
	PremiumUntil time.Time
}

func welcomeEmailTemplate(name, liveURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Thanks for signing up. Live scores are waiting for you:
%s

Upgrade to Premium any time for match predictions and ad-free scorecards.

Best,
The %s Team`, name, liveURL, appName)

	return subject, body
}

func premiumReceiptTemplate(r Receipt, appName string) (string, string) {
	subject := fmt.Sprintf("Your %s Premium receipt", appName)
	body := fmt.Sprintf(`Hi %s,

Payment successful! Welcome to Premium.

Plan: %s
Amount: %s
Payment ID: %s
Premium until: %s

Best,
The %s Team`, r.Name, r.PlanName, r.Price, r.PaymentID, r.PremiumUntil.Format("2 Jan 2006"), appName)

	return subject, body
}
