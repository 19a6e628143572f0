package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Card holds the fields of the legacy card form.
type Card struct {
	Number string
	Expiry string // MM/YY
	CVV    string
	Holder string
}

// CardErrors maps a form field to its message.
type CardErrors map[string]string

func (e CardErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return strings.Join(msgs, "; ")
}

// ValidateCard checks card details against now. It returns nil or CardErrors.
func ValidateCard(c Card, now time.Time) error {
	errs := CardErrors{}

	number := strings.ReplaceAll(c.Number, " ", "")
	if len(number) != 16 || !allDigits(number) {
		errs["cardNumber"] = "Please enter a valid 16-digit card number"
	}

	if msg := validateExpiry(c.Expiry, now); msg != "" {
		errs["expiryDate"] = msg
	}

	if len(c.CVV) < 3 || len(c.CVV) > 4 || !allDigits(c.CVV) {
		errs["cvv"] = "Please enter a valid CVV"
	}

	if len(strings.TrimSpace(c.Holder)) < 3 {
		errs["cardholderName"] = "Please enter the cardholder name"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateExpiry(expiry string, now time.Time) string {
	invalid := "Please enter a valid expiry date (MM/YY)"

	parts := strings.Split(expiry, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return invalid
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return invalid
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return invalid
	}

	currentYear := now.Year() % 100
	currentMonth := int(now.Month())
	if year < currentYear || (year == currentYear && month < currentMonth) {
		return "Card has expired"
	}
	return ""
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
