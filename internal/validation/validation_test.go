package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("secret123"))
	require.NoError(t, ValidatePassword("123456"))
	require.Error(t, ValidatePassword(""))
	require.Error(t, ValidatePassword("12345"))
	require.Error(t, ValidatePassword(strings.Repeat("a", 73)))
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, ValidateEmail("a@x.com"))
	require.Error(t, ValidateEmail(""))
	require.Error(t, ValidateEmail("not-an-email"))
	require.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@x.com"))
}

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("Virat"))
	require.Error(t, ValidateName("   "))
	require.Error(t, ValidateName(strings.Repeat("n", 101)))
}

func TestValidateCard(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	valid := Card{Number: "4111 1111 1111 1111", Expiry: "12/27", CVV: "123", Holder: "Test User"}

	require.NoError(t, ValidateCard(valid, now))

	sameMonth := valid
	sameMonth.Expiry = "06/25"
	require.NoError(t, ValidateCard(sameMonth, now))

	tests := []struct {
		name  string
		edit  func(c *Card)
		field string
		msg   string
	}{
		{"short number", func(c *Card) { c.Number = "4111" }, "cardNumber", "16-digit"},
		{"letters in number", func(c *Card) { c.Number = "4111-1111-1111-111a" }, "cardNumber", "16-digit"},
		{"bad expiry format", func(c *Card) { c.Expiry = "1227" }, "expiryDate", "MM/YY"},
		{"bad month", func(c *Card) { c.Expiry = "13/27" }, "expiryDate", "MM/YY"},
		{"expired last year", func(c *Card) { c.Expiry = "12/24" }, "expiryDate", "expired"},
		{"expired last month", func(c *Card) { c.Expiry = "05/25" }, "expiryDate", "expired"},
		{"short cvv", func(c *Card) { c.CVV = "12" }, "cvv", "CVV"},
		{"long cvv", func(c *Card) { c.CVV = "12345" }, "cvv", "CVV"},
		{"short holder", func(c *Card) { c.Holder = " ab " }, "cardholderName", "cardholder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.edit(&c)

			err := ValidateCard(c, now)
			var errs CardErrors
			require.True(t, errors.As(err, &errs))
			require.Len(t, errs, 1)
			require.Contains(t, errs[tt.field], tt.msg)
		})
	}
}
