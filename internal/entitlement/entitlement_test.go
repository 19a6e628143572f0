package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stumpscore/stumpscore/internal/apperr"
)

func TestIsPremium(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Second)

	tests := []struct {
		name      string
		isPremium bool
		until     *time.Time
		want      bool
	}{
		{"flag off", false, nil, false},
		{"flag off with future date", false, &future, false},
		{"no expiry", true, nil, true},
		{"future expiry", true, &future, true},
		{"past expiry", true, &past, false},
		{"expiry equals now", true, &now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsPremium(tt.isPremium, tt.until, now))
		})
	}
}

func TestLapsed(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	require.True(t, Lapsed(true, &past, now))
	require.False(t, Lapsed(false, &past, now))
	require.False(t, Lapsed(true, nil, now))
}

func TestLookupPlan(t *testing.T) {
	p, err := LookupPlan("monthly")
	require.NoError(t, err)
	require.Equal(t, int64(50), p.Price)
	require.Equal(t, int64(5000), p.MinorAmount())

	p, err = LookupPlan("annual")
	require.NoError(t, err)
	require.Equal(t, int64(20000), p.MinorAmount())

	for _, name := range []string{"", "weekly", "MONTHLY", "lifetime"} {
		_, err := LookupPlan(name)
		require.ErrorIs(t, err, apperr.ErrInvalidPlan, name)
	}
}

func TestExtendFromUsesCalendarArithmetic(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	monthly, _ := LookupPlan("monthly")
	require.Equal(t, time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC), monthly.ExtendFrom(start))

	annual, _ := LookupPlan("annual")
	require.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), annual.ExtendFrom(start))

	leap := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), annual.ExtendFrom(leap))
}

func TestPlansOrder(t *testing.T) {
	ps := Plans()
	require.Len(t, ps, 2)
	require.Equal(t, PlanMonthly, ps[0].Type)
	require.Equal(t, PlanAnnual, ps[1].Type)
}
