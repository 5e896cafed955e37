package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "compliance-monitor/pkg/domain-errors"
)

func TestViolation_IsOverdue(t *testing.T) {
	detected := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		severity Severity
		status   ViolationStatus
		elapsed  time.Duration
		want     bool
	}{
		{"critical within SLA", SeverityCritical, StatusOpen, 23 * time.Hour, false},
		{"critical past SLA", SeverityCritical, StatusOpen, 25 * time.Hour, true},
		{"critical exactly at SLA", SeverityCritical, StatusOpen, 24 * time.Hour, false},
		{"high within SLA", SeverityHigh, StatusInvestigating, 71 * time.Hour, false},
		{"high past SLA", SeverityHigh, StatusInvestigating, 73 * time.Hour, true},
		{"medium never overdue", SeverityMedium, StatusOpen, 1000 * time.Hour, false},
		{"low never overdue", SeverityLow, StatusOpen, 1000 * time.Hour, false},
		{"resolved never overdue", SeverityCritical, StatusResolved, 1000 * time.Hour, false},
		{"closed never overdue", SeverityCritical, StatusClosed, 1000 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Violation{
				ID:         uuid.New(),
				Severity:   tt.severity,
				Status:     tt.status,
				DetectedAt: detected,
			}
			assert.Equal(t, tt.want, v.IsOverdue(detected.Add(tt.elapsed)))
		})
	}
}

func TestViolation_Resolve(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	t.Run("open violation resolves", func(t *testing.T) {
		v := &Violation{ID: uuid.New(), Status: StatusOpen}
		require.NoError(t, v.Resolve(now, "false positive", "officer.smith"))
		assert.Equal(t, StatusResolved, v.Status)
		require.NotNil(t, v.ResolvedAt)
		assert.Equal(t, now, *v.ResolvedAt)
		assert.Equal(t, "false positive", v.ResolutionNotes)
		assert.Equal(t, "officer.smith", v.AssignedTo)
	})

	t.Run("investigating violation resolves", func(t *testing.T) {
		v := &Violation{ID: uuid.New(), Status: StatusInvestigating}
		require.NoError(t, v.Resolve(now, "reviewed", "officer.smith"))
		assert.Equal(t, StatusResolved, v.Status)
	})

	t.Run("re-resolution is rejected and timestamps stay", func(t *testing.T) {
		v := &Violation{ID: uuid.New(), Status: StatusOpen}
		require.NoError(t, v.Resolve(now, "first", "officer.smith"))

		later := now.Add(2 * time.Hour)
		err := v.Resolve(later, "second", "officer.jones")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		assert.Equal(t, now, *v.ResolvedAt)
		assert.Equal(t, "first", v.ResolutionNotes)
	})

	t.Run("closed violation is rejected", func(t *testing.T) {
		v := &Violation{ID: uuid.New(), Status: StatusClosed}
		err := v.Resolve(now, "notes", "officer.smith")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestViolationData_Accessors(t *testing.T) {
	d := ViolationData{
		"amount":  9500.0,
		"count":   3,
		"flag":    true,
		"country": "IRN",
	}

	amount, ok := d.Float64("amount")
	require.True(t, ok)
	assert.Equal(t, 9500.0, amount)

	count, ok := d.Int("count")
	require.True(t, ok)
	assert.Equal(t, 3, count)

	flag, ok := d.Bool("flag")
	require.True(t, ok)
	assert.True(t, flag)

	country, ok := d.String("country")
	require.True(t, ok)
	assert.Equal(t, "IRN", country)

	_, ok = d.Float64("missing")
	assert.False(t, ok)
}
