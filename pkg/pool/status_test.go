package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapDBStatus(t *testing.T) {
	tests := []struct {
		label string
		want  ContractStatus
	}{
		{DBStatusDraft, StatusInactive},
		{DBStatusUnconfirmed, StatusInactive},
		{DBStatusInactive, StatusInactive},
		{DBStatusDepositsEnabled, StatusDepositEnabled},
		{DBStatusStarted, StatusStarted},
		{DBStatusPaused, StatusStarted},
		{DBStatusEnded, StatusEnded},
		{DBStatusDeleted, StatusDeleted},
		{"", StatusInactive},
		{"something-new", StatusInactive},
	}

	for _, tt := range tests {
		t.Run("label "+tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, MapDBStatus(tt.label))
		})
	}
}

// Visibility must stay equivalent to the status inequality for every label,
// known or not.
func TestVisibleForUpcomingMatchesMapping(t *testing.T) {
	labels := []string{
		DBStatusDraft, DBStatusUnconfirmed, DBStatusInactive,
		DBStatusDepositsEnabled, DBStatusStarted, DBStatusPaused,
		DBStatusEnded, DBStatusDeleted,
		"", "unknown-label",
	}

	for _, label := range labels {
		assert.Equal(t,
			MapDBStatus(label) <= StatusDepositEnabled,
			VisibleForUpcoming(label),
			"label %q", label)
	}
}

func TestVisibleForPast(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, VisibleForPast(StatusEnded, past, now))
	assert.True(t, VisibleForPast(StatusStarted, past, now))
	assert.False(t, VisibleForPast(StatusStarted, future, now))
	assert.False(t, VisibleForPast(StatusDepositEnabled, past, now))
	assert.False(t, VisibleForPast(StatusInactive, past, now))
}

func TestContractStatusString(t *testing.T) {
	assert.Equal(t, "INACTIVE", StatusInactive.String())
	assert.Equal(t, "DEPOSIT_ENABLED", StatusDepositEnabled.String())
	assert.Equal(t, "STARTED", StatusStarted.String())
	assert.Equal(t, "ENDED", StatusEnded.String())
	assert.Equal(t, "DELETED", StatusDeleted.String())
	assert.Equal(t, "UNKNOWN", ContractStatus(42).String())
}

func TestParsePartition(t *testing.T) {
	for _, valid := range []string{"upcoming", "past", "live"} {
		p, ok := ParsePartition(valid)
		assert.True(t, ok)
		assert.Equal(t, Partition(valid), p)
	}

	_, ok := ParsePartition("future")
	assert.False(t, ok)
	_, ok = ParsePartition("")
	assert.False(t, ok)
}
