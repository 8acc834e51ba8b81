package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecurrence(t *testing.T) {
	tests := []struct {
		in      string
		want    Recurrence
		wantErr bool
	}{
		{"", RecurrenceNone, false},
		{"none", RecurrenceNone, false},
		{"daily", RecurrenceDaily, false},
		{"weekly", RecurrenceWeekly, false},
		{"monthly", RecurrenceMonthly, false},
		{"yearly", RecurrenceYearly, false},
		{"hourly", RecurrenceNone, true},
		{"Daily", RecurrenceNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRecurrence(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, ChallengeOpen.Valid())
	assert.True(t, ChallengeCompleted.Valid())
	assert.False(t, ChallengeStatus("done").Valid())

	assert.True(t, RewardUnclaimed.Valid())
	assert.False(t, RewardStatus("").Valid())

	assert.True(t, PartyArchived.Valid())
	assert.False(t, PartyStatus("deleted").Valid())
}

func TestUserMemberOf(t *testing.T) {
	u := &User{Email: "bob@example.com", Parties: []string{"p1", "p2"}}

	assert.True(t, u.MemberOf("p2"))
	assert.False(t, u.MemberOf("p3"))
	assert.False(t, (&User{}).MemberOf("p1"))
}

func TestRecurrenceNext(t *testing.T) {
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		r    Recurrence
		want time.Time
		ok   bool
	}{
		{RecurrenceNone, time.Time{}, false},
		{RecurrenceDaily, time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC), true},
		{RecurrenceWeekly, time.Date(2024, 1, 22, 9, 0, 0, 0, time.UTC), true},
		{RecurrenceMonthly, time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC), true},
		{RecurrenceYearly, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		got, ok := tt.r.Next(base)
		assert.Equal(t, tt.ok, ok, "recurrence %q", tt.r)
		assert.True(t, tt.want.Equal(got), "recurrence %q: got %v", tt.r, got)
	}
}
