package model

import (
	"fmt"
	"time"
)

// Recurrence is how often a challenge or reward repeats.
// The zero value means it does not repeat.
type Recurrence string

const (
	RecurrenceNone    Recurrence = ""
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// ParseRecurrence converts user input into a Recurrence.
// "none" and "" both mean no recurrence.
func ParseRecurrence(s string) (Recurrence, error) {
	switch Recurrence(s) {
	case RecurrenceNone, "none":
		return RecurrenceNone, nil
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return Recurrence(s), nil
	default:
		return RecurrenceNone, fmt.Errorf("model: unknown recurrence %q", s)
	}
}

// Next returns the occurrence after t, or false when r does not repeat.
// Monthly and yearly steps follow time.AddDate normalisation, so Jan 31
// plus one month is Mar 2 or 3.
func (r Recurrence) Next(t time.Time) (time.Time, bool) {
	switch r {
	case RecurrenceDaily:
		return t.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return t.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return t.AddDate(0, 1, 0), true
	case RecurrenceYearly:
		return t.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

type ChallengeStatus string

const (
	ChallengeOpen      ChallengeStatus = "open"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeCompleted ChallengeStatus = "completed"
)

func (s ChallengeStatus) Valid() bool {
	switch s {
	case ChallengeOpen, ChallengeAccepted, ChallengeCompleted:
		return true
	}
	return false
}

type RewardStatus string

const (
	RewardUnclaimed RewardStatus = "unclaimed"
	RewardClaimed   RewardStatus = "claimed"
	RewardRedeemed  RewardStatus = "redeemed"
)

func (s RewardStatus) Valid() bool {
	switch s {
	case RewardUnclaimed, RewardClaimed, RewardRedeemed:
		return true
	}
	return false
}

type PartyStatus string

const (
	PartyActive   PartyStatus = "active"
	PartyArchived PartyStatus = "archived"
)

func (s PartyStatus) Valid() bool {
	switch s {
	case PartyActive, PartyArchived:
		return true
	}
	return false
}
