package model

import (
	"slices"
	"time"
)

// User is a registered account.
//
// Email is the primary key and never changes. Name is the login handle;
// uniqueness is enforced at registration, and storage keeps a secondary
// index on it for lookups.
type User struct {
	Email       string    `json:"email"       dynamodbav:"email"`
	Name        string    `json:"name"        dynamodbav:"name"`
	DisplayName string    `json:"displayName" dynamodbav:"displayName"`
	CreateDate  time.Time `json:"createDate"  dynamodbav:"createDate"`
	Password    string    `json:"-"           dynamodbav:"password"` // bcrypt hash
	Parties     []string  `json:"parties"     dynamodbav:"parties"`  // party IDs
}

// MemberOf reports whether the user belongs to the given party.
func (u *User) MemberOf(partyID string) bool {
	return slices.Contains(u.Parties, partyID)
}
