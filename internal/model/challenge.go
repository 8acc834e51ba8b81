// Package model defines the records persisted by the repository layer.
//
// Every record carries both json tags (HTTP API) and dynamodbav tags
// (DynamoDB item attributes). Attribute names follow the original table
// layout so existing tables keep working.
package model

import "time"

// Challenge is one chore instance belonging to a party.
type Challenge struct {
	ID           string          `json:"id"                     dynamodbav:"id"`
	PartyID      string          `json:"partyId"                dynamodbav:"partyId"`
	Name         string          `json:"name"                   dynamodbav:"name"`
	Description  string          `json:"description"            dynamodbav:"description"`
	Points       int             `json:"points"                 dynamodbav:"points"`
	Creator      string          `json:"creator"                dynamodbav:"creator"`
	CreateDate   time.Time       `json:"createDate"             dynamodbav:"createDate"`
	DueDate      *time.Time      `json:"dueDate,omitempty"      dynamodbav:"dueDate,omitempty"`
	Recurring    Recurrence      `json:"recurring,omitempty"    dynamodbav:"recurring,omitempty"`
	Owner        string          `json:"owner,omitempty"        dynamodbav:"owner,omitempty"`
	Status       ChallengeStatus `json:"status"                 dynamodbav:"status"`
	UpdateDate   time.Time       `json:"updateDate"             dynamodbav:"updateDate"`
	CompleteDate *time.Time      `json:"completeDate,omitempty" dynamodbav:"completeDate,omitempty"`
	Accepted     bool            `json:"accepted"               dynamodbav:"accepted"`
	Credited     bool            `json:"credited"               dynamodbav:"credited"`
	Picture      []byte          `json:"picture,omitempty"      dynamodbav:"picture,omitempty"`
}
