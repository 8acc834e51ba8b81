package model

import "time"

// Reward is a redeemable perk with a point cost.
type Reward struct {
	ID          string       `json:"id"                  dynamodbav:"id"`
	PartyID     string       `json:"partyId"             dynamodbav:"partyId"`
	Name        string       `json:"name"                dynamodbav:"name"`
	Description string       `json:"description"         dynamodbav:"description"`
	Cost        int          `json:"cost"                dynamodbav:"cost"`
	Creator     string       `json:"creator"             dynamodbav:"creator"`
	CreateDate  time.Time    `json:"createDate"          dynamodbav:"createDate"`
	Recurring   Recurrence   `json:"recurring,omitempty" dynamodbav:"recurring,omitempty"`
	Recipient   string       `json:"recipient,omitempty" dynamodbav:"recipient,omitempty"`
	Status      RewardStatus `json:"status"              dynamodbav:"status"`
	UpdateDate  time.Time    `json:"updateDate"          dynamodbav:"updateDate"`
	Accepted    bool         `json:"accepted"            dynamodbav:"accepted"`
}
