package model

import "time"

// Party is a group of users sharing challenges and rewards.
// Name is the primary key; ID is what challenges, rewards and
// User.Parties refer to.
type Party struct {
	Name        string      `json:"name"        dynamodbav:"name"`
	ID          string      `json:"id"          dynamodbav:"id"`
	Description string      `json:"description" dynamodbav:"description"`
	CreateDate  time.Time   `json:"createDate"  dynamodbav:"createDate"`
	Owner       string      `json:"owner"       dynamodbav:"owner"`
	Status      PartyStatus `json:"status"      dynamodbav:"status"`
	UpdateDate  time.Time   `json:"updateDate"  dynamodbav:"updatedate"`
	InviteKey   string      `json:"-"           dynamodbav:"inviteKey"`
}
