package models

import "time"

type OTPData struct {
	Email     string    `json:"email" bson:"_id" dynamodbav:"email"`
	CodeHash  string    `json:"-" bson:"code_hash" dynamodbav:"code_hash"`
	Attempts  int       `json:"attempts" bson:"attempts" dynamodbav:"attempts"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at" dynamodbav:"expires_at"`
}

// Expired reports whether the code is no longer usable at now. A code is
// dead from the instant of ExpiresAt onwards.
func (o *OTPData) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
