package models

import (
	"strings"
	"time"
)

type User struct {
	Email      string     `json:"email" bson:"_id" dynamodbav:"email"`
	Name       string     `json:"name,omitempty" bson:"name,omitempty" dynamodbav:"name,omitempty"`
	Company    string     `json:"company,omitempty" bson:"company,omitempty" dynamodbav:"company,omitempty"`
	Phone      string     `json:"phone,omitempty" bson:"phone,omitempty" dynamodbav:"phone,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" bson:"verified_at,omitempty" dynamodbav:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" bson:"updated_at" dynamodbav:"updated_at"`
}

func (u *User) GetPK() string {
	return "USER#" + u.Email
}

func (u *User) GetSK() string {
	return "METADATA"
}

func (u *User) Verified() bool {
	return u.VerifiedAt != nil
}

// NormalizeEmail is applied to every email before it is used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
