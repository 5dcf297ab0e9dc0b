package models

import "time"

type AdminRole string

const (
	RoleAdmin      AdminRole = "admin"
	RoleSuperAdmin AdminRole = "super_admin"
)

func (r AdminRole) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type Admin struct {
	ID           string     `json:"id" bson:"id" dynamodbav:"id"`
	Email        string     `json:"email" bson:"_id" dynamodbav:"email"`
	PasswordHash string     `json:"-" bson:"password_hash" dynamodbav:"password_hash"`
	Name         string     `json:"name" bson:"name" dynamodbav:"name"`
	Role         AdminRole  `json:"role" bson:"role" dynamodbav:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" bson:"last_login_at,omitempty" dynamodbav:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
}
