package models

import (
	"math"
	"time"
)

type SubmissionStatus string

const (
	StatusReceived   SubmissionStatus = "received"
	StatusInProgress SubmissionStatus = "in_progress"
	StatusCompleted  SubmissionStatus = "completed"
	StatusCancelled  SubmissionStatus = "cancelled"
)

// SubmissionStatuses lists every status an admin may set. Any status can be
// set from any other.
var SubmissionStatuses = []SubmissionStatus{StatusReceived, StatusInProgress, StatusCompleted, StatusCancelled}

func (s SubmissionStatus) Valid() bool {
	for _, v := range SubmissionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Offered service categories.
var Services = []string{
	"web-development",
	"mobile-app",
	"ui-ux-design",
	"ecommerce",
	"digital-marketing",
	"seo",
	"branding",
	"consulting",
	"other",
}

var Budgets = []string{"under-5k", "5k-15k", "15k-50k", "50k-100k", "over-100k"}

var Timelines = []string{"asap", "1-month", "1-3-months", "3-6-months", "flexible"}

type Attachment struct {
	Name        string `json:"name" bson:"name" dynamodbav:"name"`
	URL         string `json:"url" bson:"url" dynamodbav:"url"`
	Size        int64  `json:"size,omitempty" bson:"size,omitempty" dynamodbav:"size,omitempty"`
	ContentType string `json:"content_type,omitempty" bson:"content_type,omitempty" dynamodbav:"content_type,omitempty"`
}

// Booking is an optional call slot picked on the form's calendar.
type Booking struct {
	Date     string `json:"date" bson:"date" dynamodbav:"date"`
	Time     string `json:"time" bson:"time" dynamodbav:"time"`
	Timezone string `json:"timezone,omitempty" bson:"timezone,omitempty" dynamodbav:"timezone,omitempty"`
}

type Submission struct {
	ID          string           `json:"id" bson:"_id" dynamodbav:"id"`
	UserEmail   string           `json:"user_email" bson:"user_email" dynamodbav:"user_email"`
	Name        string           `json:"name" bson:"name" dynamodbav:"name"`
	Email       string           `json:"email" bson:"email" dynamodbav:"email"`
	Company     string           `json:"company,omitempty" bson:"company,omitempty" dynamodbav:"company,omitempty"`
	Phone       string           `json:"phone,omitempty" bson:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Service     string           `json:"service" bson:"service" dynamodbav:"service"`
	Budget      string           `json:"budget,omitempty" bson:"budget,omitempty" dynamodbav:"budget,omitempty"`
	Timeline    string           `json:"timeline,omitempty" bson:"timeline,omitempty" dynamodbav:"timeline,omitempty"`
	Description string           `json:"description" bson:"description" dynamodbav:"description"`
	Attachments []Attachment     `json:"attachments,omitempty" bson:"attachments,omitempty" dynamodbav:"attachments,omitempty"`
	Booking     *Booking         `json:"booking,omitempty" bson:"booking,omitempty" dynamodbav:"booking,omitempty"`
	Status      SubmissionStatus `json:"status" bson:"status" dynamodbav:"status"`
	SubmittedAt time.Time        `json:"submitted_at" bson:"submitted_at" dynamodbav:"submitted_at"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" bson:"updated_at" dynamodbav:"updated_at"`
}

type SubmissionFilter struct {
	Status  SubmissionStatus
	Service string
	Page    int
	Limit   int
}

// Offset returns the number of records skipped for the filter's page,
// saturating at math.MaxInt instead of overflowing.
func (f SubmissionFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

type SubmissionStats struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
	ByService map[string]int64 `json:"by_service"`
}
