package models

import "time"

type AdPosition string

const (
	PositionHeader  AdPosition = "header"
	PositionSidebar AdPosition = "sidebar"
	PositionInline  AdPosition = "inline"
	PositionFooter  AdPosition = "footer"
)

var AdPositions = []AdPosition{PositionHeader, PositionSidebar, PositionInline, PositionFooter}

func (p AdPosition) Valid() bool {
	for _, v := range AdPositions {
		if p == v {
			return true
		}
	}
	return false
}

type Advertisement struct {
	ID        string     `json:"id" bson:"_id" dynamodbav:"id"`
	Position  AdPosition `json:"position" bson:"position" dynamodbav:"position"`
	Title     string     `json:"title" bson:"title" dynamodbav:"title"`
	Content   string     `json:"content" bson:"content" dynamodbav:"content"`
	LinkURL   string     `json:"link_url,omitempty" bson:"link_url,omitempty" dynamodbav:"link_url,omitempty"`
	IsActive  bool       `json:"is_active" bson:"is_active" dynamodbav:"is_active"`
	CreatedBy string     `json:"created_by,omitempty" bson:"created_by,omitempty" dynamodbav:"created_by,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty" bson:"updated_by,omitempty" dynamodbav:"updated_by,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at" dynamodbav:"updated_at"`
}

// AdvertisementPatch carries a partial update; nil fields are left untouched.
type AdvertisementPatch struct {
	Position *AdPosition
	Title    *string
	Content  *string
	LinkURL  *string
	IsActive *bool
}

// Apply merges the patch into ad.
func (p AdvertisementPatch) Apply(ad *Advertisement) {
	if p.Position != nil {
		ad.Position = *p.Position
	}
	if p.Title != nil {
		ad.Title = *p.Title
	}
	if p.Content != nil {
		ad.Content = *p.Content
	}
	if p.LinkURL != nil {
		ad.LinkURL = *p.LinkURL
	}
	if p.IsActive != nil {
		ad.IsActive = *p.IsActive
	}
}

type AdvertisementFilter struct {
	Position   AdPosition
	ActiveOnly bool
	Limit      int
}
