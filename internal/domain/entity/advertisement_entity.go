package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the moderation state of an advertisement.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
)

// ParseStatus accepts any of the three lifecycle states.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusActive, StatusRejected:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// IsModerationTarget reports whether a moderator may set this status directly.
// Pending is only reachable through an author edit.
func (s Status) IsModerationTarget() bool {
	return s == StatusActive || s == StatusRejected
}

func (s Status) String() string { return string(s) }

// Advertisement is a classifieds listing. AuthorID never changes after creation.
type Advertisement struct {
	ID          int64
	Title       string
	Description string
	Price       decimal.Decimal
	Status      Status
	AuthorID    string
	Images      []Image
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image belongs to exactly one advertisement. ObjectKey addresses the blob in
// object storage; URL is what clients receive.
type Image struct {
	ID              int64
	AdvertisementID int64
	URL             string
	ObjectKey       string
	Position        int
	CreatedAt       time.Time
}

// Favorite links a user to an advertisement. The pair is unique.
type Favorite struct {
	UserID          string
	AdvertisementID int64
	CreatedAt       time.Time
}
