package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingApproved  BookingStatus = "Approved"
	BookingRejected  BookingStatus = "Rejected"
	BookingCompleted BookingStatus = "Completed"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCompleted:
		return true
	}
	return false
}

// Booking is a visit request from a seeker to a room owner. The owner id is
// denormalized from the room at creation time.
type Booking struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Room          primitive.ObjectID `json:"room" bson:"room"`
	User          primitive.ObjectID `json:"user" bson:"user"`
	Owner         primitive.ObjectID `json:"owner" bson:"owner"`
	BookingStatus BookingStatus      `json:"bookingStatus" bson:"booking_status"`
	VisitDate     time.Time          `json:"visitDate" bson:"visit_date" validate:"required"`
	Message       string             `json:"message,omitempty" bson:"message,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
}
