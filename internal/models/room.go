package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartroom/utils"
)

type RoomCategory string

const (
	CategoryBachelorRoom RoomCategory = "BachelorRoom"
	CategoryFamilyHouse  RoomCategory = "FamilyHouse"
)

func (c RoomCategory) IsValid() bool {
	switch c {
	case CategoryBachelorRoom, CategoryFamilyHouse:
		return true
	}
	return false
}

type AvailabilityStatus string

const (
	StatusAvailable        AvailabilityStatus = "Available"
	StatusBooked           AvailabilityStatus = "Booked"
	StatusUnderMaintenance AvailabilityStatus = "UnderMaintenance"
)

func (s AvailabilityStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusUnderMaintenance:
		return true
	}
	return false
}

// MediaRef points at an object held by the blob store.
type MediaRef struct {
	ID  string `json:"id" bson:"id" validate:"required"`
	URL string `json:"url" bson:"url" validate:"required"`
}

type Location struct {
	Address   string `json:"address" bson:"address" validate:"required"`
	City      string `json:"city" bson:"city" validate:"required"`
	Latitude  string `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty" bson:"longitude,omitempty"`
}

type ContactInfo struct {
	Phone    string `json:"phone" bson:"phone" validate:"required"`
	Whatsapp string `json:"whatsapp,omitempty" bson:"whatsapp,omitempty"`
	Facebook string `json:"facebook,omitempty" bson:"facebook,omitempty"`
}

// Review is embedded in the room document. Ratings and NumOfReviews on the
// room are derived from this array and recomputed on every review write.
type Review struct {
	AccountID primitive.ObjectID `json:"accountId" bson:"account_id"`
	Name      string             `json:"name" bson:"name"`
	Rating    int                `json:"rating" bson:"rating"`
	Comment   string             `json:"comment" bson:"comment"`
}

type Room struct {
	ID                 primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title              string             `json:"title" bson:"title" validate:"required"`
	Description        string             `json:"description" bson:"description" validate:"required"`
	Price              int64              `json:"price" bson:"price" validate:"required,gt=0,max=99999999"`
	Category           RoomCategory       `json:"category" bson:"category" validate:"required,oneof=BachelorRoom FamilyHouse"`
	Location           Location           `json:"location" bson:"location"`
	Images             []MediaRef         `json:"images" bson:"images"`
	Videos             []MediaRef         `json:"videos" bson:"videos"`
	Facilities         []string           `json:"facilities" bson:"facilities"`
	Rules              []string           `json:"rules" bson:"rules"`
	ContactInfo        ContactInfo        `json:"contactInfo" bson:"contact_info"`
	AvailabilityStatus AvailabilityStatus `json:"availabilityStatus" bson:"availability_status"`
	IsApproved         bool               `json:"isApproved" bson:"is_approved"`
	Owner              primitive.ObjectID `json:"owner" bson:"owner"`
	OwnerInfo          *OwnerInfo         `json:"ownerInfo,omitempty" bson:"owner_info,omitempty"`
	Reviews            []Review           `json:"reviews" bson:"reviews"`
	NumOfReviews       int                `json:"numOfReviews" bson:"num_of_reviews"`
	Ratings            float64            `json:"ratings" bson:"ratings"`
	CreatedAt          time.Time          `json:"createdAt" bson:"created_at"`
}

// OwnerInfo is the owner projection attached by repository reads. Email and
// Phone are only filled on single-room lookups.
type OwnerInfo struct {
	ID     primitive.ObjectID `json:"id" bson:"_id"`
	Name   string             `json:"name" bson:"name"`
	Avatar MediaRef           `json:"avatar" bson:"avatar"`
	Email  string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone  string             `json:"phone,omitempty" bson:"phone,omitempty"`
}

// Validate normalizes the title and checks the struct tags. The trim is
// persisted, not just applied for the check.
func (r *Room) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	validate := utils.GetValidator()
	if err := validate.Struct(r); err != nil {
		errs := utils.ParseErrors(err)
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, " // "))
	}
	return nil
}

// RoomUpdate carries a partial update: nil fields are left untouched.
type RoomUpdate struct {
	Title              *string             `json:"title"`
	Description        *string             `json:"description"`
	Price              *int64              `json:"price"`
	Category           *RoomCategory       `json:"category"`
	Location           *Location           `json:"location"`
	Images             []MediaRef          `json:"images"`
	Videos             []MediaRef          `json:"videos"`
	Facilities         []string            `json:"facilities"`
	Rules              []string            `json:"rules"`
	ContactInfo        *ContactInfo        `json:"contactInfo"`
	AvailabilityStatus *AvailabilityStatus `json:"availabilityStatus"`
}

// SearchFilters for the public room search. ApprovedOverride keeps the
// three-state semantics of the approval flag: unset means "approved only".
type SearchFilters struct {
	Keyword          string
	Category         string
	City             string
	MinPrice         int64
	MaxPrice         int64
	ApprovedOverride *bool
}
