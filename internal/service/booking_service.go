package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartroom/internal/models"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error)
	FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) error
}

type BookingService struct {
	bookings BookingRepository
	rooms    RoomRepository
}

func NewBookingService(bookings BookingRepository, rooms RoomRepository) *BookingService {
	return &BookingService{bookings: bookings, rooms: rooms}
}

// CreateBooking records a visit request against an existing room. The room's
// owner is denormalized onto the booking so owner queries stay cheap.
func (s *BookingService) CreateBooking(ctx context.Context, roomID string, visitDate time.Time, message, seekerID string) (*models.Booking, error) {
	roomOID, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	seekerOID, err := primitive.ObjectIDFromHex(seekerID)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	if visitDate.IsZero() {
		return nil, fmt.Errorf("%w: visitDate is required", models.ErrValidation)
	}

	room, err := s.rooms.FindByID(ctx, roomOID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		Room:          room.ID,
		User:          seekerOID,
		Owner:         room.Owner,
		BookingStatus: models.BookingPending,
		VisitDate:     visitDate,
		Message:       message,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	return booking, nil
}

func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	return s.bookings.FindByUser(ctx, oid)
}

func (s *BookingService) ListForOwner(ctx context.Context, ownerID string) ([]models.Booking, error) {
	oid, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	return s.bookings.FindByOwner(ctx, oid)
}

// UpdateStatus is restricted to the booking's room owner or an admin.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, status models.BookingStatus, callerID string, callerRole models.Role) (*models.Booking, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid booking status %q", models.ErrValidation, status)
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	booking, err := s.bookings.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if booking.Owner.Hex() != callerID && callerRole != models.RoleAdmin {
		return nil, models.ErrForbidden
	}

	if err := s.bookings.UpdateStatus(ctx, oid, status); err != nil {
		return nil, err
	}

	booking.BookingStatus = status
	return booking, nil
}
