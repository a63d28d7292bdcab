package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartroom/internal/models"
)

type fakeBookingRepo struct {
	bookings map[primitive.ObjectID]*models.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[primitive.ObjectID]*models.Booking)}
}

func (f *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	booking.ID = primitive.NewObjectID()
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeBookingRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	booking, ok := f.bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *booking
	return &cp, nil
}

func (f *fakeBookingRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.User == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.Owner == ownerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) error {
	booking, ok := f.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	booking.BookingStatus = status
	return nil
}

func TestCreateBooking_DenormalizesOwner(t *testing.T) {
	rooms := newFakeRoomRepo()
	bookings := newFakeBookingRepo()
	svc := NewBookingService(bookings, rooms)

	room := newTestRoom(primitive.NewObjectID())
	rooms.add(room)
	seeker := primitive.NewObjectID()

	visit := time.Now().Add(48 * time.Hour)
	booking, err := svc.CreateBooking(context.Background(), room.ID.Hex(), visit, "afternoon works best", seeker.Hex())
	require.NoError(t, err)

	assert.Equal(t, room.Owner, booking.Owner)
	assert.Equal(t, seeker, booking.User)
	assert.Equal(t, models.BookingPending, booking.BookingStatus)
	assert.Equal(t, visit, booking.VisitDate)
}

func TestCreateBooking_RoomNotFound(t *testing.T) {
	svc := NewBookingService(newFakeBookingRepo(), newFakeRoomRepo())

	_, err := svc.CreateBooking(context.Background(), primitive.NewObjectID().Hex(), time.Now(), "", primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateBooking_MissingVisitDate(t *testing.T) {
	rooms := newFakeRoomRepo()
	room := newTestRoom(primitive.NewObjectID())
	rooms.add(room)
	svc := NewBookingService(newFakeBookingRepo(), rooms)

	_, err := svc.CreateBooking(context.Background(), room.ID.Hex(), time.Time{}, "", primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestBookingUpdateStatus_OwnerAndAdminOnly(t *testing.T) {
	rooms := newFakeRoomRepo()
	bookings := newFakeBookingRepo()
	svc := NewBookingService(bookings, rooms)

	room := newTestRoom(primitive.NewObjectID())
	rooms.add(room)
	seeker := primitive.NewObjectID()

	booking, err := svc.CreateBooking(context.Background(), room.ID.Hex(), time.Now().Add(time.Hour), "", seeker.Hex())
	require.NoError(t, err)

	// the seeker who made the booking may not approve it
	_, err = svc.UpdateStatus(context.Background(), booking.ID.Hex(), models.BookingApproved, seeker.Hex(), models.RoleSeeker)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := svc.UpdateStatus(context.Background(), booking.ID.Hex(), models.BookingApproved, room.Owner.Hex(), models.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, got.BookingStatus)

	got, err = svc.UpdateStatus(context.Background(), booking.ID.Hex(), models.BookingCompleted, primitive.NewObjectID().Hex(), models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, got.BookingStatus)
}

func TestBookingUpdateStatus_InvalidStatus(t *testing.T) {
	svc := NewBookingService(newFakeBookingRepo(), newFakeRoomRepo())

	_, err := svc.UpdateStatus(context.Background(), primitive.NewObjectID().Hex(), "Cancelled", primitive.NewObjectID().Hex(), models.RoleAdmin)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListBookings_SplitByRole(t *testing.T) {
	rooms := newFakeRoomRepo()
	bookings := newFakeBookingRepo()
	svc := NewBookingService(bookings, rooms)

	room := newTestRoom(primitive.NewObjectID())
	rooms.add(room)
	seeker := primitive.NewObjectID()

	_, err := svc.CreateBooking(context.Background(), room.ID.Hex(), time.Now().Add(time.Hour), "", seeker.Hex())
	require.NoError(t, err)

	mine, err := svc.ListForUser(context.Background(), seeker.Hex())
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	incoming, err := svc.ListForOwner(context.Background(), room.Owner.Hex())
	require.NoError(t, err)
	assert.Len(t, incoming, 1)

	none, err := svc.ListForOwner(context.Background(), primitive.NewObjectID().Hex())
	require.NoError(t, err)
	assert.Empty(t, none)
}
