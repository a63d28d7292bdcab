package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"smartroom/internal/models"
)

const bookingsCollection = "bookings"

type BookingRepository struct {
	db *mongo.Database
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	collection := r.db.Collection(bookingsCollection)

	booking.CreatedAt = time.Now()
	if booking.BookingStatus == "" {
		booking.BookingStatus = models.BookingPending
	}

	result, err := collection.InsertOne(ctx, booking)
	if err != nil {
		return err
	}

	booking.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	collection := r.db.Collection(bookingsCollection)

	var booking models.Booking
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	return r.findAll(ctx, bson.M{"user": userID})
}

func (r *BookingRepository) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Booking, error) {
	return r.findAll(ctx, bson.M{"owner": ownerID})
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) error {
	collection := r.db.Collection(bookingsCollection)

	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"booking_status": status,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *BookingRepository) CountAll(ctx context.Context) (int64, error) {
	return r.db.Collection(bookingsCollection).CountDocuments(ctx, bson.M{})
}

func (r *BookingRepository) findAll(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	collection := r.db.Collection(bookingsCollection)

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}

	if bookings == nil {
		bookings = []models.Booking{}
	}

	return bookings, nil
}
