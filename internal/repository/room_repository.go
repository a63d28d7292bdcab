package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"smartroom/internal/models"
)

const roomsCollection = "rooms"

type RoomRepository struct {
	db *mongo.Database
}

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	collection := r.db.Collection(roomsCollection)

	room.CreatedAt = time.Now()
	if room.AvailabilityStatus == "" {
		room.AvailabilityStatus = models.StatusAvailable
	}
	if room.Reviews == nil {
		room.Reviews = []models.Review{}
	}

	result, err := collection.InsertOne(ctx, room)
	if err != nil {
		return err
	}

	room.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// BuildSearchQuery translates the public search filters into a Mongo query.
// Unless the approval flag is explicitly overridden, only approved and
// available rooms are matched.
func BuildSearchQuery(filters models.SearchFilters) bson.M {
	query := bson.M{}

	query["availability_status"] = models.StatusAvailable

	if filters.ApprovedOverride != nil {
		query["is_approved"] = *filters.ApprovedOverride
	} else {
		query["is_approved"] = true
	}

	if filters.Keyword != "" {
		query["title"] = bson.M{"$regex": regexp.QuoteMeta(filters.Keyword), "$options": "i"}
	}

	if filters.Category != "" {
		query["category"] = filters.Category
	}

	if filters.City != "" {
		query["location.city"] = bson.M{"$regex": regexp.QuoteMeta(filters.City), "$options": "i"}
	}

	if filters.MinPrice > 0 || filters.MaxPrice > 0 {
		price := bson.M{}
		if filters.MinPrice > 0 {
			price["$gte"] = filters.MinPrice
		}
		if filters.MaxPrice > 0 {
			price["$lte"] = filters.MaxPrice
		}
		query["price"] = price
	}

	return query
}

// Search returns rooms matching the filters with the owner resolved to a
// name/avatar projection.
func (r *RoomRepository) Search(ctx context.Context, filters models.SearchFilters) ([]models.Room, error) {
	collection := r.db.Collection(roomsCollection)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: BuildSearchQuery(filters)}},
	}
	pipeline = append(pipeline, ownerLookupStages(bson.M{
		"owner_info.password": 0,
		"owner_info.email":    0,
		"owner_info.phone":    0,
	})...)

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []models.Room
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}

	if rooms == nil {
		rooms = []models.Room{}
	}

	return rooms, nil
}

// FindByID resolves the owner to a fuller projection (name, avatar, email,
// phone) for the details page.
func (r *RoomRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Room, error) {
	collection := r.db.Collection(roomsCollection)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
	}
	pipeline = append(pipeline, ownerLookupStages(bson.M{
		"owner_info.password": 0,
	})...)

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []models.Room
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, models.ErrNotFound
	}

	return &rooms[0], nil
}

// FindByOwner returns every room of an owner regardless of availability or
// approval, so owners see their own pending and booked rooms.
func (r *RoomRepository) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Room, error) {
	collection := r.db.Collection(roomsCollection)

	cursor, err := collection.Find(ctx, bson.M{"owner": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []models.Room
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}

	if rooms == nil {
		rooms = []models.Room{}
	}

	return rooms, nil
}

// Update applies a partial $set built by the service. Owner and reviews are
// never part of it.
func (r *RoomRepository) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	if len(fields) == 0 {
		return nil
	}
	collection := r.db.Collection(roomsCollection)

	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateReviews persists the reviews array and its derived fields only,
// leaving the rest of the document untouched and unvalidated.
func (r *RoomRepository) UpdateReviews(ctx context.Context, id primitive.ObjectID, reviews []models.Review, numOfReviews int, ratings float64) error {
	collection := r.db.Collection(roomsCollection)

	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"reviews":        reviews,
		"num_of_reviews": numOfReviews,
		"ratings":        ratings,
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	collection := r.db.Collection(roomsCollection)

	result, err := collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) SetApproval(ctx context.Context, id primitive.ObjectID, approved bool) error {
	return r.Update(ctx, id, bson.M{"is_approved": approved})
}

func (r *RoomRepository) CountAll(ctx context.Context) (int64, error) {
	return r.db.Collection(roomsCollection).CountDocuments(ctx, bson.M{})
}

func (r *RoomRepository) CountPending(ctx context.Context) (int64, error) {
	return r.db.Collection(roomsCollection).CountDocuments(ctx, bson.M{"is_approved": false})
}

// ownerLookupStages joins the users collection onto the room's owner id and
// strips the fields the projection must not leak.
func ownerLookupStages(project bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "owner",
			"foreignField": "_id",
			"as":           "owner_info",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$owner_info",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$project", Value: project}},
	}
}
