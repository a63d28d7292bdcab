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

const usersCollection = "users"

type UserRepository struct {
	db *mongo.Database
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	collection := r.db.Collection(usersCollection)

	count, err := collection.CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		return err
	}
	if count > 0 {
		return models.ErrDuplicate
	}

	user.CreatedAt = time.Now()
	result, err := collection.InsertOne(ctx, user)
	if err != nil {
		return err
	}

	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	collection := r.db.Collection(usersCollection)

	var user models.User
	err := collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, r.handleDatabaseError(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	collection := r.db.Collection(usersCollection)

	var user models.User
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, r.handleDatabaseError(err)
	}
	return &user, nil
}

// UpdateFields applies a partial $set; the service decides which fields are
// mutable.
func (r *UserRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	if len(fields) == 0 {
		return nil
	}
	collection := r.db.Collection(usersCollection)

	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.UpdateFields(ctx, id, bson.M{"is_verified": true})
}

func (r *UserRepository) CountAll(ctx context.Context) (int64, error) {
	return r.db.Collection(usersCollection).CountDocuments(ctx, bson.M{})
}

func (r *UserRepository) handleDatabaseError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ErrNotFound
	}
	return err
}
