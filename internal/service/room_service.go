package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartroom/internal/models"
)

var roomCacheDuration = 5 * time.Minute

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	Search(ctx context.Context, filters models.SearchFilters) ([]models.Room, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Room, error)
	FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Room, error)
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	UpdateReviews(ctx context.Context, id primitive.ObjectID, reviews []models.Review, numOfReviews int, ratings float64) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// BlobStore hosts media files. Upload returns a stable identifier plus a
// retrievable URL; Release deletes by identifier.
type BlobStore interface {
	Upload(ctx context.Context, reader io.Reader, size int64, contentType, filename, folder string) (models.MediaRef, error)
	Release(ctx context.Context, id, kind string) error
}

// Cache is the read-side cache for room details. A nil Cache disables
// caching.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

func roomCacheKey(id string) string {
	return "room_details:" + id
}

type RoomService struct {
	repo  RoomRepository
	blobs BlobStore
	cache Cache
}

func NewRoomService(repo RoomRepository, blobs BlobStore, cache Cache) *RoomService {
	return &RoomService{repo: repo, blobs: blobs, cache: cache}
}

// CreateRoom persists a new room owned by the caller. Media refs are already
// uploaded by the handler. Role membership (owner/admin) is gated upstream.
func (s *RoomService) CreateRoom(ctx context.Context, room *models.Room, ownerID string) error {
	oid, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return models.ErrInvalidID
	}

	room.Owner = oid
	room.AvailabilityStatus = models.StatusAvailable
	room.IsApproved = true
	room.Reviews = []models.Review{}
	room.NumOfReviews = 0
	room.Ratings = 0

	if err := room.Validate(); err != nil {
		return err
	}

	return s.repo.Create(ctx, room)
}

func (s *RoomService) SearchRooms(ctx context.Context, filters models.SearchFilters) ([]models.Room, error) {
	return s.repo.Search(ctx, filters)
}

func (s *RoomService) GetRoomDetails(ctx context.Context, id string) (*models.Room, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	cacheKey := roomCacheKey(id)
	if s.cache != nil {
		var cached models.Room
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	room, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, room, roomCacheDuration); err != nil {
			log.Printf("failed to cache room %s: %v", id, err)
		}
	}

	return room, nil
}

func (s *RoomService) GetOwnerRooms(ctx context.Context, ownerID string) ([]models.Room, error) {
	oid, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	return s.repo.FindByOwner(ctx, oid)
}

// UpdateRoom overwrites the fields present in upd and leaves the rest alone.
// A non-empty replacement media array releases every blob currently on the
// room for that kind before the update is persisted.
func (s *RoomService) UpdateRoom(ctx context.Context, id string, upd models.RoomUpdate, callerID string, callerRole models.Role) (*models.Room, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	if upd.Title != nil {
		trimmed := strings.TrimSpace(*upd.Title)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", models.ErrValidation)
		}
		upd.Title = &trimmed
	}
	if upd.Category != nil && !upd.Category.IsValid() {
		return nil, fmt.Errorf("%w: invalid category %q", models.ErrValidation, *upd.Category)
	}
	if upd.AvailabilityStatus != nil && !upd.AvailabilityStatus.IsValid() {
		return nil, fmt.Errorf("%w: invalid availability status %q", models.ErrValidation, *upd.AvailabilityStatus)
	}
	if upd.Price != nil && (*upd.Price <= 0 || *upd.Price > 99999999) {
		return nil, fmt.Errorf("%w: price must be a positive number of at most 8 digits", models.ErrValidation)
	}

	room, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if !callerMayMutate(room, callerID, callerRole) {
		return nil, models.ErrForbidden
	}

	if len(upd.Images) > 0 {
		for _, image := range room.Images {
			if err := s.blobs.Release(ctx, image.ID, "image"); err != nil {
				return nil, err
			}
		}
	}

	if len(upd.Videos) > 0 {
		for _, video := range room.Videos {
			if err := s.blobs.Release(ctx, video.ID, "video"); err != nil {
				return nil, err
			}
		}
	}

	fields := buildRoomUpdate(upd)
	if err := s.repo.Update(ctx, oid, fields); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, id)
	return s.repo.FindByID(ctx, oid)
}

// DeleteRoom releases every media blob held by the room and removes the
// record. Releases are attempted independently; failures are collected and
// reported without deleting the record, so a retry can finish the job.
func (s *RoomService) DeleteRoom(ctx context.Context, id string, callerID string, callerRole models.Role) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidID
	}

	room, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}

	if !callerMayMutate(room, callerID, callerRole) {
		return models.ErrForbidden
	}

	var releaseErrs []error
	for _, image := range room.Images {
		if err := s.blobs.Release(ctx, image.ID, "image"); err != nil {
			releaseErrs = append(releaseErrs, err)
		}
	}
	for _, video := range room.Videos {
		if err := s.blobs.Release(ctx, video.ID, "video"); err != nil {
			releaseErrs = append(releaseErrs, err)
		}
	}
	if len(releaseErrs) > 0 {
		return errors.Join(releaseErrs...)
	}

	if err := s.repo.Delete(ctx, oid); err != nil {
		return err
	}

	s.invalidateCache(ctx, id)
	return nil
}

// UpdateAvailability sets the availability status under the same ownership
// rule as UpdateRoom. Setting the current status again is a legal no-op.
func (s *RoomService) UpdateAvailability(ctx context.Context, id string, status models.AvailabilityStatus, callerID string, callerRole models.Role) (*models.Room, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid availability status %q", models.ErrValidation, status)
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	room, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	if !callerMayMutate(room, callerID, callerRole) {
		return nil, models.ErrForbidden
	}

	if err := s.repo.Update(ctx, oid, bson.M{"availability_status": status}); err != nil {
		return nil, err
	}

	room.AvailabilityStatus = status
	s.invalidateCache(ctx, id)
	return room, nil
}

// SubmitReview appends the caller's review or overwrites their previous one
// in place, then recomputes the rating mean. At most one review per account
// per room.
func (s *RoomService) SubmitReview(ctx context.Context, roomID string, rating int, comment string, reviewer *models.User) (*models.Room, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", models.ErrValidation)
	}

	oid, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	room, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	reviewed := false
	for i := range room.Reviews {
		if room.Reviews[i].AccountID == reviewer.ID {
			room.Reviews[i].Rating = rating
			room.Reviews[i].Comment = comment
			reviewed = true
			break
		}
	}

	if !reviewed {
		room.Reviews = append(room.Reviews, models.Review{
			AccountID: reviewer.ID,
			Name:      reviewer.Name,
			Rating:    rating,
			Comment:   comment,
		})
	}
	room.NumOfReviews = len(room.Reviews)

	sum := 0
	for _, rev := range room.Reviews {
		sum += rev.Rating
	}
	room.Ratings = float64(sum) / float64(len(room.Reviews))

	if err := s.repo.UpdateReviews(ctx, oid, room.Reviews, room.NumOfReviews, room.Ratings); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, roomID)
	return room, nil
}

// callerMayMutate is the single ownership predicate shared by update, delete
// and status changes: the room's owner or any admin.
func callerMayMutate(room *models.Room, callerID string, callerRole models.Role) bool {
	return room.Owner.Hex() == callerID || callerRole == models.RoleAdmin
}

func buildRoomUpdate(upd models.RoomUpdate) bson.M {
	fields := bson.M{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.Price != nil {
		fields["price"] = *upd.Price
	}
	if upd.Category != nil {
		fields["category"] = *upd.Category
	}
	if upd.Location != nil {
		fields["location"] = *upd.Location
	}
	if len(upd.Images) > 0 {
		fields["images"] = upd.Images
	}
	if len(upd.Videos) > 0 {
		fields["videos"] = upd.Videos
	}
	if upd.Facilities != nil {
		fields["facilities"] = upd.Facilities
	}
	if upd.Rules != nil {
		fields["rules"] = upd.Rules
	}
	if upd.ContactInfo != nil {
		fields["contact_info"] = *upd.ContactInfo
	}
	if upd.AvailabilityStatus != nil {
		fields["availability_status"] = *upd.AvailabilityStatus
	}
	return fields
}

func (s *RoomService) invalidateCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, roomCacheKey(id)); err != nil {
		log.Printf("failed to invalidate room cache %s: %v", id, err)
	}
}
