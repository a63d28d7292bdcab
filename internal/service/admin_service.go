package service

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartroom/internal/models"
)

type StatsRepository interface {
	CountAll(ctx context.Context) (int64, error)
}

type RoomModerationRepository interface {
	SetApproval(ctx context.Context, id primitive.ObjectID, approved bool) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Room, error)
	CountAll(ctx context.Context) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

type UserModerationRepository interface {
	SetVerified(ctx context.Context, id primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CountAll(ctx context.Context) (int64, error)
}

// AdminStats is the dashboard counter block.
type AdminStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalRooms    int64 `json:"totalRooms"`
	PendingRooms  int64 `json:"pendingRooms"`
	TotalBookings int64 `json:"totalBookings"`
}

type AdminService struct {
	rooms    RoomModerationRepository
	users    UserModerationRepository
	bookings StatsRepository
	cache    Cache
}

func NewAdminService(rooms RoomModerationRepository, users UserModerationRepository, bookings StatsRepository, cache Cache) *AdminService {
	return &AdminService{rooms: rooms, users: users, bookings: bookings, cache: cache}
}

func (s *AdminService) Stats(ctx context.Context) (*AdminStats, error) {
	totalUsers, err := s.users.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	totalRooms, err := s.rooms.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	pendingRooms, err := s.rooms.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	totalBookings, err := s.bookings.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	return &AdminStats{
		TotalUsers:    totalUsers,
		TotalRooms:    totalRooms,
		PendingRooms:  pendingRooms,
		TotalBookings: totalBookings,
	}, nil
}

// SetRoomApproval flips the moderation flag on a room. The cached detail
// view must not outlive the flip, so the cache entry is dropped like on any
// other room mutation.
func (s *AdminService) SetRoomApproval(ctx context.Context, id string, approved bool) (*models.Room, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	if err := s.rooms.SetApproval(ctx, oid, approved); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, roomCacheKey(id)); err != nil {
			log.Printf("failed to invalidate room cache %s: %v", id, err)
		}
	}

	return s.rooms.FindByID(ctx, oid)
}

// VerifyOwner marks a user account as verified.
func (s *AdminService) VerifyOwner(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	if err := s.users.SetVerified(ctx, oid); err != nil {
		return nil, err
	}

	return s.users.FindByID(ctx, oid)
}
