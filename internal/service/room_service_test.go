package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartroom/internal/models"
)

type fakeRoomRepo struct {
	rooms   map[primitive.ObjectID]*models.Room
	deleted []primitive.ObjectID
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[primitive.ObjectID]*models.Room)}
}

func (f *fakeRoomRepo) add(room *models.Room) {
	if room.ID.IsZero() {
		room.ID = primitive.NewObjectID()
	}
	f.rooms[room.ID] = room
}

func (f *fakeRoomRepo) Create(ctx context.Context, room *models.Room) error {
	room.ID = primitive.NewObjectID()
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepo) Search(ctx context.Context, filters models.SearchFilters) ([]models.Room, error) {
	return nil, nil
}

// FindByID hands back a copy, the way a cursor decode would.
func (f *fakeRoomRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *room
	cp.Reviews = append([]models.Review(nil), room.Reviews...)
	cp.Images = append([]models.MediaRef(nil), room.Images...)
	cp.Videos = append([]models.MediaRef(nil), room.Videos...)
	return &cp, nil
}

func (f *fakeRoomRepo) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Room, error) {
	var out []models.Room
	for _, room := range f.rooms {
		if room.Owner == ownerID {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	room, ok := f.rooms[id]
	if !ok {
		return models.ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "title":
			room.Title = value.(string)
		case "description":
			room.Description = value.(string)
		case "price":
			room.Price = value.(int64)
		case "images":
			room.Images = value.([]models.MediaRef)
		case "videos":
			room.Videos = value.([]models.MediaRef)
		case "availability_status":
			room.AvailabilityStatus = value.(models.AvailabilityStatus)
		case "is_approved":
			room.IsApproved = value.(bool)
		}
	}
	return nil
}

func (f *fakeRoomRepo) UpdateReviews(ctx context.Context, id primitive.ObjectID, reviews []models.Review, numOfReviews int, ratings float64) error {
	room, ok := f.rooms[id]
	if !ok {
		return models.ErrNotFound
	}
	room.Reviews = reviews
	room.NumOfReviews = numOfReviews
	room.Ratings = ratings
	return nil
}

func (f *fakeRoomRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := f.rooms[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.rooms, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeBlobStore struct {
	released  []string
	failOn    map[string]bool
	uploadErr error
	uploadSeq int
}

func (f *fakeBlobStore) Upload(ctx context.Context, reader io.Reader, size int64, contentType, filename, folder string) (models.MediaRef, error) {
	if f.uploadErr != nil {
		return models.MediaRef{}, f.uploadErr
	}
	f.uploadSeq++
	id := fmt.Sprintf("%s/blob-%d", folder, f.uploadSeq)
	return models.MediaRef{ID: id, URL: "http://blobs.local/" + id}, nil
}

func (f *fakeBlobStore) Release(ctx context.Context, id, kind string) error {
	if f.failOn[id] {
		return fmt.Errorf("%w: %s", models.ErrDelete, id)
	}
	f.released = append(f.released, id)
	return nil
}

// fakeCache mimics the JSON-marshalling redis wrapper.
type fakeCache struct {
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := f.entries[key]
	if !ok {
		return errors.New("key not found")
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = data
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

func strPtr(s string) *string { return &s }

func newTestRoom(owner primitive.ObjectID) *models.Room {
	return &models.Room{
		Title:       "Cozy room near campus",
		Description: "South-facing single room",
		Price:       8500,
		Category:    models.CategoryBachelorRoom,
		Location: models.Location{
			Address: "12 Lakeview Rd",
			City:    "Dhaka",
		},
		ContactInfo:        models.ContactInfo{Phone: "01700000000"},
		AvailabilityStatus: models.StatusAvailable,
		IsApproved:         true,
		Owner:              owner,
		Reviews:            []models.Review{},
	}
}

func TestCreateRoom_SetsOwnerAndDefaults(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	owner := primitive.NewObjectID()
	room := newTestRoom(primitive.NilObjectID)
	room.AvailabilityStatus = ""

	err := svc.CreateRoom(context.Background(), room, owner.Hex())
	require.NoError(t, err)

	assert.Equal(t, owner, room.Owner)
	assert.Equal(t, models.StatusAvailable, room.AvailabilityStatus)
	assert.True(t, room.IsApproved)
	assert.Equal(t, 0, room.NumOfReviews)
	assert.Equal(t, 0.0, room.Ratings)
	assert.False(t, room.ID.IsZero())
}

func TestCreateRoom_ValidationFailures(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)
	owner := primitive.NewObjectID()

	cases := []struct {
		name   string
		mutate func(*models.Room)
	}{
		{"missing title", func(r *models.Room) { r.Title = "" }},
		{"whitespace title", func(r *models.Room) { r.Title = " \t " }},
		{"zero price", func(r *models.Room) { r.Price = 0 }},
		{"price above 8 digits", func(r *models.Room) { r.Price = 100000000 }},
		{"bad category", func(r *models.Room) { r.Category = "Penthouse" }},
		{"missing city", func(r *models.Room) { r.Location.City = "" }},
		{"missing phone", func(r *models.Room) { r.ContactInfo.Phone = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			room := newTestRoom(primitive.NilObjectID)
			tc.mutate(room)
			err := svc.CreateRoom(context.Background(), room, owner.Hex())
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Empty(t, repo.rooms)
		})
	}
}

func TestCreateRoom_TrimsTitle(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NilObjectID)
	room.Title = "  Cozy room near campus  "

	err := svc.CreateRoom(context.Background(), room, primitive.NewObjectID().Hex())
	require.NoError(t, err)
	assert.Equal(t, "Cozy room near campus", room.Title)
	assert.Equal(t, "Cozy room near campus", repo.rooms[room.ID].Title)
}

func TestSubmitReview_EndToEnd(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)

	accountA := &models.User{ID: primitive.NewObjectID(), Name: "Anika"}
	accountB := &models.User{ID: primitive.NewObjectID(), Name: "Bashir"}

	assert.Equal(t, 0.0, room.Ratings)
	assert.Equal(t, 0, room.NumOfReviews)

	got, err := svc.SubmitReview(context.Background(), room.ID.Hex(), 4, "ok", accountA)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Ratings)
	assert.Equal(t, 1, got.NumOfReviews)

	got, err = svc.SubmitReview(context.Background(), room.ID.Hex(), 2, "meh", accountB)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Ratings)
	assert.Equal(t, 2, got.NumOfReviews)

	got, err = svc.SubmitReview(context.Background(), room.ID.Hex(), 5, "better now", accountA)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got.Ratings)
	assert.Equal(t, 2, got.NumOfReviews)
}

func TestSubmitReview_DerivedFieldsStayConsistent(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)

	for i, rating := range []int{5, 3, 1, 4} {
		reviewer := &models.User{ID: primitive.NewObjectID(), Name: fmt.Sprintf("user-%d", i)}
		got, err := svc.SubmitReview(context.Background(), room.ID.Hex(), rating, "comment", reviewer)
		require.NoError(t, err)

		assert.Equal(t, len(got.Reviews), got.NumOfReviews)
		sum := 0
		for _, rev := range got.Reviews {
			sum += rev.Rating
		}
		assert.InDelta(t, float64(sum)/float64(len(got.Reviews)), got.Ratings, 1e-9)
	}
}

func TestSubmitReview_Idempotent(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)

	reviewer := &models.User{ID: primitive.NewObjectID(), Name: "Anika"}

	first, err := svc.SubmitReview(context.Background(), room.ID.Hex(), 4, "ok", reviewer)
	require.NoError(t, err)
	second, err := svc.SubmitReview(context.Background(), room.ID.Hex(), 4, "ok", reviewer)
	require.NoError(t, err)

	assert.Equal(t, first.NumOfReviews, second.NumOfReviews)
	assert.Equal(t, first.Ratings, second.Ratings)
}

func TestSubmitReview_RatingOutOfRange(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)
	reviewer := &models.User{ID: primitive.NewObjectID(), Name: "Anika"}

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.SubmitReview(context.Background(), room.ID.Hex(), rating, "x", reviewer)
		assert.ErrorIs(t, err, models.ErrValidation)
	}
}

func TestSubmitReview_RoomNotFound(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	reviewer := &models.User{ID: primitive.NewObjectID(), Name: "Anika"}
	_, err := svc.SubmitReview(context.Background(), primitive.NewObjectID().Hex(), 4, "ok", reviewer)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateRoom_Forbidden(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)
	originalTitle := room.Title

	stranger := primitive.NewObjectID().Hex()
	_, err := svc.UpdateRoom(context.Background(), room.ID.Hex(), models.RoomUpdate{Title: strPtr("hijacked")}, stranger, models.RoleSeeker)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Equal(t, originalTitle, repo.rooms[room.ID].Title)
}

func TestUpdateRoom_AdminMayMutate(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)

	admin := primitive.NewObjectID().Hex()
	got, err := svc.UpdateRoom(context.Background(), room.ID.Hex(), models.RoomUpdate{Title: strPtr("Moderated title")}, admin, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Moderated title", got.Title)
}

func TestUpdateRoom_PartialFieldsOnly(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)
	originalDescription := room.Description

	newPrice := int64(9000)
	got, err := svc.UpdateRoom(context.Background(), room.ID.Hex(), models.RoomUpdate{Price: &newPrice}, room.Owner.Hex(), models.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, newPrice, got.Price)
	assert.Equal(t, originalDescription, got.Description)
}

func TestUpdateRoom_TrimsTitle(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)

	got, err := svc.UpdateRoom(context.Background(), room.ID.Hex(), models.RoomUpdate{Title: strPtr("  Renamed  ")}, room.Owner.Hex(), models.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	_, err = svc.UpdateRoom(context.Background(), room.ID.Hex(), models.RoomUpdate{Title: strPtr("   ")}, room.Owner.Hex(), models.RoleOwner)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateRoom_MediaReplacementReleasesOldBlobs(t *testing.T) {
	repo := newFakeRoomRepo()
	blobs := &fakeBlobStore{}
	svc := NewRoomService(repo, blobs, nil)

	room := newTestRoom(primitive.NewObjectID())
	room.Images = []models.MediaRef{
		{ID: "rooms/images/old-1", URL: "http://blobs.local/old-1"},
		{ID: "rooms/images/old-2", URL: "http://blobs.local/old-2"},
	}
	room.Videos = []models.MediaRef{
		{ID: "rooms/videos/old-v", URL: "http://blobs.local/old-v"},
	}
	repo.add(room)

	replacement := []models.MediaRef{{ID: "rooms/images/new-1", URL: "http://blobs.local/new-1"}}
	got, err := svc.UpdateRoom(context.Background(), room.ID.Hex(), models.RoomUpdate{Images: replacement}, room.Owner.Hex(), models.RoleOwner)
	require.NoError(t, err)

	// one release per previous image, videos untouched
	assert.ElementsMatch(t, []string{"rooms/images/old-1", "rooms/images/old-2"}, blobs.released)
	assert.Equal(t, replacement, got.Images)
	assert.Len(t, got.Videos, 1)
}

func TestUpdateRoom_NoMediaInUpdateKeepsBlobs(t *testing.T) {
	repo := newFakeRoomRepo()
	blobs := &fakeBlobStore{}
	svc := NewRoomService(repo, blobs, nil)

	room := newTestRoom(primitive.NewObjectID())
	room.Images = []models.MediaRef{{ID: "rooms/images/old-1", URL: "u"}}
	repo.add(room)

	_, err := svc.UpdateRoom(context.Background(), room.ID.Hex(), models.RoomUpdate{Title: strPtr("Renamed")}, room.Owner.Hex(), models.RoleOwner)
	require.NoError(t, err)
	assert.Empty(t, blobs.released)
	assert.Len(t, repo.rooms[room.ID].Images, 1)
}

func TestDeleteRoom_CascadesBlobReleases(t *testing.T) {
	repo := newFakeRoomRepo()
	blobs := &fakeBlobStore{}
	svc := NewRoomService(repo, blobs, nil)

	room := newTestRoom(primitive.NewObjectID())
	room.Images = []models.MediaRef{{ID: "img-1", URL: "u"}, {ID: "img-2", URL: "u"}}
	room.Videos = []models.MediaRef{{ID: "vid-1", URL: "u"}}
	repo.add(room)

	err := svc.DeleteRoom(context.Background(), room.ID.Hex(), room.Owner.Hex(), models.RoleOwner)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"img-1", "img-2", "vid-1"}, blobs.released)
	assert.NotContains(t, repo.rooms, room.ID)
}

func TestDeleteRoom_ReleaseFailuresAreCollected(t *testing.T) {
	repo := newFakeRoomRepo()
	blobs := &fakeBlobStore{failOn: map[string]bool{"img-1": true}}
	svc := NewRoomService(repo, blobs, nil)

	room := newTestRoom(primitive.NewObjectID())
	room.Images = []models.MediaRef{{ID: "img-1", URL: "u"}, {ID: "img-2", URL: "u"}}
	repo.add(room)

	err := svc.DeleteRoom(context.Background(), room.ID.Hex(), room.Owner.Hex(), models.RoleOwner)
	assert.ErrorIs(t, err, models.ErrDelete)

	// the other release was still attempted and the record survives for retry
	assert.Contains(t, blobs.released, "img-2")
	assert.Contains(t, repo.rooms, room.ID)
}

func TestDeleteRoom_Forbidden(t *testing.T) {
	repo := newFakeRoomRepo()
	blobs := &fakeBlobStore{}
	svc := NewRoomService(repo, blobs, nil)

	room := newTestRoom(primitive.NewObjectID())
	room.Images = []models.MediaRef{{ID: "img-1", URL: "u"}}
	repo.add(room)

	err := svc.DeleteRoom(context.Background(), room.ID.Hex(), primitive.NewObjectID().Hex(), models.RoleOwner)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Empty(t, blobs.released)
	assert.Contains(t, repo.rooms, room.ID)
}

func TestUpdateAvailability(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)

	got, err := svc.UpdateAvailability(context.Background(), room.ID.Hex(), models.StatusBooked, room.Owner.Hex(), models.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBooked, got.AvailabilityStatus)
	assert.Equal(t, models.StatusBooked, repo.rooms[room.ID].AvailabilityStatus)

	// setting the same status again is a legal no-op
	got, err = svc.UpdateAvailability(context.Background(), room.ID.Hex(), models.StatusBooked, room.Owner.Hex(), models.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBooked, got.AvailabilityStatus)
}

func TestUpdateAvailability_InvalidStatus(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)

	_, err := svc.UpdateAvailability(context.Background(), room.ID.Hex(), "Occupied", room.Owner.Hex(), models.RoleOwner)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUpdateAvailability_Forbidden(t *testing.T) {
	repo := newFakeRoomRepo()
	svc := NewRoomService(repo, &fakeBlobStore{}, nil)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)

	_, err := svc.UpdateAvailability(context.Background(), room.ID.Hex(), models.StatusBooked, primitive.NewObjectID().Hex(), models.RoleSeeker)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Equal(t, models.StatusAvailable, repo.rooms[room.ID].AvailabilityStatus)
}

func TestGetRoomDetails_CacheAside(t *testing.T) {
	repo := newFakeRoomRepo()
	cache := newFakeCache()
	svc := NewRoomService(repo, &fakeBlobStore{}, cache)

	room := newTestRoom(primitive.NewObjectID())
	repo.add(room)
	key := roomCacheKey(room.ID.Hex())

	first, err := svc.GetRoomDetails(context.Background(), room.ID.Hex())
	require.NoError(t, err)
	assert.Contains(t, cache.entries, key)

	// a write that bypasses the service is invisible until the entry expires
	repo.rooms[room.ID].Title = "changed behind the cache"
	second, err := svc.GetRoomDetails(context.Background(), room.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, first.Title, second.Title)
}

func TestRoomMutationsInvalidateDetailsCache(t *testing.T) {
	owner := primitive.NewObjectID()

	cases := []struct {
		name   string
		mutate func(t *testing.T, svc *RoomService, room *models.Room)
	}{
		{"update", func(t *testing.T, svc *RoomService, room *models.Room) {
			_, err := svc.UpdateRoom(context.Background(), room.ID.Hex(), models.RoomUpdate{Title: strPtr("Renamed")}, owner.Hex(), models.RoleOwner)
			require.NoError(t, err)
		}},
		{"availability", func(t *testing.T, svc *RoomService, room *models.Room) {
			_, err := svc.UpdateAvailability(context.Background(), room.ID.Hex(), models.StatusBooked, owner.Hex(), models.RoleOwner)
			require.NoError(t, err)
		}},
		{"review", func(t *testing.T, svc *RoomService, room *models.Room) {
			reviewer := &models.User{ID: primitive.NewObjectID(), Name: "Anika"}
			_, err := svc.SubmitReview(context.Background(), room.ID.Hex(), 4, "ok", reviewer)
			require.NoError(t, err)
		}},
		{"delete", func(t *testing.T, svc *RoomService, room *models.Room) {
			require.NoError(t, svc.DeleteRoom(context.Background(), room.ID.Hex(), owner.Hex(), models.RoleOwner))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRoomRepo()
			cache := newFakeCache()
			svc := NewRoomService(repo, &fakeBlobStore{}, cache)

			room := newTestRoom(owner)
			repo.add(room)
			key := roomCacheKey(room.ID.Hex())

			_, err := svc.GetRoomDetails(context.Background(), room.ID.Hex())
			require.NoError(t, err)
			require.Contains(t, cache.entries, key)

			tc.mutate(t, svc, room)
			assert.NotContains(t, cache.entries, key)
		})
	}
}

func TestGetRoomDetails_InvalidID(t *testing.T) {
	svc := NewRoomService(newFakeRoomRepo(), &fakeBlobStore{}, nil)
	_, err := svc.GetRoomDetails(context.Background(), "not-a-hex-id")
	assert.ErrorIs(t, err, models.ErrInvalidID)
}

func TestCallerMayMutate(t *testing.T) {
	owner := primitive.NewObjectID()
	room := &models.Room{Owner: owner}

	assert.True(t, callerMayMutate(room, owner.Hex(), models.RoleOwner))
	assert.True(t, callerMayMutate(room, primitive.NewObjectID().Hex(), models.RoleAdmin))
	assert.False(t, callerMayMutate(room, primitive.NewObjectID().Hex(), models.RoleOwner))
	assert.False(t, callerMayMutate(room, primitive.NewObjectID().Hex(), models.RoleSeeker))
}
