package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"smartroom/config"
	"smartroom/internal/models"
	"smartroom/utils"
)

const avatarFolder = "smartroom/avatars"

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
}

// FileUpload is a pending multipart file handed down by the handler.
type FileUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
}

type RegisterInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"required"`
	Password string `validate:"required,min=6"`
	Role     string
}

// ProfileUpdate carries the mutable profile fields. Email and role are
// immutable after registration.
type ProfileUpdate struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type AuthService struct {
	users UserRepository
	blobs BlobStore
	jwt   *utils.JWTUtil
	redis *utils.RedisClient
	media config.MediaConfig
}

func NewAuthService(users UserRepository, blobs BlobStore, jwt *utils.JWTUtil, redis *utils.RedisClient, media config.MediaConfig) *AuthService {
	return &AuthService{users: users, blobs: blobs, jwt: jwt, redis: redis, media: media}
}

// Register creates an account. When the avatar upload fails and the
// configured policy tolerates it, the placeholder avatar is substituted
// instead of failing the registration.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, avatar *FileUpload) (*models.User, error) {
	if err := utils.GetValidator().Struct(input); err != nil {
		errs := utils.ParseErrors(err)
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(errs, " // "))
	}

	avatarRef := models.MediaRef{
		ID:  models.PlaceholderAvatarID,
		URL: s.media.AvatarPlaceholderURL,
	}
	if avatar != nil {
		ref, err := s.blobs.Upload(ctx, avatar.Reader, avatar.Size, avatar.ContentType, avatar.Filename, avatarFolder)
		if err != nil {
			if !s.media.AllowAvatarUploadFailure {
				return nil, err
			}
			log.Printf("avatar upload failed, using placeholder: %v", err)
		} else {
			avatarRef = ref
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Password: string(hashed),
		Role:     models.ToRole(input.Role),
		Avatar:   avatarRef,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", models.ErrValidation)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, models.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := user.ComparePassword(password); err != nil {
		return "", nil, models.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID.Hex(), string(user.Role))
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Logout blacklists the token for the remainder of its lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.redis == nil {
		return nil
	}
	return s.jwt.BlacklistToken(ctx, token, s.redis)
}

func (s *AuthService) GetProfile(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}
	return s.users.FindByID(ctx, oid)
}

// UpdateProfile mutates name, phone and avatar only. Replacing a
// non-placeholder avatar releases the old blob first; here an upload failure
// is always fatal, unlike registration.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate, avatar *FileUpload) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.Phone != nil {
		fields["phone"] = *upd.Phone
	}

	if avatar != nil {
		if user.Avatar.ID != "" && user.Avatar.ID != models.PlaceholderAvatarID {
			if err := s.blobs.Release(ctx, user.Avatar.ID, "avatar"); err != nil {
				return nil, err
			}
		}
		ref, err := s.blobs.Upload(ctx, avatar.Reader, avatar.Size, avatar.ContentType, avatar.Filename, avatarFolder)
		if err != nil {
			return nil, err
		}
		fields["avatar"] = ref
	}

	if err := s.users.UpdateFields(ctx, oid, fields); err != nil {
		return nil, err
	}

	return s.users.FindByID(ctx, oid)
}
