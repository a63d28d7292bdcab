package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleSeeker Role = "seeker"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

func ToRole(role string) Role {
	switch role {
	case "owner":
		return RoleOwner
	case "admin":
		return RoleAdmin
	default:
		return RoleSeeker
	}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleSeeker, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// PlaceholderAvatarID marks the default avatar, which is never released from
// the blob store.
const PlaceholderAvatarID = "placeholder"

type User struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name" validate:"required"`
	Email      string             `json:"email" bson:"email" validate:"required,email"`
	Phone      string             `json:"phone" bson:"phone" validate:"required"`
	Password   string             `json:"-" bson:"password"`
	Role       Role               `json:"role" bson:"role"`
	Avatar     MediaRef           `json:"avatar" bson:"avatar"`
	IsVerified bool               `json:"isVerified" bson:"is_verified"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
}

func (u *User) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}
