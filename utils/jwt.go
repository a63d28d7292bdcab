package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type JWTUtil struct {
	secret string
	ttl    time.Duration
}

func NewJWTUtil(secret string, ttl time.Duration) *JWTUtil {
	return &JWTUtil{secret: secret, ttl: ttl}
}

func (j *JWTUtil) GenerateToken(userID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     now.Add(j.ttl).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secret))
}

// ParseToken validates the signature and expiry and returns the user id and
// role claims.
func (j *JWTUtil) ParseToken(tokenString string) (userID, role string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(j.secret), nil
	})
	if err != nil {
		return "", "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid token")
	}
	userID, _ = claims["user_id"].(string)
	role, _ = claims["role"].(string)
	if userID == "" {
		return "", "", errors.New("invalid token claims")
	}
	return userID, role, nil
}

// TokenTTL reports how long the token is still valid, for sizing the
// blacklist entry on logout.
func (j *JWTUtil) TokenTTL(tokenString string) time.Duration {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(j.secret), nil
	})
	if err != nil {
		return 0
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0
	}
	remaining := time.Until(time.Unix(int64(exp), 0))
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (j *JWTUtil) IsTokenBlacklisted(ctx context.Context, tokenString string, redis *RedisClient) bool {
	var blacklisted bool
	err := redis.Get(ctx, fmt.Sprintf("blacklist:%s", tokenString), &blacklisted)
	return err == nil && blacklisted
}

func (j *JWTUtil) BlacklistToken(ctx context.Context, tokenString string, redis *RedisClient) error {
	ttl := j.TokenTTL(tokenString)
	if ttl <= 0 {
		return nil
	}
	return redis.Set(ctx, fmt.Sprintf("blacklist:%s", tokenString), true, ttl)
}
