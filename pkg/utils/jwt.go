package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/models"
)

// Claims is the payload carried by both token classes.
type Claims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(cfg *config.Config, user *models.User) (string, error) {
	return generateToken(user, cfg.JWTAccessSecret, cfg.AccessTokenTTL)
}

func GenerateRefreshToken(cfg *config.Config, user *models.User) (string, error) {
	return generateToken(user, cfg.JWTRefreshSecret, cfg.RefreshTokenTTL)
}

func generateToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateAccessToken(cfg *config.Config, tokenString string) (*Claims, error) {
	return validateToken(tokenString, cfg.JWTAccessSecret)
}

func ValidateRefreshToken(cfg *config.Config, tokenString string) (*Claims, error) {
	return validateToken(tokenString, cfg.JWTRefreshSecret)
}

func validateToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
