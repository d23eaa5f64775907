package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/models"
)

func TestCalculateFee(t *testing.T) {
	assert.Equal(t, 150.0, CalculateFee(5))
	assert.Equal(t, 70.0, CalculateFee(1))
	assert.Equal(t, 60.0, CalculateFee(0.5))
	assert.Equal(t, 50.0, CalculateFee(0))
}

func TestGenerateTrackingID(t *testing.T) {
	id := GenerateTrackingID()
	assert.Regexp(t, `^TRK-\d{8}-\d{6}$`, id)
	assert.Contains(t, id, time.Now().Format("20060102"))
}

func tokenConfig() *config.Config {
	return &config.Config{
		JWTAccessSecret:  "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := tokenConfig()
	user := &models.User{Email: "a@x.com", Role: models.RoleSender}
	user.ID = 42

	token, err := GenerateAccessToken(cfg, user)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "sender", claims.Role)
}

func TestTokenClassesUseDistinctSecrets(t *testing.T) {
	cfg := tokenConfig()
	user := &models.User{Email: "a@x.com", Role: models.RoleSender}
	user.ID = 1

	accessToken, err := GenerateAccessToken(cfg, user)
	require.NoError(t, err)
	refreshToken, err := GenerateRefreshToken(cfg, user)
	require.NoError(t, err)

	_, err = ValidateRefreshToken(cfg, accessToken)
	assert.Error(t, err)
	_, err = ValidateAccessToken(cfg, refreshToken)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	cfg := tokenConfig()
	cfg.AccessTokenTTL = -time.Minute
	user := &models.User{Email: "a@x.com", Role: models.RoleSender}
	user.ID = 1

	token, err := GenerateAccessToken(cfg, user)
	require.NoError(t, err)

	_, err = ValidateAccessToken(cfg, token)
	assert.Error(t, err)
}
