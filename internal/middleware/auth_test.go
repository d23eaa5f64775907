package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/database"
	"github.com/swiftparcel/parcel-backend/internal/middleware"
	"github.com/swiftparcel/parcel-backend/internal/models"
	"github.com/swiftparcel/parcel-backend/pkg/utils"
)

func setup(t *testing.T) (*config.Config, *gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTAccessSecret:  "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		BcryptCost:       bcrypt.MinCost,
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	r := gin.New()
	r.GET("/any", middleware.AuthMiddleware(cfg, db), func(c *gin.Context) {
		c.JSON(200, gin.H{"userId": c.GetUint("userId")})
	})
	r.GET("/admin-only", middleware.AuthMiddleware(cfg, db), middleware.RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	r.GET("/staff", middleware.AuthMiddleware(cfg, db), middleware.RequireRoles(models.RoleAdmin, models.RoleSender), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	return cfg, db, r
}

func makeUser(t *testing.T, db *gorm.DB, cfg *config.Config, email string, role models.Role, blocked bool) (*models.User, string) {
	t.Helper()

	user := models.User{Name: "Test User", Email: email, Password: "secret123", Role: role, IsBlocked: blocked}
	require.NoError(t, user.HashPassword(cfg.BcryptCost))
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateAccessToken(cfg, &user)
	require.NoError(t, err)
	return &user, token
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMissingToken(t *testing.T) {
	_, _, r := setup(t)
	assert.Equal(t, 401, get(r, "/any", "").Code)
}

func TestMalformedToken(t *testing.T) {
	_, _, r := setup(t)
	assert.Equal(t, 401, get(r, "/any", "not-a-jwt").Code)
}

func TestForgedToken(t *testing.T) {
	cfg, db, r := setup(t)
	user, _ := makeUser(t, db, cfg, "a@x.com", models.RoleSender, false)

	forged, err := utils.GenerateAccessToken(&config.Config{
		JWTAccessSecret: "some-other-secret",
		AccessTokenTTL:  time.Hour,
	}, user)
	require.NoError(t, err)

	assert.Equal(t, 401, get(r, "/any", forged).Code)
}

func TestValidToken(t *testing.T) {
	cfg, db, r := setup(t)
	_, token := makeUser(t, db, cfg, "a@x.com", models.RoleSender, false)

	w := get(r, "/any", token)
	assert.Equal(t, 200, w.Code)
}

func TestDeletedUserRejected(t *testing.T) {
	cfg, db, r := setup(t)
	user, token := makeUser(t, db, cfg, "a@x.com", models.RoleSender, false)
	require.NoError(t, db.Unscoped().Delete(user).Error)

	assert.Equal(t, 401, get(r, "/any", token).Code)
}

// A blocked user's token is cryptographically valid but must be rejected.
func TestBlockedUserForbidden(t *testing.T) {
	cfg, db, r := setup(t)
	_, token := makeUser(t, db, cfg, "a@x.com", models.RoleSender, true)

	w := get(r, "/any", token)
	assert.Equal(t, 403, w.Code)
}

func TestBlockTakesEffectOnExistingToken(t *testing.T) {
	cfg, db, r := setup(t)
	user, token := makeUser(t, db, cfg, "a@x.com", models.RoleSender, false)

	require.Equal(t, 200, get(r, "/any", token).Code)
	require.NoError(t, db.Model(user).Update("is_blocked", true).Error)
	assert.Equal(t, 403, get(r, "/any", token).Code)
}

func TestRoleGate(t *testing.T) {
	cfg, db, r := setup(t)
	_, senderToken := makeUser(t, db, cfg, "sender@x.com", models.RoleSender, false)
	_, receiverToken := makeUser(t, db, cfg, "receiver@x.com", models.RoleReceiver, false)
	_, adminToken := makeUser(t, db, cfg, "admin@x.com", models.RoleAdmin, false)

	assert.Equal(t, 403, get(r, "/admin-only", senderToken).Code)
	assert.Equal(t, 200, get(r, "/admin-only", adminToken).Code)

	assert.Equal(t, 200, get(r, "/staff", senderToken).Code)
	assert.Equal(t, 200, get(r, "/staff", adminToken).Code)
	assert.Equal(t, 403, get(r, "/staff", receiverToken).Code)
}

func TestRoleGateNamesAllowedRoles(t *testing.T) {
	cfg, db, r := setup(t)
	_, receiverToken := makeUser(t, db, cfg, "receiver@x.com", models.RoleReceiver, false)

	w := get(r, "/staff", receiverToken)
	require.Equal(t, 403, w.Code)
	assert.Contains(t, w.Body.String(), "admin, sender")
}

func TestTokenViaQueryParameter(t *testing.T) {
	cfg, db, r := setup(t)
	_, token := makeUser(t, db, cfg, "a@x.com", models.RoleSender, false)

	req := httptest.NewRequest(http.MethodGet, "/any?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
}
