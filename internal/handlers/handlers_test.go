package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/database"
	"github.com/swiftparcel/parcel-backend/internal/handlers"
	"github.com/swiftparcel/parcel-backend/internal/middleware"
	"github.com/swiftparcel/parcel-backend/internal/models"
	"github.com/swiftparcel/parcel-backend/pkg/response"
	"github.com/swiftparcel/parcel-backend/pkg/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:              "test",
		JWTAccessSecret:  "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		BcryptCost:       bcrypt.MinCost,
	}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// newTestRouter wires the same route table as cmd/api/main.go over an
// in-memory database.
func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testDB(t)
	r := gin.New()

	api := r.Group("/api/v1")
	auth := api.Group("/auth")
	auth.POST("/register", handlers.Register(cfg, db))
	auth.POST("/login", handlers.Login(cfg, db))
	auth.POST("/refresh-token", handlers.RefreshToken(cfg, db))

	api.GET("/parcels/track/:trackingId", handlers.TrackParcel(db))

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg, db))

	authed := protected.Group("/auth")
	authed.POST("/logout", handlers.Logout(cfg))
	authed.POST("/change-password", handlers.ChangePassword(cfg, db))
	authed.GET("/profile", handlers.GetProfile(db))

	parcels := protected.Group("/parcels")
	parcels.POST("", middleware.RequireRoles(models.RoleSender), handlers.CreateParcel(db))
	parcels.GET("/my-sent", middleware.RequireRoles(models.RoleSender), handlers.GetMySentParcels(db))
	parcels.GET("/my-received", middleware.RequireRoles(models.RoleReceiver), handlers.GetMyReceivedParcels(db))
	parcels.GET("/:id", handlers.GetParcelByID(db))
	parcels.PATCH("/:id/cancel", middleware.RequireRoles(models.RoleSender), handlers.CancelParcel(db))
	parcels.PATCH("/:id/confirm-delivery", middleware.RequireRoles(models.RoleReceiver), handlers.ConfirmDelivery(db))
	parcels.GET("", middleware.RequireRoles(models.RoleAdmin), handlers.GetAllParcels(db))
	parcels.PATCH("/:id/status", middleware.RequireRoles(models.RoleAdmin), handlers.UpdateParcelStatus(cfg, db))
	parcels.PATCH("/:id/toggle-block", middleware.RequireRoles(models.RoleAdmin), handlers.ToggleBlockParcel(db))

	users := protected.Group("/users")
	users.Use(middleware.RequireRoles(models.RoleAdmin))
	users.GET("", handlers.GetAllUsers(db))
	users.PATCH("/:id/toggle-block", handlers.ToggleBlockUser(db))
	users.DELETE("/:id", handlers.DeleteUser(db))

	return r, db
}

// createUser inserts a user directly and returns it with a valid access
// token, bypassing the register endpoint so tests can also mint admins.
func createUser(t *testing.T, db *gorm.DB, cfg *config.Config, name, email string, role models.Role) (*models.User, string) {
	t.Helper()

	user := models.User{
		Name:     name,
		Email:    email,
		Password: "secret123",
		Phone:    "0100000000",
		Address:  "1 Test Street",
		Role:     role,
	}
	require.NoError(t, user.HashPassword(cfg.BcryptCost))
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateAccessToken(cfg, &user)
	require.NoError(t, err)
	return &user, token
}

type envelope struct {
	Success      bool            `json:"success"`
	StatusCode   int             `json:"statusCode"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data"`
	Meta         *response.Meta  `json:"meta"`
	ErrorDetails json.RawMessage `json:"errorDetails"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w, env
}

// createParcel drives the create endpoint and returns the decoded parcel.
func createParcel(t *testing.T, r *gin.Engine, senderToken, receiverEmail string, weight float64) models.Parcel {
	t.Helper()

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/parcels", senderToken, gin.H{
		"receiverEmail":   receiverEmail,
		"receiverName":    "Receiving Person",
		"receiverPhone":   "0111111111",
		"receiverAddress": "2 Delivery Road",
		"parcelType":      "Package",
		"weight":          weight,
	})
	require.Equal(t, 201, w.Code, "body: %s", w.Body.String())

	var parcel models.Parcel
	require.NoError(t, json.Unmarshal(env.Data, &parcel))
	return parcel
}
