package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/swiftparcel/parcel-backend/internal/config"
	"github.com/swiftparcel/parcel-backend/internal/models"
	"github.com/swiftparcel/parcel-backend/internal/services"
	"github.com/swiftparcel/parcel-backend/pkg/response"
	"github.com/swiftparcel/parcel-backend/pkg/utils"
)

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=sender receiver"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// isUniqueViolation reports whether err is the store telling us a unique
// constraint was hit, without scraping message text.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite (tests) reports constraint failures as plain errors; gorm
	// normalizes both drivers to ErrDuplicatedKey when translation is on.
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"phone":     user.Phone,
		"address":   user.Address,
		"role":      user.Role,
		"isBlocked": user.IsBlocked,
		"createdAt": user.CreatedAt,
	}
}

func setAuthCookies(c *gin.Context, cfg *config.Config, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("accessToken", accessToken, int(cfg.AccessTokenTTL.Seconds()), "/", "", cfg.IsProduction(), true)
	c.SetCookie("refreshToken", refreshToken, int(cfg.RefreshTokenTTL.Seconds()), "/", "", cfg.IsProduction(), true)
}

func clearAuthCookies(c *gin.Context, cfg *config.Config) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("accessToken", "", -1, "/", "", cfg.IsProduction(), true)
	c.SetCookie("refreshToken", "", -1, "/", "", cfg.IsProduction(), true)
}

func issueTokenPair(cfg *config.Config, user *models.User) (string, string, error) {
	accessToken, err := utils.GenerateAccessToken(cfg, user)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := utils.GenerateRefreshToken(cfg, user)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func Register(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			response.ErrorWithDetails(c, 400, "Invalid request body", err.Error())
			return
		}

		role := models.RoleSender
		if input.Role != "" {
			role = models.Role(input.Role)
		}

		user := models.User{
			Name:     input.Name,
			Email:    input.Email,
			Password: input.Password,
			Phone:    input.Phone,
			Address:  input.Address,
			Role:     role,
		}

		if err := user.HashPassword(cfg.BcryptCost); err != nil {
			response.Error(c, 500, "Failed to hash password")
			return
		}

		if err := db.Create(&user).Error; err != nil {
			if isUniqueViolation(err) {
				response.Error(c, 400, "Email already exists")
				return
			}
			response.Error(c, 500, "Failed to create user")
			return
		}

		accessToken, refreshToken, err := issueTokenPair(cfg, &user)
		if err != nil {
			response.Error(c, 500, "Failed to generate tokens")
			return
		}

		setAuthCookies(c, cfg, accessToken, refreshToken)
		response.Success(c, 201, "User registered successfully", gin.H{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
			"user":         userPayload(&user),
		})
	}
}

func Login(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			response.ErrorWithDetails(c, 400, "Invalid request body", err.Error())
			return
		}

		// Unknown email and bad password get the same answer so the
		// endpoint cannot be used to enumerate accounts.
		var user models.User
		if err := db.Where("email = ?", input.Email).First(&user).Error; err != nil {
			response.Error(c, 400, "Invalid credentials")
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			response.Error(c, 400, "Invalid credentials")
			return
		}

		if user.IsBlocked {
			response.Error(c, 403, "Your account has been blocked. Please contact admin.")
			return
		}

		accessToken, refreshToken, err := issueTokenPair(cfg, &user)
		if err != nil {
			response.Error(c, 500, "Failed to generate tokens")
			return
		}

		setAuthCookies(c, cfg, accessToken, refreshToken)
		response.Success(c, 200, "User logged in successfully", gin.H{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
			"user":         userPayload(&user),
		})
	}
}

// RefreshToken issues a new access token from a valid refresh token. The
// refresh token itself is not rotated.
func RefreshToken(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		refreshToken, err := c.Cookie("refreshToken")
		if err != nil || refreshToken == "" {
			var body struct {
				RefreshToken string `json:"refreshToken"`
			}
			if err := c.ShouldBindJSON(&body); err == nil {
				refreshToken = body.RefreshToken
			}
		}
		if refreshToken == "" {
			response.Error(c, 401, "Refresh token is required")
			return
		}

		if services.IsRefreshTokenDenylisted(c.Request.Context(), refreshToken) {
			response.Error(c, 401, "Refresh token has been revoked")
			return
		}

		claims, err := utils.ValidateRefreshToken(cfg, refreshToken)
		if err != nil {
			response.Error(c, 401, "Invalid or expired refresh token")
			return
		}

		var user models.User
		if err := db.Where("email = ?", claims.Email).First(&user).Error; err != nil {
			response.Error(c, 400, "User does not exist")
			return
		}

		accessToken, err := utils.GenerateAccessToken(cfg, &user)
		if err != nil {
			response.Error(c, 500, "Failed to generate token")
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie("accessToken", accessToken, int(cfg.AccessTokenTTL.Seconds()), "/", "", cfg.IsProduction(), true)
		response.Success(c, 200, "New access token retrieved successfully", gin.H{
			"accessToken": accessToken,
		})
	}
}

// Logout clears the auth cookies and revokes the presented refresh token
// until its natural expiry.
func Logout(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if refreshToken, err := c.Cookie("refreshToken"); err == nil && refreshToken != "" {
			ttl := cfg.RefreshTokenTTL
			if claims, err := utils.ValidateRefreshToken(cfg, refreshToken); err == nil && claims.ExpiresAt != nil {
				ttl = time.Until(claims.ExpiresAt.Time)
			}
			if ttl > 0 {
				services.DenylistRefreshToken(c.Request.Context(), refreshToken, ttl)
			}
		}

		clearAuthCookies(c, cfg)
		response.Success(c, 200, "User logged out successfully", nil)
	}
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func ChangePassword(cfg *config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input ChangePasswordInput
		if err := c.ShouldBindJSON(&input); err != nil {
			response.ErrorWithDetails(c, 400, "Invalid request body", err.Error())
			return
		}

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			response.Error(c, 404, "User not found")
			return
		}

		if err := user.CheckPassword(input.OldPassword); err != nil {
			response.Error(c, 401, "Old Password does not match")
			return
		}

		user.Password = input.NewPassword
		if err := user.HashPassword(cfg.BcryptCost); err != nil {
			response.Error(c, 500, "Failed to hash password")
			return
		}

		if err := db.Model(&user).Update("password_hash", user.PasswordHash).Error; err != nil {
			response.Error(c, 500, "Failed to update password")
			return
		}

		response.Success(c, 200, "Password changed successfully", nil)
	}
}

func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userId).Error; err != nil {
			response.Error(c, 404, "User not found")
			return
		}

		response.Success(c, 200, "Profile retrieved successfully", userPayload(&user))
	}
}
