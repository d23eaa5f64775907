package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/swiftparcel/parcel-backend/internal/models"
	"github.com/swiftparcel/parcel-backend/pkg/query"
	"github.com/swiftparcel/parcel-backend/pkg/response"
)

// GetAllUsers is the admin user listing with the standard filter parameters.
func GetAllUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		meta, err := query.New(db.Model(&models.User{}), queryParams(c)).
			Search("name", "email").
			Filter().Sort().Fields().Paginate().
			Find(&users)
		if err != nil {
			response.Error(c, 500, "Failed to fetch users")
			return
		}

		response.SuccessWithMeta(c, 200, "Users retrieved successfully", users, meta)
	}
}

func userByParam(db *gorm.DB, c *gin.Context) (*models.User, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.Error(c, 400, "Invalid user ID")
		return nil, false
	}

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		response.Error(c, 404, "User not found")
		return nil, false
	}
	return &user, true
}

// ToggleBlockUser flips a user's blocked flag. Admins cannot block their own
// account.
func ToggleBlockUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		currentUserId := c.GetUint("userId")

		user, ok := userByParam(db, c)
		if !ok {
			return
		}

		if user.ID == currentUserId {
			response.Error(c, 400, "You cannot block yourself")
			return
		}

		user.IsBlocked = !user.IsBlocked
		if err := db.Model(user).Update("is_blocked", user.IsBlocked).Error; err != nil {
			response.Error(c, 500, "Failed to update user")
			return
		}

		response.Success(c, 200, "User block status updated successfully", user)
	}
}

// DeleteUser removes a user record permanently. Admins cannot delete their
// own account.
func DeleteUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		currentUserId := c.GetUint("userId")

		user, ok := userByParam(db, c)
		if !ok {
			return
		}

		if user.ID == currentUserId {
			response.Error(c, 400, "You cannot delete yourself")
			return
		}

		if err := db.Unscoped().Delete(user).Error; err != nil {
			response.Error(c, 500, "Failed to delete user")
			return
		}

		response.Success(c, 200, "User deleted successfully", nil)
	}
}
