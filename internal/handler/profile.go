package handler

import (
	"net/http"
	"strings"

	"cofrinho/internal/middleware"
	"cofrinho/internal/models"
	"cofrinho/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UpdateProfileReq carries the mutable profile fields.
type UpdateProfileReq struct {
	Username  string `json:"username" binding:"max=64"`
	AvatarURL string `json:"avatar_url" binding:"max=512"`
}

// ChangePasswordReq is the authenticated password change request.
type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// GetMe returns the current user's profile.
func GetMe(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
			return
		}

		var profile models.Profile
		if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query profile failed")
			return
		}

		util.Success(c, util.Response{
			"user": gin.H{
				"id":         user.ID,
				"email":      user.Email,
				"username":   profile.Username,
				"avatar_url": profile.AvatarURL,
				"created_at": profile.CreatedAt,
			},
		})
	}
}

// UpdateProfile updates the current user's username and avatar.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
			return
		}

		var req UpdateProfileReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
			return
		}

		req.Username = strings.TrimSpace(req.Username)

		if err := db.Model(&models.Profile{}).
			Where("user_id = ?", user.ID).
			Updates(map[string]interface{}{
				"username":   req.Username,
				"avatar_url": req.AvatarURL,
			}).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update failed")
			return
		}

		util.Success(c, util.Response{
			"user": gin.H{
				"id":         user.ID,
				"email":      user.Email,
				"username":   req.Username,
				"avatar_url": req.AvatarURL,
			},
		})
	}
}

// ChangePassword changes the current user's password after verifying the old
// one, then revokes other sessions.
func ChangePassword(db *gorm.DB, bcryptCost int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
			return
		}

		var req ChangePasswordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
			return
		}

		if !util.CheckPassword(req.OldPassword, user.PasswordHash) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "wrong password")
			return
		}
		if !util.IsStrongPassword(req.NewPassword) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "password must be 8-64 characters with at least one letter and one digit")
			return
		}

		hash, err := util.HashPassword(req.NewPassword, bcryptCost)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "hash password failed")
			return
		}

		if err := db.Model(user).Update("password_hash", hash).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update failed")
			return
		}

		util.Success(c, util.Response{"message": "password updated"})
	}
}
