package handlers

import (
	"strconv"

	"webreplay/backend/internal/models"
	"webreplay/backend/pkg/auth"
	"webreplay/backend/pkg/database"
	"webreplay/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

func GetProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "not logged in")
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		response.InternalServerError(c, "failed to load user")
		return
	}

	user.Password = ""
	response.Success(c, user)
}

func UpdateProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "not logged in")
		return
	}

	var req struct {
		Username string `json:"username" binding:"omitempty,min=3"`
		Email    string `json:"email" binding:"omitempty,email"`
		Password string `json:"password" binding:"omitempty,min=6"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		response.InternalServerError(c, "failed to load user")
		return
	}

	if req.Username != "" && req.Username != user.Username {
		var existingUser models.User
		err := database.DB.Where("username = ? AND id != ?", req.Username, userID).First(&existingUser).Error
		if err == nil {
			response.BadRequest(c, "username already exists")
			return
		}
		user.Username = req.Username
	}

	if req.Email != "" && req.Email != user.Email {
		var existingUser models.User
		err := database.DB.Where("email = ? AND id != ?", req.Email, userID).First(&existingUser).Error
		if err == nil {
			response.BadRequest(c, "email already in use")
			return
		}
		user.Email = req.Email
	}

	if req.Password != "" {
		hashedPassword, err := auth.HashPassword(req.Password)
		if err != nil {
			response.InternalServerError(c, "failed to hash password")
			return
		}
		user.Password = hashedPassword
	}

	if err := database.DB.Save(&user).Error; err != nil {
		response.InternalServerError(c, "failed to update user")
		return
	}

	user.Password = ""
	response.SuccessWithMessage(c, "profile updated", user)
}

func GetUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}

	var users []models.User
	var total int64

	database.DB.Model(&models.User{}).Count(&total)

	offset := (page - 1) * pageSize
	err := database.DB.Select("id, username, email, status, created_at, updated_at").
		Offset(offset).Limit(pageSize).Find(&users).Error
	if err != nil {
		response.InternalServerError(c, "failed to list users")
		return
	}

	response.Page(c, users, total, page, pageSize)
}

// AdminChangePassword lets the admin account reset any user's password.
func AdminChangePassword(c *gin.Context) {
	username, exists := c.Get("username")
	if !exists {
		response.Unauthorized(c, "not logged in")
		return
	}
	if username != "admin" {
		response.Forbidden(c, "only admin can change user passwords")
		return
	}

	targetUserID := c.Param("id")
	if targetUserID == "" {
		response.BadRequest(c, "user id is required")
		return
	}

	var req struct {
		Password string `json:"password" binding:"required,min=6,max=50"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "password must be 6 to 50 characters")
		return
	}

	var targetUser models.User
	if err := database.DB.First(&targetUser, targetUserID).Error; err != nil {
		response.NotFound(c, "user not found")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		response.InternalServerError(c, "failed to hash password")
		return
	}

	if err := database.DB.Model(&targetUser).Update("password", hashedPassword).Error; err != nil {
		response.InternalServerError(c, "failed to update password")
		return
	}

	response.SuccessWithMessage(c, "password updated", nil)
}
