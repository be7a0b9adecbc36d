package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/middleware"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// placeholderEmailDomain completes a username into an email when none is given
const placeholderEmailDomain = "internal.local"

// LoginRequest is the body of POST /api/v1/auth/login. Identifier is a username or an email.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// UpdateUserRequest represents the request body for updating the caller's profile
type UpdateUserRequest struct {
	Name            string `json:"name" binding:"omitempty"`
	Email           string `json:"email" binding:"omitempty,email"`
	Password        string `json:"password" binding:"omitempty,min=8"`
	CurrentPassword string `json:"current_password"`
}

// CreateUserRequest is the body of POST /api/v1/users
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=SUPERADMIN ADMIN WORKER"`
}

// AdminUpdateUserRequest is the body of PUT /api/v1/users/:id
type AdminUpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	Role     *string `json:"role" binding:"omitempty,oneof=SUPERADMIN ADMIN WORKER"`
	IsActive *bool   `json:"is_active"`
}

// UserController serves login, the caller's profile and user management
type UserController struct {
	db       *gorm.DB
	tokens   *services.TokenService
	userInfo services.UserInfoProvider
}

// NewUserController creates the user handlers. tokens is nil when Auth0 issues tokens,
// userInfo is nil when it does not.
func NewUserController(db *gorm.DB, tokens *services.TokenService, userInfo services.UserInfoProvider) *UserController {
	return &UserController{db: db, tokens: tokens, userInfo: userInfo}
}

// Login handles POST /api/v1/auth/login - exchanges credentials for a local access token
func (ctl *UserController) Login(c *gin.Context) {
	if ctl.tokens == nil {
		respondError(c, http.StatusNotFound, "LOGIN_DISABLED", "Password login is not available, sign in through Auth0", nil)
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	var user models.User
	err := ctl.db.WithContext(c.Request.Context()).
		Where("LOWER(username) = ? OR LOWER(email) = ?", identifier, identifier).
		First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to look up user", nil)
		return
	}
	if err != nil || user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
		return
	}
	if !user.IsActive {
		respondError(c, http.StatusForbidden, "ACCOUNT_DISABLED", "This account has been deactivated", nil)
		return
	}

	token, expiresAt, err := ctl.tokens.Issue(&user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue access token", nil)
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt.UTC().Format(time.RFC3339),
		"user":         user,
	})
}

// ProvisionMe handles POST /api/v1/users/me - creates the caller's account from Auth0 userinfo
func (ctl *UserController) ProvisionMe(c *gin.Context) {
	if ctl.userInfo == nil {
		respondError(c, http.StatusNotFound, "AUTH0_DISABLED", "Accounts are created by a superadmin", nil)
		return
	}

	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token", nil)
		return
	}
	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found", nil)
		return
	}

	userInfo, err := ctl.userInfo.GetUserInfo(c.Request.Context(), accessToken)
	var infoErr *services.UserInfoError
	if errors.As(err, &infoErr) && infoErr.StatusCode == http.StatusUnauthorized {
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Auth0 rejected the access token", nil)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0", nil)
		return
	}
	if userInfo.Email == "" {
		respondError(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0", nil)
		return
	}
	name := userInfo.DisplayName()
	if name == "" {
		respondError(c, http.StatusBadRequest, "MISSING_NAME", "Name not provided by Auth0", nil)
		return
	}

	// Get role from custom claims (if present)
	role := models.RoleWorker
	if claims, err := middleware.GetClaims(c); err == nil {
		if customClaims, ok := claims.CustomClaims.(*middleware.CustomClaims); ok && models.ValidRole(customClaims.Role) {
			role = customClaims.Role
		}
	}

	username, err := ctl.availableUsername(c, name)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", nil)
		return
	}

	user := models.User{
		Username: username,
		Auth0ID:  &auth0ID,
		Name:     name,
		Email:    userInfo.Email,
		Role:     role,
		IsActive: true,
	}
	if err := ctl.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if repository.IsDuplicateError(err) {
			respondError(c, http.StatusConflict, "USER_EXISTS", "A user with this Auth0 ID or email already exists", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", nil)
		return
	}

	respondData(c, http.StatusCreated, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func (ctl *UserController) GetMyProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me - name, email and password of the caller
func (ctl *UserController) UpdateMyProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	updates := make(map[string]interface{})
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.Email != "" {
		updates["email"] = strings.ToLower(req.Email)
	}
	if req.Password != "" {
		if user.PasswordHash == "" ||
			bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
			respondError(c, http.StatusBadRequest, "INVALID_CURRENT_PASSWORD", "Current password is incorrect", nil)
			return
		}
		hash, err := hashPassword(req.Password)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "PASSWORD_ERROR", "Failed to hash password", nil)
			return
		}
		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		respondData(c, http.StatusOK, user)
		return
	}

	updated, ok := ctl.applyUserUpdates(c, user.ID.String(), updates)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, updated)
}

// ListUsers handles GET /api/v1/users - SUPERADMIN only
func (ctl *UserController) ListUsers(c *gin.Context) {
	var users []models.User
	if err := ctl.db.WithContext(c.Request.Context()).Order("created_at ASC").Find(&users).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch users", nil)
		return
	}
	respondData(c, http.StatusOK, users)
}

// CreateUser handles POST /api/v1/users - SUPERADMIN only. The username is derived
// from the name and the email falls back to <username>@internal.local.
func (ctl *UserController) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if DeriveUsername(name) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name must contain letters or digits", nil)
		return
	}

	username, err := ctl.availableUsername(c, name)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", nil)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		email = fmt.Sprintf("%s@%s", username, placeholderEmailDomain)
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "PASSWORD_ERROR", "Failed to hash password", nil)
		return
	}

	user := models.User{
		Username:     username,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := ctl.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if repository.IsDuplicateError(err) {
			respondError(c, http.StatusConflict, "USER_EXISTS", "A user with this email already exists", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", nil)
		return
	}

	respondData(c, http.StatusCreated, user)
}

// UpdateUser handles PUT /api/v1/users/:id - SUPERADMIN only
func (ctl *UserController) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := currentUser(c)
	if !ok {
		return
	}

	var req AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}
	if actor.ID == id && ((req.Role != nil && *req.Role != actor.Role) || (req.IsActive != nil && !*req.IsActive)) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "You cannot demote or deactivate your own account", nil)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(*req.Email)
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "PASSWORD_ERROR", "Failed to hash password", nil)
			return
		}
		updates["password_hash"] = hash
	}

	updated, ok := ctl.applyUserUpdates(c, id.String(), updates)
	if !ok {
		return
	}
	respondData(c, http.StatusOK, updated)
}

// DeleteUser handles DELETE /api/v1/users/:id - SUPERADMIN only. Users are soft
// deleted so their orders and activity keep a creator.
func (ctl *UserController) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	if actor.ID == id {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "You cannot delete your own account", nil)
		return
	}

	result := ctl.db.WithContext(c.Request.Context()).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete user", nil)
		return
	}
	if result.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted",
	})
}

// applyUserUpdates writes updates to one user and returns the stored row
func (ctl *UserController) applyUserUpdates(c *gin.Context, id string, updates map[string]interface{}) (*models.User, bool) {
	db := ctl.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch user", nil)
		return nil, false
	}
	if len(updates) == 0 {
		return &user, true
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		if repository.IsDuplicateError(err) {
			respondError(c, http.StatusConflict, "EMAIL_EXISTS", "A user with this email already exists", nil)
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user", nil)
		return nil, false
	}

	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch updated user", nil)
		return nil, false
	}
	return &user, true
}

// availableUsername derives a username from name and appends a counter while it is taken,
// soft-deleted accounts included
func (ctl *UserController) availableUsername(c *gin.Context, name string) (string, error) {
	base := DeriveUsername(name)
	if base == "" {
		base = "user"
	}

	candidate := base
	for n := 2; ; n++ {
		var count int64
		err := ctl.db.WithContext(c.Request.Context()).Unscoped().
			Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, n)
	}
}

// DeriveUsername lower-cases name and removes whitespace: "Budi Santoso" -> "budisantoso"
func DeriveUsername(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
