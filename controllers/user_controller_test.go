package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yunusmujadidi/purchase-order/config"
	"github.com/yunusmujadidi/purchase-order/internal/testutil"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testTokenConfig = &config.Config{
	JWTSecret:   "controller-test-secret",
	JWTIssuer:   "purchase-order-api",
	JWTAudience: "purchase-order",
	TokenTTL:    time.Hour,
}

func createUserWithPassword(t *testing.T, db *gorm.DB, username, password, role string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		Name:         username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	if !active {
		require.NoError(t, db.Model(&user).Update("is_active", false).Error)
		user.IsActive = false
	}
	return &user
}

// stubUserInfo answers /userinfo lookups from a map keyed by access token
type stubUserInfo map[string]*services.Auth0UserInfo

func (s stubUserInfo) GetUserInfo(ctx context.Context, accessToken string) (*services.Auth0UserInfo, error) {
	if accessToken == "outage" {
		return nil, errors.New("dial tcp: connection refused")
	}
	info, ok := s[accessToken]
	if !ok {
		return nil, &services.UserInfoError{StatusCode: http.StatusUnauthorized, Body: `{"error":"invalid_token"}`}
	}
	return info, nil
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	tokens := services.NewTokenService(testTokenConfig)
	createUserWithPassword(t, db, "sari", "correct-horse", models.RoleAdmin, true)
	createUserWithPassword(t, db, "budi", "correct-horse", models.RoleWorker, false)

	router := setupTestRouter()
	router.POST("/api/v1/auth/login", NewUserController(db, tokens, nil).Login)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
	}{
		{name: "Username login", requestBody: map[string]interface{}{"identifier": "sari", "password": "correct-horse"}, expectedStatus: http.StatusOK},
		{name: "Email login ignores case", requestBody: map[string]interface{}{"identifier": "SARI@example.com", "password": "correct-horse"}, expectedStatus: http.StatusOK},
		{name: "Wrong password", requestBody: map[string]interface{}{"identifier": "sari", "password": "wrong"}, expectedStatus: http.StatusUnauthorized, expectedError: "INVALID_CREDENTIALS"},
		{name: "Unknown user", requestBody: map[string]interface{}{"identifier": "nobody", "password": "correct-horse"}, expectedStatus: http.StatusUnauthorized, expectedError: "INVALID_CREDENTIALS"},
		{name: "Deactivated user", requestBody: map[string]interface{}{"identifier": "budi", "password": "correct-horse"}, expectedStatus: http.StatusForbidden, expectedError: "ACCOUNT_DISABLED"},
		{name: "Missing password", requestBody: map[string]interface{}{"identifier": "sari"}, expectedStatus: http.StatusBadRequest, expectedError: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(router, http.MethodPost, "/api/v1/auth/login", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			response := decodeResponse(t, w)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(response))
				return
			}

			data := response["data"].(map[string]interface{})
			assert.Equal(t, "Bearer", data["token_type"])
			claims, err := tokens.Parse(data["access_token"].(string))
			require.NoError(t, err)
			assert.Equal(t, models.RoleAdmin, claims.Role)
			assert.Equal(t, data["user"].(map[string]interface{})["id"], claims.Subject)
			assert.NotContains(t, data["user"], "password_hash")
		})
	}
}

func TestLogin_DisabledWithAuth0(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter()
	router.POST("/api/v1/auth/login", NewUserController(db, nil, stubUserInfo{}).Login)

	w := performJSON(router, http.MethodPost, "/api/v1/auth/login", map[string]interface{}{"identifier": "sari", "password": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "LOGIN_DISABLED", errorCode(decodeResponse(t, w)))
}

func TestProvisionMe(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "ritawati", models.RoleWorker)
	userInfo := stubUserInfo{
		"token-rita":     {Sub: "auth0|rita", Email: "rita@example.com", Name: "Rita Wati"},
		"token-noemail":  {Sub: "auth0|noemail", Name: "No Email"},
		"token-nickname": {Sub: "auth0|nick", Email: "nick@example.com", Nickname: "nick"},
	}
	ctl := NewUserController(db, nil, userInfo)

	tests := []struct {
		name           string
		auth0ID        string
		role           string
		accessToken    string
		expectedStatus int
		expectedError  string
		checkResponse  func(t *testing.T, data map[string]interface{})
	}{
		{
			name:           "Creates account with derived username",
			auth0ID:        "auth0|rita",
			role:           models.RoleAdmin,
			accessToken:    "token-rita",
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "ritawati2", data["username"])
				assert.Equal(t, "rita@example.com", data["email"])
				assert.Equal(t, models.RoleAdmin, data["role"])
				assert.Equal(t, "auth0|rita", data["auth0_id"])
			},
		},
		{
			name:           "Falls back to nickname and worker role",
			auth0ID:        "auth0|nick",
			role:           "customer",
			accessToken:    "token-nickname",
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "nick", data["name"])
				assert.Equal(t, models.RoleWorker, data["role"])
			},
		},
		{name: "Second call conflicts", auth0ID: "auth0|rita", accessToken: "token-rita", expectedStatus: http.StatusConflict, expectedError: "USER_EXISTS"},
		{name: "Missing email", auth0ID: "auth0|noemail", accessToken: "token-noemail", expectedStatus: http.StatusBadRequest, expectedError: "MISSING_EMAIL"},
		{name: "Auth0 rejects token", auth0ID: "auth0|rita", accessToken: "expired", expectedStatus: http.StatusUnauthorized, expectedError: "INVALID_TOKEN"},
		{name: "Auth0 unreachable", auth0ID: "auth0|rita", accessToken: "outage", expectedStatus: http.StatusInternalServerError, expectedError: "AUTH0_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/api/v1/users/me", testutil.MockToken(tt.auth0ID, tt.role, tt.accessToken), ctl.ProvisionMe)

			w := performJSON(router, http.MethodPost, "/api/v1/users/me", nil)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			response := decodeResponse(t, w)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(response))
				return
			}
			tt.checkResponse(t, response["data"].(map[string]interface{}))
		})
	}
}

func TestMyProfile(t *testing.T) {
	db := setupTestDB(t)
	user := createUserWithPassword(t, db, "sari", "correct-horse", models.RoleWorker, true)
	createTestUser(t, db, "budi", models.RoleWorker)
	ctl := NewUserController(db, nil, nil)

	router := setupTestRouter()
	group := router.Group("/api/v1", mockCurrentUser(user))
	group.GET("/users/me", ctl.GetMyProfile)
	group.PUT("/users/me", ctl.UpdateMyProfile)

	w := performJSON(router, http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sari", decodeResponse(t, w)["data"].(map[string]interface{})["username"])

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
	}{
		{name: "Update name", requestBody: map[string]interface{}{"name": "Sari Dewi"}, expectedStatus: http.StatusOK},
		{name: "Empty update", requestBody: map[string]interface{}{}, expectedStatus: http.StatusOK},
		{name: "Invalid email", requestBody: map[string]interface{}{"email": "not-an-email"}, expectedStatus: http.StatusBadRequest, expectedError: "VALIDATION_ERROR"},
		{name: "Email taken", requestBody: map[string]interface{}{"email": "budi@internal.local"}, expectedStatus: http.StatusConflict, expectedError: "EMAIL_EXISTS"},
		{name: "Password without current password", requestBody: map[string]interface{}{"password": "new-password"}, expectedStatus: http.StatusBadRequest, expectedError: "INVALID_CURRENT_PASSWORD"},
		{name: "Password change", requestBody: map[string]interface{}{"password": "new-password", "current_password": "correct-horse"}, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(router, http.MethodPut, "/api/v1/users/me", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(decodeResponse(t, w)))
			}
		})
	}

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, "Sari Dewi", stored.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new-password")))
}

func TestUserManagement(t *testing.T) {
	db := setupTestDB(t)
	superadmin := createTestUser(t, db, "superadmin", models.RoleSuperAdmin)
	ctl := NewUserController(db, nil, nil)

	router := setupTestRouter()
	group := router.Group("/api/v1", mockCurrentUser(superadmin))
	group.GET("/users", ctl.ListUsers)
	group.POST("/users", ctl.CreateUser)
	group.PUT("/users/:id", ctl.UpdateUser)
	group.DELETE("/users/:id", ctl.DeleteUser)

	w := performJSON(router, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"name": "Budi Santoso", "password": "workshop-1", "role": "WORKER",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "budisantoso", created["username"])
	assert.Equal(t, "budisantoso@internal.local", created["email"])
	assert.Equal(t, true, created["is_active"])
	id := created["id"].(string)

	w = performJSON(router, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"name": "Budi  Santoso", "email": "budi.s@example.com", "password": "workshop-1", "role": "ADMIN",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "budisantoso2", decodeResponse(t, w)["data"].(map[string]interface{})["username"])

	w = performJSON(router, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"name": "Ani", "password": "workshop-1", "role": "OWNER",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodPost, "/api/v1/users", map[string]interface{}{
		"name": "Ani", "password": "short", "role": "WORKER",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeResponse(t, w)["data"].([]interface{}), 3)

	w = performJSON(router, http.MethodPut, "/api/v1/users/"+id, map[string]interface{}{"role": "ADMIN", "is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "ADMIN", updated["role"])
	assert.Equal(t, false, updated["is_active"])

	w = performJSON(router, http.MethodPut, "/api/v1/users/"+superadmin.ID.String(), map[string]interface{}{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodDelete, "/api/v1/users/"+superadmin.ID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodDelete, "/api/v1/users/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodDelete, "/api/v1/users/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", errorCode(decodeResponse(t, w)))

	w = performJSON(router, http.MethodPut, "/api/v1/users/"+id, map[string]interface{}{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeriveUsername(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"Budi Santoso", "budisantoso"},
		{"  Sari   Dewi ", "saridewi"},
		{"ANI", "ani"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveUsername(tt.name))
		})
	}
}
