package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yunusmujadidi/purchase-order/config"
	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/metrics"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "correct-horse"

// RouterTestSuite drives the assembled router over real HTTP with locally issued tokens
type RouterTestSuite struct {
	suite.Suite
	server    *httptest.Server
	db        *gorm.DB
	previous  *gorm.DB
	hub       *services.Hub
	collector *metrics.Collector
}

func (s *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		GoEnv:              "test",
		JWTSecret:          "routes-test-secret",
		JWTIssuer:          "purchase-order-api",
		JWTAudience:        "purchase-order",
		TokenTTL:           time.Hour,
		Timezone:           "UTC",
		CORSAllowedOrigins: []string{"*"},
	}

	db, err := config.OpenDatabase(":memory:", "silent")
	s.Require().NoError(err)
	s.Require().NoError(config.Migrate(db))
	s.db = db
	s.previous = config.GetDB()
	config.SetDB(db)

	loc := cfg.Location()
	images := services.NewMockImageService()
	s.hub = services.NewHub(cfg.CORSAllowedOrigins)
	s.collector = metrics.NewCollector()
	orders := repository.NewOrderRepository(db)

	router := SetupRouter(Dependencies{
		Config:   cfg,
		DB:       db,
		Orders:   orders,
		Service:  services.NewOrderService(orders, s.hub, images, loc),
		Importer: services.NewImportService(orders, ingest.DefaultLayout(), loc, s.collector, s.hub),
		Images:   images,
		Hub:      s.hub,
		Metrics:  s.collector,
		Tokens:   services.NewTokenService(cfg),
	})
	s.server = httptest.NewServer(router)
}

func (s *RouterTestSuite) TearDownSuite() {
	s.server.Close()
	config.SetDB(s.previous)
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (s *RouterTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM order_activities")
	s.db.Exec("DELETE FROM orders")
	s.db.Exec("DELETE FROM users")
}

func (s *RouterTestSuite) createUser(username, role string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	s.Require().NoError(err)

	user := &models.User{
		Username:     username,
		Email:        username + "@internal.local",
		Name:         username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

// login creates a user and returns a bearer token for it
func (s *RouterTestSuite) login(username, role string) string {
	s.createUser(username, role)

	status, body := s.request(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"identifier": username,
		"password":   testPassword,
	})
	s.Require().Equal(http.StatusOK, status, body)

	data := body["data"].(map[string]interface{})
	token, ok := data["access_token"].(string)
	s.Require().True(ok)
	return token
}

func (s *RouterTestSuite) request(method, path, token string, payload interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var body map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func (s *RouterTestSuite) createOrder(token, client string) map[string]interface{} {
	status, body := s.request(http.MethodPost, "/api/v1/orders", token, map[string]interface{}{
		"client_name":  client,
		"product_name": "Dining Chair",
		"quantity":     4,
	})
	s.Require().Equal(http.StatusCreated, status, body)
	return body["data"].(map[string]interface{})
}

func errorCode(body map[string]interface{}) string {
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func (s *RouterTestSuite) TestHealthIsPublic() {
	status, body := s.request(http.MethodGet, "/api/v1/health", "", nil)

	s.Equal(http.StatusOK, status)
	s.Equal(true, body["success"])
}

func (s *RouterTestSuite) TestOrdersRequireToken() {
	status, body := s.request(http.MethodGet, "/api/v1/orders", "", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("INVALID_TOKEN", errorCode(body))

	status, body = s.request(http.MethodGet, "/api/v1/orders", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("INVALID_TOKEN", errorCode(body))
}

func (s *RouterTestSuite) TestLoginCreateAndListOrders() {
	token := s.login("sari", models.RoleAdmin)

	created := s.createOrder(token, "Hotel Mulia")
	s.True(strings.HasPrefix(created["order_number"].(string), "ORD-"))
	s.Equal("PENDING", created["current_stage"])

	status, body := s.request(http.MethodGet, "/api/v1/orders?search=Mulia", token, nil)
	s.Require().Equal(http.StatusOK, status, body)
	orders := body["data"].([]interface{})
	s.Len(orders, 1)

	status, body = s.request(http.MethodGet, "/api/v1/orders/"+created["id"].(string)+"/activity", token, nil)
	s.Require().Equal(http.StatusOK, status, body)
	s.NotEmpty(body["data"])
}

func (s *RouterTestSuite) TestAccessTokenQueryParameter() {
	token := s.login("sari", models.RoleAdmin)

	status, _ := s.request(http.MethodGet, "/api/v1/orders?access_token="+token, "", nil)
	s.Equal(http.StatusOK, status)
}

func (s *RouterTestSuite) TestWorkerPermissions() {
	admin := s.login("sari", models.RoleAdmin)
	worker := s.login("budi", models.RoleWorker)

	order := s.createOrder(worker, "Villa Canggu")
	path := "/api/v1/orders/" + order["id"].(string)

	status, body := s.request(http.MethodPatch, path+"/stage", worker, map[string]string{"stage": "METAL"})
	s.Equal(http.StatusOK, status, body)

	status, body = s.request(http.MethodDelete, path, worker, nil)
	s.Equal(http.StatusForbidden, status)
	s.Equal("FORBIDDEN", errorCode(body))

	status, body = s.request(http.MethodPost, "/api/v1/orders/import", worker, nil)
	s.Equal(http.StatusForbidden, status)
	s.Equal("FORBIDDEN", errorCode(body))

	status, _ = s.request(http.MethodDelete, path, admin, nil)
	s.Equal(http.StatusOK, status)
}

func (s *RouterTestSuite) TestUserManagementRequiresSuperAdmin() {
	admin := s.login("sari", models.RoleAdmin)
	superadmin := s.login("root", models.RoleSuperAdmin)

	status, body := s.request(http.MethodGet, "/api/v1/users", admin, nil)
	s.Equal(http.StatusForbidden, status)
	s.Equal("FORBIDDEN", errorCode(body))

	status, body = s.request(http.MethodGet, "/api/v1/users", superadmin, nil)
	s.Require().Equal(http.StatusOK, status, body)
	s.Len(body["data"], 2)

	status, body = s.request(http.MethodGet, "/api/v1/users/me", admin, nil)
	s.Require().Equal(http.StatusOK, status, body)
	s.Equal("sari", body["data"].(map[string]interface{})["username"])
}

func (s *RouterTestSuite) TestDeactivatedUserIsRejected() {
	token := s.login("budi", models.RoleWorker)
	s.Require().NoError(s.db.Model(&models.User{}).Where("username = ?", "budi").Update("is_active", false).Error)

	status, body := s.request(http.MethodGet, "/api/v1/orders", token, nil)
	s.Equal(http.StatusForbidden, status)
	s.Equal("ACCOUNT_DISABLED", errorCode(body))
}

func (s *RouterTestSuite) TestOrderEventsStream() {
	token := s.login("sari", models.RoleAdmin)

	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/v1/orders/events?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	defer conn.Close()
	s.Require().Eventually(func() bool { return s.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	created := s.createOrder(token, "Hotel Mulia")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event services.OrderEvent
	s.Require().NoError(conn.ReadJSON(&event))
	s.Equal(services.EventOrderCreated, event.Type)
	s.Equal(created["order_number"], event.OrderNumber)
}

func (s *RouterTestSuite) TestMetricsEndpoint() {
	s.request(http.MethodGet, "/api/v1/health", "", nil)

	resp, err := http.Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(raw), `http_requests_total{method="GET",route="/api/v1/health",status="200"}`)
}

func (s *RouterTestSuite) TestCORSPreflight() {
	req, err := http.NewRequest(http.MethodOptions, s.server.URL+"/api/v1/orders", nil)
	s.Require().NoError(err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()

	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestCorsConfig(t *testing.T) {
	tests := []struct {
		name            string
		origins         []string
		allowAll        bool
		allowCredential bool
	}{
		{name: "wildcard", origins: []string{"http://a.test", "*"}, allowAll: true},
		{name: "empty list", origins: nil, allowAll: true},
		{name: "explicit origins", origins: []string{"http://a.test"}, allowCredential: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := corsConfig(tt.origins)

			assert.Equal(t, tt.allowAll, c.AllowAllOrigins)
			assert.Equal(t, tt.allowCredential, c.AllowCredentials)
			assert.NoError(t, c.Validate())
			if !tt.allowAll {
				assert.Equal(t, tt.origins, c.AllowOrigins)
			}
		})
	}
}
