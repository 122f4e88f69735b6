package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/splitledger/backend/internal/database"
	"github.com/splitledger/backend/internal/events"
	"github.com/splitledger/backend/internal/metrics"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/models"
	"github.com/splitledger/backend/internal/services"
	"github.com/splitledger/backend/internal/storage"
	"github.com/splitledger/backend/pkg/logger"
	"github.com/splitledger/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	store  *storage.MemoryStore
	events *events.MemoryPublisher
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.SetOutput(io.Discard)
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}
	for _, c := range []models.Currency{{Name: "US Dollar", Symbol: "$"}, {Name: "Euro", Symbol: "€"}} {
		c := c
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("failed seeding currency: %v", err)
		}
	}

	registry := prometheus.NewRegistry()
	publisher := events.NewMemoryPublisher()
	store := storage.NewMemoryStore()

	app := fiber.New()
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	RegisterRoutes(app, Deps{
		DB:         db,
		Membership: services.NewMembershipService(db),
		Ledger:     services.NewLedgerService(db, publisher, metrics.NewLedger(registry)),
		Summary:    services.NewSummaryService(db),
		Store:      store,
		Gatherer:   registry,
	})

	return &testEnv{app: app, db: db, store: store, events: publisher}
}

func createTestUser(t *testing.T, db *gorm.DB, name string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@test.com", name),
		PasswordHash: hash,
		CurrencyID:   models.DefaultCurrencyID,
		Timezone:     "UTC",
		Language:     models.DefaultLanguage,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

// createGroupWith creates a group owned by owner and has every member accept.
func createGroupWith(t *testing.T, env *testEnv, name string, ownerToken string, members map[uint64]string) uint64 {
	t.Helper()

	ids := make([]uint64, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/groups/", map[string]any{
		"name":    name,
		"members": ids,
	}, authHeaders(ownerToken))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusCreated)
	groupID := uint64(body["data"].(map[string]any)["id"].(float64))

	for _, token := range members {
		resp := performRequest(t, env.app, http.MethodPost, fmt.Sprintf("/api/groups/%d/accept", groupID), nil, authHeaders(token))
		resp.Body.Close()
		assertStatus(t, resp, http.StatusOK)
	}
	return groupID
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
