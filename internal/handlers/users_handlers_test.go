package handlers

import (
	"net/http"
	"testing"
)

func TestUsersEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "alice")
	bob, _ := createTestUser(t, env.db, "bob")
	_, _ = createTestUser(t, env.db, "alicia")

	t.Run("GET /api/users/search excludes the caller", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/users/search?keyword=ali", nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("expected only alicia, got %d results", len(data))
		}
		if id := uint64(data[0].(map[string]any)["id"].(float64)); id == alice.ID {
			t.Fatalf("search returned the caller")
		}
	})

	t.Run("GET /api/users/search matches email", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/users/search?keyword=BOB@TEST", nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 || uint64(data[0].(map[string]any)["id"].(float64)) != bob.ID {
			t.Fatalf("expected bob, got %+v", data)
		}
	})

	t.Run("GET /api/users/search empty keyword returns nothing", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/users/search", nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if data := body["data"].([]any); len(data) != 0 {
			t.Fatalf("expected empty result, got %d", len(data))
		}
	})

	t.Run("GET /api/users/search requires auth", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/users/search?keyword=bob", nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "please login to continue")
	})

	t.Run("GET /api/currencies lists seeded currencies", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/currencies", nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if data := body["data"].([]any); len(data) != 2 {
			t.Fatalf("expected 2 currencies, got %d", len(data))
		}
	})
}
