package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/splitledger/backend/internal/models"
)

func multipartImage(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed creating multipart part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed writing multipart data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestAuthEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	var token string

	t.Run("POST /api/auth/register creates user with defaults", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"name":     "Carol",
			"email":    "Carol@Test.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		data := body["data"].(map[string]any)
		token, _ = data["token"].(string)
		if token == "" {
			t.Fatalf("expected token in register response")
		}
		user := data["user"].(map[string]any)
		if user["email"] != "carol@test.com" {
			t.Fatalf("expected normalized email, got %v", user["email"])
		}
		if _, leaked := user["passwordHash"]; leaked {
			t.Fatalf("password hash must not be serialized")
		}
	})

	t.Run("POST /api/auth/register duplicate email conflicts", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"name":     "Carol Again",
			"email":    "carol@test.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusConflict)
		assertEnvelopeError(t, body, "email already registered")
	})

	t.Run("POST /api/auth/register short password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]any{
			"name":     "Dan",
			"email":    "dan@test.com",
			"password": "short",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "password must be at least 8 characters")
	})

	t.Run("POST /api/auth/login valid credentials", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"email":    "carol@test.com",
			"password": "password123",
		}, nil)
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	})

	t.Run("POST /api/auth/login wrong password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"email":    "carol@test.com",
			"password": "wrong-password",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "invalid credentials")
	})

	t.Run("GET /api/auth/me without token", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "please login to continue")
	})

	t.Run("PUT /api/auth/me updates currency and timezone", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/me", map[string]any{
			"currencyId": 2,
			"timezone":   "Europe/Berlin",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["currencyID"].(float64) != 2 || data["timezone"] != "Europe/Berlin" {
			t.Fatalf("profile not updated: %+v", data)
		}
	})

	t.Run("PUT /api/auth/me unknown currency", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/me", map[string]any{
			"currencyId": 99,
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "unknown currency")
	})

	t.Run("PUT /api/auth/me invalid timezone", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/auth/me", map[string]any{
			"timezone": "Mars/Olympus",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "invalid timezone")
	})

	t.Run("PUT /api/auth/me/image stores image", func(t *testing.T) {
		buf, contentType := multipartImage(t, "me.PNG", "image/png", []byte("png-bytes"))
		resp := performRequest(t, env.app, http.MethodPut, "/api/auth/me/image", buf, map[string]string{
			"Authorization": "Bearer " + token,
			"Content-Type":  contentType,
		})
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		key, _ := data["image"].(string)
		if !strings.HasPrefix(key, "users/") || !strings.HasSuffix(key, ".png") {
			t.Fatalf("unexpected image key %q", key)
		}
		if !env.store.Has(key) {
			t.Fatalf("expected image %q in object store", key)
		}
		if data["imageUrl"] != "memory://"+key {
			t.Fatalf("expected presigned url, got %v", data["imageUrl"])
		}

		var user models.User
		if err := env.db.First(&user, "email = ?", "carol@test.com").Error; err != nil {
			t.Fatalf("failed loading user: %v", err)
		}
		if user.Image == nil || *user.Image != key {
			t.Fatalf("expected stored image key %q, got %v", key, user.Image)
		}
	})

	t.Run("PUT /api/auth/me/image rejects non-image", func(t *testing.T) {
		buf, contentType := multipartImage(t, "notes.txt", "text/plain", []byte("hello"))
		resp := performRequest(t, env.app, http.MethodPut, "/api/auth/me/image", buf, map[string]string{
			"Authorization": "Bearer " + token,
			"Content-Type":  contentType,
		})
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "file must be an image")
	})
}
