package handlers

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/splitledger/backend/internal/events"
)

func TestLedgerEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "alice")
	bob, bobToken := createTestUser(t, env.db, "bob")
	carol, carolToken := createTestUser(t, env.db, "carol")
	_, outsiderToken := createTestUser(t, env.db, "outsider")

	groupID := createGroupWith(t, env, "Trip", aliceToken, map[uint64]string{
		bob.ID:   bobToken,
		carol.ID: carolToken,
	})

	t.Run("POST /api/expenses splits across members", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/expenses", map[string]any{
			"groupId":     groupID,
			"amount":      "300",
			"description": "Dinner",
		}, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		if got := body["data"].(map[string]any)["paidByUserID"].(float64); uint64(got) != alice.ID {
			t.Fatalf("expected alice as payer, got %v", got)
		}
		if msgs := env.events.ByTopic(events.TopicExpenseRecorded); len(msgs) != 1 {
			t.Fatalf("expected 1 expense event, got %d", len(msgs))
		}
	})

	t.Run("POST /api/expenses non-member forbidden", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/expenses", map[string]any{
			"groupId":     groupID,
			"amount":      "10",
			"description": "Snacks",
		}, authHeaders(outsiderToken))
		assertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()
	})

	t.Run("POST /api/expenses invalid amount", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/expenses", map[string]any{
			"groupId":     groupID,
			"amount":      "-5",
			"description": "Refund",
		}, authHeaders(aliceToken))
		assertStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	})

	t.Run("POST /api/expenses unknown group", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/expenses", map[string]any{
			"groupId":     9999,
			"amount":      "5",
			"description": "Lost",
		}, authHeaders(aliceToken))
		assertStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	})

	t.Run("GET /api/groups/:id/balances", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/groups/"+itoa(groupID)+"/balances", nil, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		statements := map[string]string{}
		for _, raw := range body["data"].([]any) {
			line := raw.(map[string]any)
			statements[line["name"].(string)] = line["groupStatement"].(string)
		}
		if statements["alice"] != "gets back $200.00" {
			t.Fatalf("unexpected alice statement %q", statements["alice"])
		}
		if statements["bob"] != "owes $100.00" || statements["carol"] != "owes $100.00" {
			t.Fatalf("unexpected statements %+v", statements)
		}
	})

	t.Run("GET /api/groups/:id/expenses", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/groups/"+itoa(groupID)+"/expenses", nil, authHeaders(carolToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 || data[0].(map[string]any)["description"] != "Dinner" {
			t.Fatalf("unexpected expense list %+v", data)
		}
	})

	t.Run("GET /api/debts shows counterparty statement", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/debts", nil, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("expected one debt line, got %d", len(data))
		}
		if got := data[0].(map[string]any)["statement"]; got != "you owe alice $100.00" {
			t.Fatalf("unexpected statement %v", got)
		}
	})

	t.Run("GET /api/activities paginates feed", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/activities?page=1&limit=5", nil, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("expected one activity, got %d", len(data))
		}
		item := data[0].(map[string]any)
		if item["message"] != `alice added "Dinner" in "Trip"` || item["statement"] != "you owe $100.00" {
			t.Fatalf("unexpected feed item %+v", item)
		}
		pagination := body["pagination"].(map[string]any)
		if pagination["total"].(float64) != 1 {
			t.Fatalf("expected total 1, got %v", pagination["total"])
		}
	})

	t.Run("GET /api/settle lists candidates", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/settle/", nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if data := body["data"].([]any); len(data) != 2 {
			t.Fatalf("expected bob and carol as candidates, got %d", len(data))
		}
	})

	t.Run("POST /api/settle zeroes debt", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/settle/", map[string]any{
			"userId": alice.ID,
		}, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		data := body["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("expected one settlement, got %d", len(data))
		}
		if msgs := env.events.ByTopic(events.TopicBalanceSettled); len(msgs) != 1 {
			t.Fatalf("expected 1 settlement event, got %d", len(msgs))
		}
	})

	t.Run("POST /api/settle again has nothing to settle", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/settle/", map[string]any{
			"userId": alice.ID,
		}, authHeaders(bobToken))
		assertStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	})

	t.Run("POST /api/settle requires userId", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/settle/", map[string]any{}, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "userId is required")
	})

	t.Run("GET /api/dashboard totals", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/dashboard", nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		totals := data["totals"].([]any)
		if len(totals) != 1 {
			t.Fatalf("expected one currency total, got %d", len(totals))
		}
		owed, _ := totals[0].(map[string]any)["youAreOwed"].(string)
		if !decimal.RequireFromString(owed).Equal(decimal.NewFromInt(100)) {
			t.Fatalf("expected alice to be owed 100 by carol, got %v", owed)
		}
	})

	t.Run("GET /metrics exposes ledger counters", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/metrics", nil, nil)
		assertStatus(t, resp, http.StatusOK)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("failed reading metrics: %v", err)
		}
		text := string(raw)
		for _, want := range []string{
			"splitledger_expenses_recorded_total 1",
			"splitledger_settlements_recorded_total 1",
		} {
			if !strings.Contains(text, want) {
				t.Fatalf("expected %q in metrics output", want)
			}
		}
	})

	t.Run("GET /health", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/health", nil, nil)
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	})
}
