package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"scholars/api/internal/scholar"
	"scholars/api/internal/share"
)

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestSufferingScenario(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	rr := doJSON(t, handler, http.MethodPost, "/api/share", map[string]any{
		"question":   "What is suffering?",
		"traditions": []string{"Buddhist", "Taoist"},
		"answers": []map[string]string{
			{"tradition": "Buddhist", "answer": "Dukkha arises from craving."},
			{"tradition": "Taoist", "answer": "Suffering comes from resisting the Tao."},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeResponse[share.Snapshot](t, rr)
	if len(created.Slug) != share.SlugLength {
		t.Fatalf("unexpected slug %q", created.Slug)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/share/"+created.Slug, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resolved := decodeResponse[map[string]any](t, rr)
	for _, key := range []string{"slug", "question", "traditions", "answers", "created_at"} {
		if _, ok := resolved[key]; !ok {
			t.Fatalf("response missing %q: %v", key, resolved)
		}
	}
	if resolved["question"] != "What is suffering?" {
		t.Fatalf("unexpected question %v", resolved["question"])
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/shares", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	summaries := decodeResponse[[]map[string]any](t, rr)
	if len(summaries) != 1 || summaries[0]["slug"] != created.Slug {
		t.Fatalf("unexpected listing %v", summaries)
	}
	if _, ok := summaries[0]["answers"]; ok {
		t.Fatal("summaries must not carry answers")
	}
}

func TestGetUnknownShare(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/share/nope123", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	body := decodeResponse[map[string]any](t, rr)
	if body["code"] != "NOT_FOUND" || body["error"] != "Share not found" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestCreateShareRejectsBadBodies(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"malformed json", `{"question":`, http.StatusBadRequest, "INVALID_BODY"},
		{"unknown field", `{"question":"What is suffering?","traditions":["Buddhist"],"answers":[],"extra":1}`, http.StatusBadRequest, "INVALID_BODY"},
		{"trailing data", `{"question":"x"} {"question":"y"}`, http.StatusBadRequest, "INVALID_BODY"},
		{"empty body", nil, http.StatusBadRequest, "INVALID_BODY"},
		{"no traditions", map[string]any{"question": "What is suffering?", "traditions": []string{}, "answers": []any{}}, http.StatusUnprocessableEntity, "INVALID_SNAPSHOT"},
		{"eight traditions", map[string]any{"question": "What is suffering?", "traditions": share.Traditions[:8], "answers": []any{}}, http.StatusUnprocessableEntity, "INVALID_SNAPSHOT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, handler, http.MethodPost, "/api/share", tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			body := decodeResponse[map[string]any](t, rr)
			if body["code"] != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, body["code"])
			}
		})
	}
	if env.shares.Len() != 0 {
		t.Fatalf("nothing should be stored, got %d", env.shares.Len())
	}
}

func TestAskEndpoint(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	rr := doJSON(t, handler, http.MethodPost, "/api/ask", AskInput{Question: "What is love?", Traditions: []string{"Sikh", "Hindu"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	result := decodeResponse[AskResult](t, rr)
	if result.Slug == "" || len(result.Answers) != 2 || result.Answers[0].Tradition != "Sikh" {
		t.Fatalf("unexpected result %+v", result)
	}
	env.waitArchived(t, result.Slug)
}

func TestAskEndpointProviderErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"timeout", &scholar.TraditionError{Tradition: "Hindu", Err: scholar.ErrTimeout}, http.StatusGatewayTimeout, "Hindu response timed out"},
		{"failure", &scholar.TraditionError{Tradition: "Hindu", Err: scholar.ErrProvider}, http.StatusBadGateway, "LLM call failed for Hindu: answer provider failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.answers.askFn = func(context.Context, string, string, []string) ([]share.Answer, error) {
				return nil, tc.err
			}
			handler := NewHTTPServer(env.service, "*", nil).Handler()

			rr := doJSON(t, handler, http.MethodPost, "/api/ask", AskInput{Question: "What is love?", Traditions: []string{"Hindu"}})
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			body := decodeResponse[map[string]any](t, rr)
			if body["error"] != tc.msg {
				t.Fatalf("unexpected message %v", body["error"])
			}
			details, _ := body["details"].(map[string]any)
			if details["tradition"] != "Hindu" {
				t.Fatalf("expected tradition detail, got %v", body["details"])
			}
		})
	}
}

func TestListSharesQueryValidation(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	if rr := doJSON(t, handler, http.MethodGet, "/api/shares?limit=abc", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rr.Code)
	}
	if rr := doJSON(t, handler, http.MethodGet, "/api/shares?before=unknown", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown cursor, got %d", rr.Code)
	}
	rr := doJSON(t, handler, http.MethodGet, "/api/shares", nil)
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestListSharesIsPaged(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	total := share.DefaultListLimit + 5
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < total; i++ {
		snapshot := share.Snapshot{
			Slug:       fmt.Sprintf("page%04d", i),
			Question:   "What is suffering?",
			Traditions: []string{"Buddhist"},
			Answers:    []share.Answer{{Tradition: "Buddhist", Answer: "Dukkha."}},
			CreatedAt:  start.Add(time.Duration(i) * time.Minute),
		}
		if err := env.shares.InsertShare(context.Background(), snapshot); err != nil {
			t.Fatalf("insert %s: %v", snapshot.Slug, err)
		}
	}

	rr := doJSON(t, handler, http.MethodGet, "/api/shares", nil)
	first := decodeResponse[[]ShareSummary](t, rr)
	if len(first) != share.DefaultListLimit {
		t.Fatalf("expected default page of %d, got %d", share.DefaultListLimit, len(first))
	}
	if first[0].Slug != fmt.Sprintf("page%04d", total-1) {
		t.Fatalf("expected newest first, got %s", first[0].Slug)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/shares?before="+first[len(first)-1].Slug, nil)
	rest := decodeResponse[[]ShareSummary](t, rr)
	if len(rest) != 5 || rest[len(rest)-1].Slug != "page0000" {
		t.Fatalf("expected the 5 oldest shares on the next page, got %+v", rest)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/shares?limit=10000", nil)
	if got := len(decodeResponse[[]ShareSummary](t, rr)); got != total {
		t.Fatalf("expected all %d shares under the cap, got %d", total, got)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.settings.settings.APIKey = ""
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/settings", nil)
	body := decodeResponse[map[string]any](t, rr)
	if body["has_api_key"] != false || body["last_updated"] != nil {
		t.Fatalf("unexpected settings %v", body)
	}

	rr = doJSON(t, handler, http.MethodPost, "/api/settings", map[string]string{"api_key": "short"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodPost, "/api/settings", map[string]string{"api_key": "sk-1234567890"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body = decodeResponse[map[string]any](t, rr)
	if body["has_api_key"] != true || body["last_updated"] == nil {
		t.Fatalf("unexpected settings %v", body)
	}
	if strings.Contains(rr.Body.String(), "sk-1234567890") {
		t.Fatal("settings response must never echo the key")
	}
}

func TestTraditionsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/traditions", nil)
	view := decodeResponse[TraditionsView](t, rr)
	if view.MaxSelection != share.MaxTraditions || len(view.Traditions) != len(share.Traditions) {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/shares/search?q=karma&limit=3", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeResponse[map[string]any](t, rr)
	if body["total"] != float64(1) || body["query"] != "karma" {
		t.Fatalf("unexpected search body %v", body)
	}

	if rr := doJSON(t, handler, http.MethodGet, "/api/shares/search", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", rr.Code)
	}
}

func TestRequestIDReplacesUnsafeValues(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	cases := []struct {
		name string
		id   string
		keep bool
	}{
		{"opaque token", "trace-01HZX9:abc/def", true},
		{"at length limit", strings.Repeat("a", 128), true},
		{"too long", strings.Repeat("a", 129), false},
		{"control byte", "req\x01id", false},
		{"newline", "req\nX-Injected: 1", false},
		{"space", "req 42", false},
		{"non-ascii", "réq-42", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header["X-Request-Id"] = []string{tc.id}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			got := rr.Header().Get("X-Request-ID")
			if tc.keep {
				if got != tc.id {
					t.Fatalf("expected %q echoed, got %q", tc.id, got)
				}
				return
			}
			if got == tc.id {
				t.Fatalf("expected %q to be replaced", tc.id)
			}
			if _, err := uuid.Parse(got); err != nil || len(got) != 36 {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}

func TestRequestIDAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/health", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected generated request id")
	}

	rr = doJSON(t, handler, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `scholars_http_requests_total{method="GET",route="/api/health",status="200"} 2`) {
		t.Fatalf("expected request counter in exposition, got:\n%s", rr.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHTTPServer(env.service, "*", nil).Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/nothing-here", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr = doJSON(t, handler, http.MethodDelete, "/api/share/abc1234", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
