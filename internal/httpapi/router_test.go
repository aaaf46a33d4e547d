package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/blackjack"
	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/qtable"
	"github.com/rs/zerolog"
)

func readyService(t *testing.T) *advisor.Service {
	t.Helper()
	tbl := qtable.New()
	tbl.Set(blackjack.State{PlayerTotal: 16, DealerUpcard: 10}, qtable.Values{-0.5, -0.55})
	tbl.Set(blackjack.State{PlayerTotal: 18, UsableAce: 1, DealerUpcard: 9}, qtable.Values{-0.1, 0.2})
	svc := advisor.NewService()
	if err := svc.Load(tbl, "v-test", "store"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := Router(advisor.NewService(), zerolog.Nop())
	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body["ok"] || body["ready"] {
		t.Fatalf("expected ok without table, got %v", body)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header")
	}
}

func TestAdviseFromTable(t *testing.T) {
	h := Router(readyService(t), zerolog.Nop())
	rec := do(t, h, http.MethodPost, "/advise", `{"player_total":16,"dealer_upcard":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var adv advisor.Advice
	if err := json.Unmarshal(rec.Body.Bytes(), &adv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if adv.Advice != blackjack.Hit || adv.Source != "q-table" || adv.State != [3]int{16, 0, 10} {
		t.Fatalf("unexpected advice %+v", adv)
	}
	if adv.Q.Hit != -0.5 || adv.Q.Stand != -0.55 {
		t.Fatalf("unexpected q %+v", adv.Q)
	}

	rec = do(t, h, http.MethodPost, "/advise", `{"player_total":18,"dealer_upcard":9,"usable_ace":1}`)
	if err := json.Unmarshal(rec.Body.Bytes(), &adv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if adv.Advice != blackjack.Stand {
		t.Fatalf("expected Stand on soft 18, got %v", adv.Advice)
	}
}

func TestAdviseFallback(t *testing.T) {
	h := Router(readyService(t), zerolog.Nop())
	rec := do(t, h, http.MethodPost, "/advise", `{"player_total":25,"dealer_upcard":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var adv advisor.Advice
	if err := json.Unmarshal(rec.Body.Bytes(), &adv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if adv.Advice != blackjack.Stand || adv.Source != "fallback" {
		t.Fatalf("expected fallback Stand, got %+v", adv)
	}
}

func TestAdviseMalformed(t *testing.T) {
	h := Router(readyService(t), zerolog.Nop())
	for _, body := range []string{`{`, `{"player_total":"sixteen"}`, ``} {
		rec := do(t, h, http.MethodPost, "/advise", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestAdviseMissingFields(t *testing.T) {
	h := Router(readyService(t), zerolog.Nop())
	for _, body := range []string{
		`{}`,
		`null`,
		`{"player_total":16}`,
		`{"dealer_upcard":10}`,
		`{"usable_ace":1}`,
	} {
		rec := do(t, h, http.MethodPost, "/advise", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d: %s", body, rec.Code, rec.Body)
		}
	}

	rec := do(t, h, http.MethodPost, "/advise", `{"player_total":0,"dealer_upcard":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("explicit zero values are present, expected 200, got %d", rec.Code)
	}
}

func TestAdviseNotReady(t *testing.T) {
	h := Router(advisor.NewService(), zerolog.Nop())
	rec := do(t, h, http.MethodPost, "/advise", `{"player_total":12,"dealer_upcard":5}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no table loaded") {
		t.Fatalf("expected explicit error, got %s", rec.Body)
	}
}

func TestVersion(t *testing.T) {
	rec := do(t, Router(advisor.NewService(), zerolog.Nop()), http.MethodGet, "/version", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before load, got %d", rec.Code)
	}
	rec = do(t, Router(readyService(t), zerolog.Nop()), http.MethodGet, "/version", "")
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["version_id"] != "v-test" || body["origin"] != "store" {
		t.Fatalf("unexpected version body %v", body)
	}
}

func TestPreflight(t *testing.T) {
	rec := do(t, Router(advisor.NewService(), zerolog.Nop()), http.MethodOptions, "/advise", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected allowed methods")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, Router(advisor.NewService(), zerolog.Nop()), http.MethodGet, "/advise", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
