package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesGauges(t *testing.T) {
	m := New()
	m.PlayersOnline.Set(3)
	m.TickMSPT.Set(12.5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "voxelmp_players_online 3") {
		t.Errorf("body missing players_online gauge value:\n%s", body)
	}
}
