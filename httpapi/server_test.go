package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fragmenter/mp4frag"
)

func newTestServer(t *testing.T) (*Server, *mp4frag.Stream) {
	t.Helper()
	stream := mp4frag.New(mp4frag.Config{HLSBase: "test"})
	return New(stream, nil, "test", ""), stream
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestInitBeforeReadyReturns503(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/init-test.mp4", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPlaylistBeforeReadyReturns503(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/test.m3u8", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestSegmentNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/test3.m4s", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAdminStatsRequiresToken(t *testing.T) {
	stream := mp4frag.New(mp4frag.Config{HLSBase: "test"})
	s := New(stream, nil, "test", "secret-token")

	req := httptest.NewRequest("GET", "/admin/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	req2 := httptest.NewRequest("GET", "/admin/stats", nil)
	req2.Header.Set("Authorization", "Bearer secret-token")
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("status with valid token = %d, want 200", rec2.Code)
	}
	if !strings.Contains(rec2.Body.String(), "sequence=") {
		t.Fatalf("unexpected stats body: %q", rec2.Body.String())
	}
}

func TestAdminStatsUnauthedWhenNoTokenConfigured(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest("GET", "/admin/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (auth disabled)", rec.Code)
	}
}

func TestSpecRoutesRequireTokenWhenConfigured(t *testing.T) {
	stream := mp4frag.New(mp4frag.Config{HLSBase: "test"})
	s := New(stream, nil, "test", "secret-token")

	routes := []string{"/init-test.mp4", "/test.m3u8", "/test3.m4s", "/s.mp4"}
	for _, path := range routes {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token = %d, want 401", path, rec.Code)
		}
	}

	// /healthz is the one route left open regardless of API_TOKEN.
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz without token = %d, want 200", rec.Code)
	}
}

func TestInitWithValidTokenPassesAuthGate(t *testing.T) {
	stream := mp4frag.New(mp4frag.Config{HLSBase: "test"})
	s := New(stream, nil, "test", "secret-token")

	req := httptest.NewRequest("GET", "/init-test.mp4", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	// Auth passes, so the request reaches handleInit; init isn't ready
	// yet, so it reports 503, not 401.
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (auth passed, init not ready)", rec.Code)
	}
}
