package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/metrics"
)

func TestSPAHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.NoRoute(spaHandler(fstest.MapFS{
		"index.html":       {Data: []byte("<html>app</html>")},
		"assets/app.js":    {Data: []byte("console.log(1)")},
		"assets/style.css": {Data: []byte("body{}")},
	}))

	tests := []struct {
		path   string
		status int
		body   string
		cached bool
	}{
		{"/", http.StatusOK, "<html>app</html>", false},
		{"/assets/app.js", http.StatusOK, "console.log(1)", true},
		{"/mitglieder/12/finanzen", http.StatusOK, "<html>app</html>", false},
		{"/api/v1/unknown", http.StatusNotFound, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Errorf("body = %q", w.Body.String())
			}
			if cached := w.Header().Get("Cache-Control") != ""; cached != tc.cached {
				t.Errorf("cache header = %q", w.Header().Get("Cache-Control"))
			}
		})
	}
}

func TestRouterMountsRoutes(t *testing.T) {
	conn, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	cfg := &db.Config{Mode: "release"}
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"

	r := newRouter(cfg, conn, zerolog.Nop(), metrics.New())

	mounted := map[string]bool{}
	for _, rt := range r.Routes() {
		mounted[rt.Method+" "+rt.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/addresses",
		"GET /api/v1/me/addresses",
		"POST /api/v1/family-links",
		"GET /api/v1/me/family",
		"POST /api/v1/donations/:protocol_id/book",
		"GET /api/v1/legal-data/expiring",
		"POST /api/v1/transit-items/:item_id/close",
		"GET /api/v1/transit-items/recipients",
		"POST /api/v1/events/:event_id/payments",
		"DELETE /api/v1/event-payments/:event_payment_id",
	} {
		if !mounted[want] {
			t.Errorf("route %s not mounted", want)
		}
	}
}
