package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"verein-backend/internal/club/addresses"
	"verein-backend/internal/club/associations"
	"verein-backend/internal/club/events"
	"verein-backend/internal/club/families"
	"verein-backend/internal/club/legal"
	"verein-backend/internal/club/members"
	"verein-backend/internal/correspondence/letters"
	"verein-backend/internal/correspondence/messages"
	"verein-backend/internal/finance/bank"
	"verein-backend/internal/finance/cashbook"
	"verein-backend/internal/finance/claims"
	"verein-backend/internal/finance/credits"
	"verein-backend/internal/finance/donations"
	"verein-backend/internal/finance/payments"
	"verein-backend/internal/finance/reports"
	"verein-backend/internal/finance/transit"
	"verein-backend/internal/pagenotes"
	_ "verein-backend/internal/platform/apidocs"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/auth"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/mail"
	"verein-backend/internal/platform/metrics"
	"verein-backend/internal/platform/web"
)

func newRouter(cfg *db.Config, conn *sql.DB, logger zerolog.Logger, m *metrics.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(web.RequestID(), web.Logger(logger), gin.Recovery(), m.Middleware())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// the web client runs on its own dev server
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "Location", "X-Request-ID"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := conn.PingContext(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", m.Handler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// services
	authSvc := auth.NewService(conn, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	associationsSvc := associations.NewService(conn)
	membersSvc := members.NewService(conn)
	addressesSvc := addresses.NewService(conn)
	familiesSvc := families.NewService(conn)
	legalSvc := legal.NewService(conn)
	claimsSvc := claims.NewService(conn)
	paymentsSvc := payments.NewService(conn, m)
	creditsSvc := credits.NewService(conn, m)
	bankSvc := bank.NewService(conn, paymentsSvc, m)
	cashbookSvc := cashbook.NewService(conn)
	donationsSvc := donations.NewService(conn)
	transitSvc := transit.NewService(conn)
	reportsSvc := reports.NewService(conn, bankSvc)
	messagesSvc := messages.NewService(conn)
	lettersSvc := letters.NewService(conn, messagesSvc, mail.New(cfg.Mail), m)
	eventsSvc := events.NewService(conn, paymentsSvc)
	notesSvc := pagenotes.NewService(conn)

	api := r.Group("/api/v1")
	auth.RegisterPublicRoutes(api, authSvc)

	authed := api.Group("", auth.RequireAuth(authSvc.Secret()))
	auth.RegisterRoutes(authed, authSvc)
	associations.RegisterRoutes(authed, associationsSvc)
	pagenotes.RegisterRoutes(authed, notesSvc)

	staff := authed.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDernek))
	members.RegisterRoutes(staff, membersSvc)
	addresses.RegisterRoutes(staff, addressesSvc)
	families.RegisterRoutes(staff, familiesSvc)
	legal.RegisterRoutes(staff, legalSvc)
	claims.RegisterRoutes(staff, claimsSvc)
	payments.RegisterRoutes(staff, paymentsSvc)
	credits.RegisterRoutes(staff, creditsSvc)
	bank.RegisterRoutes(staff, bankSvc)
	cashbook.RegisterRoutes(staff, cashbookSvc)
	donations.RegisterRoutes(staff, donationsSvc)
	transit.RegisterRoutes(staff, transitSvc)
	reports.RegisterRoutes(staff, reportsSvc)
	messages.RegisterRoutes(staff, messagesSvc)
	letters.RegisterRoutes(staff, lettersSvc)
	events.RegisterRoutes(staff, eventsSvc)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	cashbook.RegisterAdminRoutes(admin, cashbookSvc)
	pagenotes.RegisterAdminRoutes(admin, notesSvc)

	self := authed.Group("", auth.RequireRole(auth.RoleMitglied))
	members.RegisterSelfRoutes(self, membersSvc)
	addresses.RegisterSelfRoutes(self, addressesSvc)
	families.RegisterSelfRoutes(self, familiesSvc)
	claims.RegisterSelfRoutes(self, claimsSvc)
	payments.RegisterSelfRoutes(self, paymentsSvc)
	credits.RegisterSelfRoutes(self, creditsSvc)
	reports.RegisterSelfRoutes(self, reportsSvc)
	messages.RegisterSelfRoutes(self, messagesSvc)
	events.RegisterSelfRoutes(self, eventsSvc)

	if cfg.Server.StaticDir != "" {
		r.NoRoute(spaHandler(os.DirFS(cfg.Server.StaticDir)))
	}
	return r
}

var errNoRoute = apierr.NotFound("no such endpoint")

// spaHandler serves the built web client and falls back to index.html for
// client side routes. /api paths are never rewritten.
func spaHandler(files fs.FS) gin.HandlerFunc {
	fileFS := http.FS(files)
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			web.Fail(c, errNoRoute)
			return
		}
		reqPath := strings.TrimPrefix(c.Request.URL.Path, "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		f, err := fileFS.Open(reqPath)
		if err != nil {
			reqPath = "index.html"
			if f, err = fileFS.Open(reqPath); err != nil {
				c.Status(http.StatusNotFound)
				return
			}
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			c.Status(http.StatusNotFound)
			return
		}
		if ct := mime.TypeByExtension(path.Ext(reqPath)); ct != "" {
			c.Header("Content-Type", ct)
		}
		if reqPath != "index.html" {
			c.Header("Cache-Control", "public, max-age=86400, immutable")
		}
		http.ServeContent(c.Writer, c.Request, reqPath, info.ModTime(), f)
	}
}

func serve(cfg *db.Config, conn *sql.DB, logger zerolog.Logger) error {
	m := metrics.New()
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, conn, logger, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled() {
			dir := fmt.Sprintf("config/tls/%s", cfg.Mode)
			logger.Info().Str("addr", srv.Addr).Msg("listening (https)")
			err = srv.ListenAndServeTLS(path.Join(dir, cfg.Certificate.Cert), path.Join(dir, cfg.Certificate.Key))
		} else {
			logger.Warn().Str("addr", srv.Addr).Msg("listening (plain http, no certificate configured)")
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
