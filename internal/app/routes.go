package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsbrief/core/internal/middleware"
	"github.com/newsbrief/core/internal/modules/archive"
	"github.com/newsbrief/core/internal/modules/subscription"
	"github.com/newsbrief/core/internal/pkg/captcha"
	"github.com/newsbrief/core/internal/pkg/mail"
	"github.com/newsbrief/core/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) { response.NotFound(c, "not found") })
	r.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	r.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{"name": a.cfg.Site.Title, "env": a.cfg.Env})
	})
	r.GET("/healthz", a.healthz)

	verifier := captcha.New(a.cfg.Captcha.Secret, a.cfg.Captcha.VerifyURL)
	sender := mail.New(mail.Config{
		Enable:       a.cfg.Mail.Enable,
		From:         a.cfg.Mail.From,
		TokenURL:     a.cfg.Mail.TokenURL,
		SendURL:      a.cfg.Mail.SendURL,
		ClientID:     a.cfg.Mail.ClientID,
		ClientSecret: a.cfg.Mail.ClientSecret,
		Scope:        a.cfg.Mail.Scope,
	})

	subSvc := subscription.NewService(a.db, a.cfg.DoubleOptIn)
	subHandler := subscription.NewHandler(subSvc, verifier, sender, a.logger,
		a.cfg.Site.BaseURL, a.cfg.Site.Title, a.cfg.LinkSecret)
	subHandler.RegisterRoutes(r,
		middleware.RateLimit(a.rc.Raw()),
		middleware.AdminSecret(a.cfg.AdminSecret))

	archiveSvc := archive.NewService(a.rc, a.blobs, a.cfg.ArchiveIndexKey, a.logger)
	archiveHandler := archive.NewHandler(archiveSvc, a.logger)
	archiveHandler.RegisterRoutes(r, middleware.AdminBearer(a.cfg.AdminSecret))
}

// healthz reports liveness of the two hard dependencies. The blob store is
// deliberately not probed, its calls cost money.
func (a *App) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		response.Upstream(c, 503, "database unreachable")
		return
	}
	if err := a.rc.Ping(ctx); err != nil {
		response.Upstream(c, 503, "redis unreachable")
		return
	}
	response.OKMessage(c, "ok")
}
