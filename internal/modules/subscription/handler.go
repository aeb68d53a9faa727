package subscription

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/newsbrief/core/internal/pkg/captcha"
	"github.com/newsbrief/core/internal/pkg/mail"
	"github.com/newsbrief/core/internal/pkg/response"
	"github.com/newsbrief/core/internal/pkg/token"
	"go.uber.org/zap"
)

// SubscribeDTO is the public subscribe request body.
type SubscribeDTO struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	TurnstileToken string `json:"turnstileToken"`
}

// Handler exposes the subscription endpoints.
type Handler struct {
	svc        *Service
	verifier   *captcha.Verifier
	sender     *mail.Sender
	logger     *zap.Logger
	baseURL    string
	siteTitle  string
	linkSecret string
}

func NewHandler(svc *Service, verifier *captcha.Verifier, sender *mail.Sender, logger *zap.Logger, baseURL, siteTitle, linkSecret string) *Handler {
	return &Handler{
		svc:        svc,
		verifier:   verifier,
		sender:     sender,
		logger:     logger,
		baseURL:    baseURL,
		siteTitle:  siteTitle,
		linkSecret: linkSecret,
	}
}

// RegisterRoutes mounts the public endpoints and the admin read endpoints.
func (h *Handler) RegisterRoutes(r *gin.Engine, rateLimitMW, adminMW gin.HandlerFunc) {
	r.POST("/subscribe", rateLimitMW, h.subscribe)
	r.GET("/verify", h.verify)
	r.GET("/unsubscribe", h.unsubscribe)

	admin := r.Group("/api", adminMW)
	admin.GET("/subscribers", h.list)
	admin.GET("/stats", h.stats)
}

func (h *Handler) subscribe(c *gin.Context) {
	var dto SubscribeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	email := NormalizeEmail(dto.Email)
	if !ValidEmail(email) {
		response.BadRequest(c, "a valid email address is required")
		return
	}
	if dto.TurnstileToken == "" {
		response.BadRequest(c, "captcha token is required")
		return
	}

	if err := h.verifier.Verify(c.Request.Context(), dto.TurnstileToken, c.ClientIP()); err != nil {
		var capErr *captcha.Error
		if errors.As(err, &capErr) {
			status := http.StatusBadRequest
			if capErr.Unavailable {
				status = http.StatusBadGateway
			}
			response.Upstream(c, status, capErr.Detail)
			return
		}
		h.logger.Error("captcha verification failed", zap.Error(err))
		response.InternalError(c)
		return
	}

	result, err := h.svc.Subscribe(c.Request.Context(), email, dto.Name)
	if err != nil {
		h.logger.Error("subscribe failed", zap.String("email", email), zap.Error(err))
		response.InternalError(c)
		return
	}

	switch result.Status {
	case StatusPending:
		if err := h.sendConfirmation(c, result.Subscriber.Email, result.Subscriber.VerificationToken); err != nil {
			h.logger.Error("confirmation email failed", zap.String("email", email), zap.Error(err))
			response.Upstream(c, http.StatusBadGateway, "could not send confirmation email")
			return
		}
		response.OKMessage(c, "Almost there! Check your inbox to confirm your subscription.")
	case StatusAlready:
		response.OKMessage(c, "You're already subscribed.")
	case StatusReactivated:
		response.OKMessage(c, "Welcome back! Your subscription has been reactivated.")
	default:
		response.OKMessage(c, "You're subscribed! Welcome aboard.")
	}
}

func (h *Handler) sendConfirmation(c *gin.Context, email, verificationToken string) error {
	verifyURL := fmt.Sprintf("%s/verify?token=%s", h.baseURL, url.QueryEscape(verificationToken))
	return h.sender.SendVerifySubscription(c.Request.Context(), email, mail.VerifySubscriptionData{
		VerifyURL: verifyURL,
		SiteTitle: h.siteTitle,
	})
}

func (h *Handler) verify(c *gin.Context) {
	err := h.svc.Verify(c.Request.Context(), c.Query("token"))
	switch {
	case errors.Is(err, ErrInvalidToken):
		renderPage(c, http.StatusBadRequest, pageData{
			Title: "Invalid link", Body: "This verification link is malformed.", SiteTitle: h.siteTitle,
		})
	case errors.Is(err, ErrNotFound):
		renderPage(c, http.StatusNotFound, pageData{
			Title: "Link expired", Body: "This verification link is no longer valid.", SiteTitle: h.siteTitle,
		})
	case err != nil:
		h.logger.Error("verify failed", zap.Error(err))
		renderPage(c, http.StatusInternalServerError, pageData{
			Title: "Something went wrong", Body: "Please try again later.", SiteTitle: h.siteTitle,
		})
	default:
		renderPage(c, http.StatusOK, pageData{
			Title: "Email verified", Body: "Your subscription is confirmed. Welcome aboard!", Success: true, SiteTitle: h.siteTitle,
		})
	}
}

func (h *Handler) unsubscribe(c *gin.Context) {
	email := c.Query("email")
	err := h.svc.Unsubscribe(c.Request.Context(), h.linkSecret, email, c.Query("token"))
	switch {
	case errors.Is(err, ErrInvalidToken):
		renderPage(c, http.StatusForbidden, pageData{
			Title: "Invalid link", Body: "This unsubscribe link is not valid.", SiteTitle: h.siteTitle,
		})
	case err != nil:
		h.logger.Error("unsubscribe failed", zap.Error(err))
		renderPage(c, http.StatusInternalServerError, pageData{
			Title: "Something went wrong", Body: "Please try again later.", SiteTitle: h.siteTitle,
		})
	default:
		renderPage(c, http.StatusOK, pageData{
			Title: "Unsubscribed", Body: "You won't receive any more emails from us. Sorry to see you go!", Success: true, SiteTitle: h.siteTitle,
		})
	}
}

func (h *Handler) list(c *gin.Context) {
	subs, err := h.svc.ListActiveVerified(c.Request.Context())
	if err != nil {
		h.logger.Error("list subscribers failed", zap.Error(err))
		response.InternalError(c)
		return
	}

	items := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		items = append(items, gin.H{
			"name":           sub.Name,
			"email":          sub.Email,
			"active":         sub.Active,
			"unsubscribeUrl": h.unsubscribeURL(sub.Email),
		})
	}
	response.OK(c, items)
}

func (h *Handler) unsubscribeURL(email string) string {
	sig := token.UnsubscribeSignature(h.linkSecret, email)
	return fmt.Sprintf("%s/unsubscribe?email=%s&token=%s", h.baseURL, url.QueryEscape(email), sig)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("stats failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, stats)
}
