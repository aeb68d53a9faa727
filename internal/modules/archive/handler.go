package archive

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsbrief/core/internal/pkg/response"
	"go.uber.org/zap"
)

// Reports are uploaded as raw HTML bodies with the metadata carried in
// X-* headers, so the upstream report generator can POST its output as-is.

const maxReportBodyBytes = 4 << 20

// Handler exposes the archive endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the public read endpoints and the admin write
// endpoints.
func (h *Handler) RegisterRoutes(r *gin.Engine, adminMW gin.HandlerFunc) {
	r.GET("/archive", h.getIndex)
	r.GET("/archive/:id", h.getReport)
	r.POST("/archive", adminMW, h.putReport)
	r.PATCH("/archive/:id", adminMW, h.patchReport)
	r.DELETE("/archive/:id", adminMW, h.deleteReport)
}

func (h *Handler) getIndex(c *gin.Context) {
	idx, err := h.svc.GetIndex(c.Request.Context())
	if err != nil {
		h.logger.Error("get index failed", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, idx)
}

func (h *Handler) getReport(c *gin.Context) {
	_, body, err := h.svc.GetReport(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "report not found")
	case err != nil:
		h.logger.Error("get report failed", zap.String("id", c.Param("id")), zap.Error(err))
		response.InternalError(c)
	default:
		c.Data(http.StatusOK, "text/html; charset=utf-8", body)
	}
}

func (h *Handler) putReport(c *gin.Context) {
	meta, err := metaFromHeaders(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxReportBodyBytes+1))
	if err != nil {
		response.BadRequest(c, "could not read request body")
		return
	}
	if len(body) > maxReportBodyBytes {
		response.BadRequest(c, "report body too large")
		return
	}

	created, stored, err := h.svc.PutReport(c.Request.Context(), *meta, body)
	switch {
	case errors.Is(err, ErrValidation):
		response.BadRequest(c, err.Error())
	case err != nil:
		h.logger.Error("put report failed", zap.String("id", meta.ID), zap.Error(err))
		response.InternalError(c)
	case created:
		response.Created(c, "report created", stored)
	default:
		response.OKMessageData(c, "report updated", stored)
	}
}

// metaFromHeaders builds ReportMeta from the upload headers. Field-shape
// validation beyond parsing belongs to the service.
func metaFromHeaders(c *gin.Context) (*ReportMeta, error) {
	meta := &ReportMeta{
		ID:             strings.TrimSpace(c.GetHeader("X-Report-Id")),
		DateRangeStart: strings.TrimSpace(c.GetHeader("X-Date-Start")),
		DateRangeEnd:   strings.TrimSpace(c.GetHeader("X-Date-End")),
		Title:          strings.TrimSpace(c.GetHeader("X-Title")),
		Summary:        strings.TrimSpace(c.GetHeader("X-Summary")),
	}

	if raw := strings.TrimSpace(c.GetHeader("X-Generated-At")); raw != "" {
		generatedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.New("X-Generated-At must be RFC 3339")
		}
		meta.GeneratedAt = generatedAt
	}
	if raw := strings.TrimSpace(c.GetHeader("X-Days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("X-Days must be an integer")
		}
		meta.Days = days
	}
	if raw := strings.TrimSpace(c.GetHeader("X-Total-Items")); raw != "" {
		totalItems, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("X-Total-Items must be an integer")
		}
		meta.TotalItems = totalItems
	}
	return meta, nil
}

type patchDTO struct {
	Title   *string `json:"title"`
	Summary *string `json:"summary"`
}

func (h *Handler) patchReport(c *gin.Context) {
	var dto patchDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	meta, err := h.svc.PatchReportMeta(c.Request.Context(), c.Param("id"), dto.Title, dto.Summary)
	switch {
	case errors.Is(err, ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "report not found")
	case err != nil:
		h.logger.Error("patch report failed", zap.String("id", c.Param("id")), zap.Error(err))
		response.InternalError(c)
	default:
		response.OK(c, meta)
	}
}

func (h *Handler) deleteReport(c *gin.Context) {
	err := h.svc.DeleteReport(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "report not found")
	case err != nil:
		h.logger.Error("delete report failed", zap.String("id", c.Param("id")), zap.Error(err))
		response.InternalError(c)
	default:
		response.OKMessage(c, "report deleted")
	}
}
