package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gescom-system/internal/services/audit"
)

type AuditHTTPHandler struct {
	audits *audit.Service
}

func NewAuditHTTPHandler(audits *audit.Service) *AuditHTTPHandler {
	return &AuditHTTPHandler{audits: audits}
}

func (h *AuditHTTPHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	logs, err := h.audits.List(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("audit logs retrieved", logs))
}

func (h *AuditHTTPHandler) Create(c *gin.Context) {
	var req audit.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.audits.Record(ctx, req); err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusCreated, successResponse("audit entry recorded", nil))
}
