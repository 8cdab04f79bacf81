package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gescom-system/internal/services/client"
)

type ClientHTTPHandler struct {
	clients *client.Service
}

func NewClientHTTPHandler(clients *client.Service) *ClientHTTPHandler {
	return &ClientHTTPHandler{clients: clients}
}

func (h *ClientHTTPHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	clients, err := h.clients.List(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("clients retrieved", clients))
}

func (h *ClientHTTPHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid client id"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.clients.GetByID(ctx, id)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("client retrieved", result))
}

func (h *ClientHTTPHandler) Create(c *gin.Context) {
	var req client.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.clients.Create(ctx, req)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusCreated, successResponse("client created", result))
}

func (h *ClientHTTPHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid client id"))
		return
	}

	var req client.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.clients.Update(ctx, id, req)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("client updated", result))
}

func (h *ClientHTTPHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid client id"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.clients.Delete(ctx, id); err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.Status(http.StatusNoContent)
}
