package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gescom-system/internal/services/user"
)

type UserHTTPHandler struct {
	users *user.Service
}

func NewUserHTTPHandler(users *user.Service) *UserHTTPHandler {
	return &UserHTTPHandler{users: users}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateRoleRequest struct {
	Libelle string `json:"libelle" binding:"required"`
}

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("authenticated", map[string]interface{}{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User,
	}))
}

func (h *UserHTTPHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.users.List(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("users retrieved", users))
}

func (h *UserHTTPHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.users.GetByID(ctx, id)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("user retrieved", result))
}

func (h *UserHTTPHandler) Create(c *gin.Context) {
	var req user.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.users.Create(ctx, req)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusCreated, successResponse("user created", result))
}

func (h *UserHTTPHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}

	var req user.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.users.Update(ctx, id, req)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("user updated", result))
}

func (h *UserHTTPHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid user id"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.users.Delete(ctx, id); err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHTTPHandler) ListRoles(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	roles, err := h.users.ListRoles(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("roles retrieved", roles))
}

func (h *UserHTTPHandler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	role, err := h.users.CreateRole(ctx, req.Libelle)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusCreated, successResponse("role created", role))
}
