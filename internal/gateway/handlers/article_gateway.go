package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gescom-system/internal/services/article"
)

type ArticleHTTPHandler struct {
	articles *article.Service
}

func NewArticleHTTPHandler(articles *article.Service) *ArticleHTTPHandler {
	return &ArticleHTTPHandler{articles: articles}
}

type CreateFamilleRequest struct {
	Nom string `json:"nom" binding:"required"`
	Tva int    `json:"tva"`
}

type CreateUniteRequest struct {
	Nom         string `json:"nom" binding:"required"`
	Abreviation string `json:"abreviation"`
}

func (h *ArticleHTTPHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	articles, err := h.articles.List(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("articles retrieved", articles))
}

func (h *ArticleHTTPHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid article id"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.articles.GetByID(ctx, id)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("article retrieved", result))
}

func (h *ArticleHTTPHandler) Create(c *gin.Context) {
	var req article.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.articles.Create(ctx, req)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusCreated, successResponse("article created", result))
}

func (h *ArticleHTTPHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid article id"))
		return
	}

	var req article.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.articles.Update(ctx, id, req)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("article updated", result))
}

func (h *ArticleHTTPHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid article id"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.articles.Delete(ctx, id); err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ArticleHTTPHandler) ListLowStock(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	articles, err := h.articles.ListLowStock(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("low stock articles retrieved", articles))
}

func (h *ArticleHTTPHandler) ListFamilles(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	familles, err := h.articles.ListFamilles(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("familles retrieved", familles))
}

func (h *ArticleHTTPHandler) CreateFamille(c *gin.Context) {
	var req CreateFamilleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	famille, err := h.articles.CreateFamille(ctx, req.Nom, req.Tva)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusCreated, successResponse("famille created", famille))
}

func (h *ArticleHTTPHandler) ListUnites(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	unites, err := h.articles.ListUnites(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("unites retrieved", unites))
}

func (h *ArticleHTTPHandler) CreateUnite(c *gin.Context) {
	var req CreateUniteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	unite, err := h.articles.CreateUnite(ctx, req.Nom, req.Abreviation)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusCreated, successResponse("unite created", unite))
}
