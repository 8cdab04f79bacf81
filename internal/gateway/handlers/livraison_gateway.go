package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gescom-system/internal/gateway/middleware"
	"gescom-system/internal/services/audit"
	"gescom-system/internal/services/livraison"
)

type LivraisonHTTPHandler struct {
	livraisons *livraison.Service
	audits     *audit.Service
}

func NewLivraisonHTTPHandler(livraisons *livraison.Service, audits *audit.Service) *LivraisonHTTPHandler {
	return &LivraisonHTTPHandler{
		livraisons: livraisons,
		audits:     audits,
	}
}

func (h *LivraisonHTTPHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	livraisons, err := h.livraisons.List(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("livraisons retrieved", livraisons))
}

func (h *LivraisonHTTPHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid livraison id"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.livraisons.GetByID(ctx, id)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("livraison retrieved", result))
}

func (h *LivraisonHTTPHandler) Create(c *gin.Context) {
	var req livraison.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.livraisons.Create(ctx, req)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}

	h.recordAudit(c, "CREATE_LIVRAISON", result.Numero)
	c.JSON(http.StatusCreated, successResponse("livraison created", result))
}

func (h *LivraisonHTTPHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid livraison id"))
		return
	}

	var req livraison.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.livraisons.Update(ctx, id, req)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}

	h.recordAudit(c, "UPDATE_LIVRAISON", result.Numero)
	c.JSON(http.StatusOK, successResponse("livraison updated", result))
}

func (h *LivraisonHTTPHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid livraison id"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	existing, err := h.livraisons.GetByID(ctx, id)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	if err := h.livraisons.Delete(ctx, id); err != nil {
		c.JSON(statusFromError(err))
		return
	}

	h.recordAudit(c, "DELETE_LIVRAISON", existing.Numero)
	c.Status(http.StatusNoContent)
}

func (h *LivraisonHTTPHandler) GetCompteur(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	compteur, err := h.livraisons.GetCompteur(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("compteur retrieved", compteur))
}

func (h *LivraisonHTTPHandler) IncrementCompteur(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	compteur, err := h.livraisons.IncrementCompteur(ctx)
	if err != nil {
		c.JSON(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("compteur incremented", compteur))
}

// recordAudit is best effort: a failed audit write never fails the mutation
// that already committed.
func (h *LivraisonHTTPHandler) recordAudit(c *gin.Context, action, numero string) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		return
	}
	actorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.audits.Record(ctx, audit.CreateRequest{
		UserID:          actorID,
		Action:          action,
		NumeroLivraison: numero,
	}); err != nil {
		log.Printf("failed to record audit entry: %v", err)
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}
