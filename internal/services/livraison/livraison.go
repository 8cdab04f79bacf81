// Package livraison orchestrates the delivery aggregate: header + line items
// persisted in one transaction, with stock adjustments delegated to the stock
// ledger and optimistic concurrency on the header row.
package livraison

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gescom-system/internal/apperr"
	"gescom-system/internal/database/models"
	"gescom-system/internal/services/article"
	"gescom-system/internal/services/stock"
)

const (
	LIVRAISON_CACHE_PREFIX   = "livraison:"
	LIVRAISON_LIST_CACHE_KEY = "livraison:list"
)

type Service struct {
	db     *gorm.DB
	redis  *redis.Client
	ledger *stock.Ledger
}

func NewService(db *gorm.DB, redisClient *redis.Client) *Service {
	return &Service{
		db:     db,
		redis:  redisClient,
		ledger: stock.NewLedger(),
	}
}

type DetailRequest struct {
	ArticleID   uuid.UUID       `json:"articleId" binding:"required"`
	Designation string          `json:"designation"`
	Quantite    int             `json:"quantite" binding:"required"`
	PuHt        decimal.Decimal `json:"puHt"`
	PuHtRemise  decimal.Decimal `json:"puHtRemise"`
	RemiseHt    decimal.Decimal `json:"remiseHt"`
	PuTtc       decimal.Decimal `json:"puTtc"`
	PuTtcRemise decimal.Decimal `json:"puTtcRemise"`
	RemiseTtc   decimal.Decimal `json:"remiseTtc"`
	MontantHt   decimal.Decimal `json:"montantHt"`
	MontantTtc  decimal.Decimal `json:"montantTtc"`
}

type CreateRequest struct {
	ClientID         uuid.UUID       `json:"clientId" binding:"required"`
	UserID           uuid.UUID       `json:"userId" binding:"required"`
	Date             time.Time       `json:"date"`
	Info             string          `json:"info"`
	Numero           string          `json:"numero" binding:"required"`
	TotalHt          decimal.Decimal `json:"totalHt"`
	TotalTva         decimal.Decimal `json:"totalTva"`
	Escompte         decimal.Decimal `json:"escompte"`
	TotalTtc         decimal.Decimal `json:"totalTtc"`
	Editeur          string          `json:"editeur"`
	DetailLivraisons []DetailRequest `json:"detailLivraisons"`
}

// UpdateRequest mirrors CreateRequest; zero-valued ClientID/UserID/Numero
// leave the stored header fields untouched. Version is the concurrency token
// captured when the aggregate was loaded.
type UpdateRequest struct {
	ClientID         uuid.UUID       `json:"clientId"`
	UserID           uuid.UUID       `json:"userId"`
	Date             time.Time       `json:"date"`
	Info             string          `json:"info"`
	Numero           string          `json:"numero"`
	TotalHt          decimal.Decimal `json:"totalHt"`
	TotalTva         decimal.Decimal `json:"totalTva"`
	Escompte         decimal.Decimal `json:"escompte"`
	TotalTtc         decimal.Decimal `json:"totalTtc"`
	Editeur          string          `json:"editeur"`
	Version          int             `json:"version" binding:"required"`
	DetailLivraisons []DetailRequest `json:"detailLivraisons"`
}

func (s *Service) List(ctx context.Context) ([]models.Livraison, error) {
	var livraisons []models.Livraison
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("User").
		Preload("DetailLivraisons.Article").
		Order("date DESC").
		Find(&livraisons).Error
	if err != nil {
		return nil, err
	}
	return livraisons, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Livraison, error) {
	var livraison models.Livraison
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("User").
		Preload("DetailLivraisons.Article").
		First(&livraison, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Livraison", id.String())
		}
		return nil, err
	}
	return &livraison, nil
}

// Create persists the header and every line item in one transaction,
// reserving stock per line. The returned aggregate is reloaded from storage,
// not the in-memory pre-save object.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Livraison, error) {
	if strings.TrimSpace(req.Numero) == "" {
		return nil, apperr.Validation("livraison numero is required")
	}
	if err := validateTotals(req.TotalHt, req.TotalTva, req.Escompte, req.TotalTtc); err != nil {
		return nil, err
	}
	for _, d := range req.DetailLivraisons {
		if d.Quantite <= 0 {
			return nil, apperr.Validation("quantite must be greater than 0")
		}
	}

	id := uuid.New()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Client{}, "id = ?", req.ClientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Client", req.ClientID.String())
			}
			return err
		}
		if err := tx.First(&models.User{}, "id = ?", req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("User", req.UserID.String())
			}
			return err
		}

		livraison := models.Livraison{
			ID:       id,
			ClientID: req.ClientID,
			UserID:   req.UserID,
			Date:     req.Date,
			Info:     req.Info,
			Numero:   req.Numero,
			TotalHt:  req.TotalHt.Round(2),
			TotalTva: req.TotalTva.Round(2),
			Escompte: req.Escompte.Round(2),
			TotalTtc: req.TotalTtc.Round(2),
			Editeur:  req.Editeur,
			Version:  1,
		}
		if err := tx.Create(&livraison).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Validation("livraison numero %q is already used", req.Numero)
			}
			return err
		}

		for _, d := range req.DetailLivraisons {
			if err := tx.Select("id").First(&models.Article{}, "id = ?", d.ArticleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Article", d.ArticleID.String())
				}
				return err
			}
			if err := s.ledger.Reserve(tx, d.ArticleID, d.Quantite); err != nil {
				return err
			}
			detail := newDetail(id, d)
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, detailArticleIDs(req.DetailLivraisons)...)
	return s.GetByID(ctx, id)
}

// Update replaces the line-item set wholesale. The version precondition is
// checked first: the conditional header UPDATE both detects concurrent
// writers and locks the row, so the old lines read afterwards are the ones
// whose stock actually gets released.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.Livraison, error) {
	if err := validateTotals(req.TotalHt, req.TotalTva, req.Escompte, req.TotalTtc); err != nil {
		return nil, err
	}
	for _, d := range req.DetailLivraisons {
		if d.Quantite <= 0 {
			return nil, apperr.Validation("quantite must be greater than 0")
		}
	}

	var affected []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"date":      req.Date,
			"info":      req.Info,
			"total_ht":  req.TotalHt.Round(2),
			"total_tva": req.TotalTva.Round(2),
			"escompte":  req.Escompte.Round(2),
			"total_ttc": req.TotalTtc.Round(2),
			"editeur":   req.Editeur,
			"version":   gorm.Expr("version + 1"),
		}
		if req.ClientID != uuid.Nil {
			if err := tx.First(&models.Client{}, "id = ?", req.ClientID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Client", req.ClientID.String())
				}
				return err
			}
			updates["client_id"] = req.ClientID
		}
		if req.UserID != uuid.Nil {
			if err := tx.First(&models.User{}, "id = ?", req.UserID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("User", req.UserID.String())
				}
				return err
			}
			updates["user_id"] = req.UserID
		}
		if strings.TrimSpace(req.Numero) != "" {
			updates["numero"] = req.Numero
		}

		res := tx.Model(&models.Livraison{}).
			Where("id = ? AND version = ?", id, req.Version).
			Updates(updates)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return apperr.Validation("livraison numero %q is already used", req.Numero)
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Select("id").First(&models.Livraison{}, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Livraison", id.String())
				}
				return err
			}
			return apperr.ErrConcurrencyConflict
		}

		var oldDetails []models.DetailLivraison
		if err := tx.Where("livraison_id = ?", id).Find(&oldDetails).Error; err != nil {
			return err
		}

		// Every referenced article must exist, even when its net stock
		// delta ends up zero.
		for _, d := range req.DetailLivraisons {
			if err := tx.Select("id").First(&models.Article{}, "id = ?", d.ArticleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Article", d.ArticleID.String())
				}
				return err
			}
		}

		oldLines := make([]stock.Line, 0, len(oldDetails))
		for _, d := range oldDetails {
			oldLines = append(oldLines, stock.Line{ArticleID: d.ArticleID, Quantite: d.Quantite})
			affected = append(affected, d.ArticleID)
		}
		newLines := make([]stock.Line, 0, len(req.DetailLivraisons))
		for _, d := range req.DetailLivraisons {
			newLines = append(newLines, stock.Line{ArticleID: d.ArticleID, Quantite: d.Quantite})
			affected = append(affected, d.ArticleID)
		}
		if err := s.ledger.Rebalance(tx, oldLines, newLines); err != nil {
			return err
		}

		if err := tx.Where("livraison_id = ?", id).Delete(&models.DetailLivraison{}).Error; err != nil {
			return err
		}
		for _, d := range req.DetailLivraisons {
			detail := newDetail(id, d)
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, affected...)
	return s.GetByID(ctx, id)
}

// Delete physically removes the aggregate, crediting stock back for every
// line item first. No soft delete.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	var affected []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var livraison models.Livraison
		if err := tx.Preload("DetailLivraisons").First(&livraison, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Livraison", id.String())
			}
			return err
		}

		for _, d := range livraison.DetailLivraisons {
			if err := s.ledger.Release(tx, d.ArticleID, d.Quantite); err != nil {
				return err
			}
			affected = append(affected, d.ArticleID)
		}
		if err := tx.Where("livraison_id = ?", id).Delete(&models.DetailLivraison{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Livraison{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	s.invalidateCaches(ctx, affected...)
	return nil
}

// GetCompteur returns the counter row with the highest value. A missing row
// is a configuration error, surfaced as NotFound.
func (s *Service) GetCompteur(ctx context.Context) (*models.Compteur, error) {
	var compteur models.Compteur
	err := s.db.WithContext(ctx).Order("nombre DESC").First(&compteur).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Compteur", "")
		}
		return nil, err
	}
	return &compteur, nil
}

// IncrementCompteur bumps the counter with a single relative UPDATE, so
// concurrent increments are all reflected, then returns the stored row.
func (s *Service) IncrementCompteur(ctx context.Context) (*models.Compteur, error) {
	var compteur models.Compteur
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("nombre DESC").First(&compteur).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Compteur", "")
			}
			return err
		}
		if err := tx.Model(&models.Compteur{}).
			Where("id = ?", compteur.ID).
			UpdateColumn("nombre", gorm.Expr("nombre + 1")).Error; err != nil {
			return err
		}
		return tx.First(&compteur, "id = ?", compteur.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &compteur, nil
}

func (s *Service) invalidateCaches(ctx context.Context, articleIDs ...uuid.UUID) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, LIVRAISON_LIST_CACHE_KEY, article.ARTICLE_LIST_CACHE_KEY)
	for _, id := range articleIDs {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%s", article.ARTICLE_CACHE_PREFIX, id))
	}
}

func newDetail(livraisonID uuid.UUID, d DetailRequest) models.DetailLivraison {
	return models.DetailLivraison{
		ID:          uuid.New(),
		LivraisonID: livraisonID,
		ArticleID:   d.ArticleID,
		Designation: d.Designation,
		Quantite:    d.Quantite,
		PuHt:        d.PuHt.Round(2),
		PuHtRemise:  d.PuHtRemise.Round(2),
		RemiseHt:    d.RemiseHt.Round(2),
		PuTtc:       d.PuTtc.Round(2),
		PuTtcRemise: d.PuTtcRemise.Round(2),
		RemiseTtc:   d.RemiseTtc.Round(2),
		MontantHt:   d.MontantHt.Round(2),
		MontantTtc:  d.MontantTtc.Round(2),
		Version:     1,
	}
}

func validateTotals(totals ...decimal.Decimal) error {
	for _, t := range totals {
		if t.IsNegative() {
			return apperr.Validation("monetary totals must be non-negative")
		}
	}
	return nil
}

func detailArticleIDs(details []DetailRequest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ArticleID)
	}
	return ids
}
