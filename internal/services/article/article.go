// Package article manages reference data for inventory items, plus the
// Famille and Unite lookup tables articles point at.
package article

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gescom-system/internal/apperr"
	"gescom-system/internal/database/models"
)

const (
	ARTICLE_CACHE_PREFIX   = "article:"
	ARTICLE_LIST_CACHE_KEY = "article:list"
)

type Service struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewService(db *gorm.DB, redisClient *redis.Client) *Service {
	return &Service{db: db, redis: redisClient}
}

type CreateRequest struct {
	Reference    string          `json:"reference" binding:"required"`
	Designation  string          `json:"designation"`
	Stock        int             `json:"stock"`
	StockMinimum int             `json:"stockMinimum"`
	UniteID      uuid.UUID       `json:"uniteId" binding:"required"`
	FamilleID    uuid.UUID       `json:"familleId" binding:"required"`
	PuHt         decimal.Decimal `json:"puHt"`
	MontantHt    decimal.Decimal `json:"montantHt"`
}

func (s *Service) List(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	err := s.db.WithContext(ctx).
		Preload("Unite").
		Preload("Famille").
		Order("reference").
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	var article models.Article
	err := s.db.WithContext(ctx).
		Preload("Unite").
		Preload("Famille").
		First(&article, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Article", id.String())
		}
		return nil, err
	}
	return &article, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Article, error) {
	if req.Stock < 0 {
		return nil, apperr.Validation("stock must be non-negative")
	}
	if req.PuHt.IsNegative() || req.MontantHt.IsNegative() {
		return nil, apperr.Validation("prices must be non-negative")
	}

	id := uuid.New()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Unite{}, "id = ?", req.UniteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Unite", req.UniteID.String())
			}
			return err
		}
		if err := tx.First(&models.Famille{}, "id = ?", req.FamilleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Famille", req.FamilleID.String())
			}
			return err
		}

		article := models.Article{
			ID:           id,
			Reference:    req.Reference,
			Designation:  req.Designation,
			Stock:        req.Stock,
			StockMinimum: req.StockMinimum,
			UniteID:      req.UniteID,
			FamilleID:    req.FamilleID,
			PuHt:         req.PuHt.Round(2),
			MontantHt:    req.MontantHt.Round(2),
		}
		if err := tx.Create(&article).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Validation("article reference %q is already used", req.Reference)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, id)
	return s.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req CreateRequest) (*models.Article, error) {
	if req.Stock < 0 {
		return nil, apperr.Validation("stock must be non-negative")
	}
	if req.PuHt.IsNegative() || req.MontantHt.IsNegative() {
		return nil, apperr.Validation("prices must be non-negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		if err := tx.First(&article, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Article", id.String())
			}
			return err
		}
		if err := tx.First(&models.Unite{}, "id = ?", req.UniteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Unite", req.UniteID.String())
			}
			return err
		}
		if err := tx.First(&models.Famille{}, "id = ?", req.FamilleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Famille", req.FamilleID.String())
			}
			return err
		}

		article.Reference = req.Reference
		article.Designation = req.Designation
		article.Stock = req.Stock
		article.StockMinimum = req.StockMinimum
		article.UniteID = req.UniteID
		article.FamilleID = req.FamilleID
		article.PuHt = req.PuHt.Round(2)
		article.MontantHt = req.MontantHt.Round(2)

		if err := tx.Save(&article).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Validation("article reference %q is already used", req.Reference)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, id)
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.DetailLivraison{}).Where("article_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Validation("article is referenced by existing livraisons")
		}
		res := tx.Delete(&models.Article{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Article", id.String())
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateCaches(ctx, id)
	return nil
}

// ListLowStock returns articles at or below their minimum stock threshold.
func (s *Service) ListLowStock(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	err := s.db.WithContext(ctx).
		Preload("Unite").
		Preload("Famille").
		Where("stock <= stock_minimum").
		Order("reference").
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// --- Famille / Unite lookup tables ---

func (s *Service) ListFamilles(ctx context.Context) ([]models.Famille, error) {
	var familles []models.Famille
	if err := s.db.WithContext(ctx).Order("nom").Find(&familles).Error; err != nil {
		return nil, err
	}
	return familles, nil
}

func (s *Service) CreateFamille(ctx context.Context, nom string, tva int) (*models.Famille, error) {
	if nom == "" {
		return nil, apperr.Validation("famille nom is required")
	}
	famille := models.Famille{ID: uuid.New(), Nom: nom, Tva: tva}
	if err := s.db.WithContext(ctx).Create(&famille).Error; err != nil {
		return nil, err
	}
	return &famille, nil
}

func (s *Service) ListUnites(ctx context.Context) ([]models.Unite, error) {
	var unites []models.Unite
	if err := s.db.WithContext(ctx).Order("nom").Find(&unites).Error; err != nil {
		return nil, err
	}
	return unites, nil
}

func (s *Service) CreateUnite(ctx context.Context, nom, abreviation string) (*models.Unite, error) {
	if nom == "" {
		return nil, apperr.Validation("unite nom is required")
	}
	unite := models.Unite{ID: uuid.New(), Nom: nom, Abreviation: abreviation}
	if err := s.db.WithContext(ctx).Create(&unite).Error; err != nil {
		return nil, err
	}
	return &unite, nil
}

func (s *Service) invalidateCaches(ctx context.Context, articleIDs ...uuid.UUID) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, ARTICLE_LIST_CACHE_KEY)
	for _, id := range articleIDs {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%s", ARTICLE_CACHE_PREFIX, id))
	}
}
