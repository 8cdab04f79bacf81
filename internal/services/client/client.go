package client

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gescom-system/internal/apperr"
	"gescom-system/internal/database/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateRequest struct {
	Nom       string `json:"nom" binding:"required"`
	Telephone string `json:"telephone"`
	Fax       string `json:"fax"`
	Adresse   string `json:"adresse"`
}

func (s *Service) List(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := s.db.WithContext(ctx).Order("nom").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Client", id.String())
		}
		return nil, err
	}
	return &client, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Client, error) {
	if req.Nom == "" {
		return nil, apperr.Validation("client nom is required")
	}
	client := models.Client{
		ID:        uuid.New(),
		Nom:       req.Nom,
		Telephone: req.Telephone,
		Fax:       req.Fax,
		Adresse:   req.Adresse,
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req CreateRequest) (*models.Client, error) {
	if req.Nom == "" {
		return nil, apperr.Validation("client nom is required")
	}
	var client models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&client, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Client", id.String())
			}
			return err
		}
		client.Nom = req.Nom
		client.Telephone = req.Telephone
		client.Fax = req.Fax
		client.Adresse = req.Adresse
		return tx.Save(&client).Error
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Livraison{}).Where("client_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Validation("client is referenced by existing livraisons")
		}
		res := tx.Delete(&models.Client{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Client", id.String())
		}
		return nil
	})
}
