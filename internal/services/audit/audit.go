// Package audit records who did what to which delivery number. The log is
// append-only: entries are never updated or removed.
package audit

import (
	"context"
	"strings"
	"time"

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
	UserID          uuid.UUID `json:"userId" binding:"required"`
	Action          string    `json:"action" binding:"required"`
	NumeroLivraison string    `json:"numeroLivraison" binding:"required"`
}

func (s *Service) List(ctx context.Context) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("timestamp DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Service) Record(ctx context.Context, req CreateRequest) error {
	if strings.TrimSpace(req.Action) == "" {
		return apperr.Validation("action is required")
	}
	if strings.TrimSpace(req.NumeroLivraison) == "" {
		return apperr.Validation("numeroLivraison is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", req.UserID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("User", req.UserID.String())
	}

	entry := models.AuditLog{
		ID:              uuid.New(),
		UserID:          req.UserID,
		NumeroLivraison: strings.TrimSpace(req.NumeroLivraison),
		Action:          strings.TrimSpace(req.Action),
		Timestamp:       time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}
