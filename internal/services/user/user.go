package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gescom-system/internal/apperr"
	"gescom-system/internal/database/models"
	"gescom-system/internal/utils"
)

type Service struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

func NewService(db *gorm.DB, tokenTTL time.Duration) *Service {
	return &Service{db: db, tokenTTL: tokenTTL}
}

type CreateRequest struct {
	Username string      `json:"username" binding:"required"`
	Password string      `json:"password" binding:"required,min=6"`
	IsAdmin  bool        `json:"isAdmin"`
	RoleIDs  []uuid.UUID `json:"rolesId"`
}

type UpdateRequest struct {
	Username *string      `json:"username,omitempty"`
	Password *string      `json:"password,omitempty"`
	IsAdmin  *bool        `json:"isAdmin,omitempty"`
	RoleIDs  *[]uuid.UUID `json:"rolesId,omitempty"`
}

type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Authenticate verifies the credentials and issues a signed token carrying
// the actor's id, display name, and active role labels.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Preload("RolesUsers.Role").
		First(&u, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apperr.ErrInvalidCredentials
	}

	token, exp, err := utils.GenerateToken(u.ID.String(), u.Username, u.IsAdmin, activeRoles(u.RolesUsers), s.tokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: &u, Token: token, ExpiresAt: exp}, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Preload("RolesUsers.Role").
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Preload("RolesUsers.Role").
		First(&u, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User", id.String())
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.User, error) {
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := models.User{
			ID:           id,
			Username:     req.Username,
			PasswordHash: string(pwHash),
			IsAdmin:      req.IsAdmin,
		}
		if err := tx.Create(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Validation("username %q already exists", req.Username)
			}
			return err
		}
		return s.assignRoles(tx, id, req.RoleIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Update replaces the user's role assignments wholesale when RoleIDs is
// provided, matching how the aggregate is edited from the role dialog.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("User", id.String())
			}
			return err
		}

		if req.Username != nil {
			if *req.Username == "" {
				return apperr.Validation("username cannot be empty")
			}
			u.Username = *req.Username
		}
		if req.Password != nil {
			if *req.Password == "" {
				return apperr.Validation("password cannot be empty")
			}
			pwHash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			u.PasswordHash = string(pwHash)
		}
		if req.IsAdmin != nil {
			u.IsAdmin = *req.IsAdmin
		}

		if err := tx.Save(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Validation("username %q already exists", u.Username)
			}
			return err
		}

		if req.RoleIDs != nil {
			if err := tx.Where("user_id = ?", id).Delete(&models.RolesUser{}).Error; err != nil {
				return err
			}
			return s.assignRoles(tx, id, *req.RoleIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.RolesUser{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("User", id.String())
		}
		return nil
	})
}

func (s *Service) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("libelle").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Service) CreateRole(ctx context.Context, libelle string) (*models.Role, error) {
	if libelle == "" {
		return nil, apperr.Validation("role libelle is required")
	}
	role := models.Role{ID: uuid.New(), Libelle: libelle}
	if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("role %q already exists", libelle)
		}
		return nil, err
	}
	return &role, nil
}

func (s *Service) assignRoles(tx *gorm.DB, userID uuid.UUID, roleIDs []uuid.UUID) error {
	for _, roleID := range roleIDs {
		if err := tx.First(&models.Role{}, "id = ?", roleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Role", roleID.String())
			}
			return err
		}
		assignment := models.RolesUser{
			ID:     uuid.New(),
			RoleID: roleID,
			UserID: userID,
			Valeur: true,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
	}
	return nil
}

func activeRoles(assignments []models.RolesUser) []string {
	roles := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.Valeur && a.Role != nil {
			roles = append(roles, a.Role.Libelle)
		}
	}
	return roles
}
