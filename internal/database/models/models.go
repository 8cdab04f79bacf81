package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	RolesUsers []RolesUser `gorm:"foreignKey:UserID" json:"rolesUsers,omitempty"`
}

type Role struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Libelle string    `gorm:"uniqueIndex;not null" json:"libelle"`
}

// RolesUser assigns one role (acting as a named permission) to one user.
type RolesUser struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoleID uuid.UUID `gorm:"type:uuid;index;not null" json:"roleId"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	Valeur bool      `gorm:"not null;default:true" json:"valeur"`

	Role *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nom       string    `gorm:"not null" json:"nom"`
	Telephone string    `json:"telephone"`
	Fax       string    `json:"fax"`
	Adresse   string    `gorm:"type:text" json:"adresse"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Famille struct {
	ID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nom string    `gorm:"not null" json:"nom"`
	Tva int       `gorm:"not null;default:0" json:"tva"`
}

type Unite struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nom         string    `gorm:"not null" json:"nom"`
	Abreviation string    `gorm:"not null" json:"abreviation"`
}

type Article struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Reference    string          `gorm:"uniqueIndex;not null" json:"reference"`
	Designation  string          `gorm:"not null" json:"designation"`
	Stock        int             `gorm:"not null;default:0" json:"stock"`
	StockMinimum int             `gorm:"column:stock_minimum;not null;default:0" json:"stockMinimum"`
	UniteID      uuid.UUID       `gorm:"type:uuid;not null" json:"uniteId"`
	FamilleID    uuid.UUID       `gorm:"type:uuid;not null" json:"familleId"`
	PuHt         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"puHt"`
	MontantHt    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"montantHt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	Unite   *Unite   `gorm:"foreignKey:UniteID" json:"unite,omitempty"`
	Famille *Famille `gorm:"foreignKey:FamilleID" json:"famille,omitempty"`
}

// Livraison is the delivery document aggregate root. Version is the
// optimistic-lock token: every committed update bumps it, and writers must
// present the value they loaded.
type Livraison struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID       `gorm:"type:uuid;not null" json:"clientId"`
	UserID   uuid.UUID       `gorm:"type:uuid;not null" json:"userId"`
	Date     time.Time       `gorm:"not null" json:"date"`
	Info     string          `gorm:"type:text" json:"info"`
	Numero   string          `gorm:"uniqueIndex;not null" json:"numero"`
	TotalHt  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"totalHt"`
	TotalTva decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"totalTva"`
	Escompte decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"escompte"`
	TotalTtc decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"totalTtc"`
	Editeur  string          `json:"editeur"`
	Version  int             `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Client           *Client           `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	User             *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DetailLivraisons []DetailLivraison `gorm:"foreignKey:LivraisonID" json:"detailLivraisons"`
}

type DetailLivraison struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LivraisonID uuid.UUID       `gorm:"type:uuid;index;not null" json:"livraisonId"`
	ArticleID   uuid.UUID       `gorm:"type:uuid;not null" json:"articleId"`
	Designation string          `json:"designation"`
	Quantite    int             `gorm:"not null" json:"quantite"`
	PuHt        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"puHt"`
	PuHtRemise  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"puHtRemise"`
	RemiseHt    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"remiseHt"`
	PuTtc       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"puTtc"`
	PuTtcRemise decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"puTtcRemise"`
	RemiseTtc   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"remiseTtc"`
	MontantHt   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"montantHt"`
	MontantTtc  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"montantTtc"`
	Version     int             `gorm:"not null;default:1" json:"version"`

	Article *Article `gorm:"foreignKey:ArticleID" json:"article,omitempty"`
}

// Compteur is the shared delivery-number sequence. A single logical counter
// row is read (max by Nombre) and incremented atomically.
type Compteur struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Libelle string    `gorm:"not null" json:"libelle"`
	Nombre  int       `gorm:"not null;default:0" json:"nombre"`
}

type AuditLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	NumeroLivraison string    `json:"numeroLivraison"`
	Action          string    `json:"action"`
	Timestamp       time.Time `gorm:"not null" json:"timestamp"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
