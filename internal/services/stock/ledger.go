// Package stock owns every mutation of Article.Stock. Callers hand it the
// transaction the surrounding delivery write runs in; the ledger never opens
// its own.
package stock

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gescom-system/internal/apperr"
	"gescom-system/internal/database/models"
)

// Line is a delivery line item reduced to what the ledger needs.
type Line struct {
	ArticleID uuid.UUID
	Quantite  int
}

type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve debits quantite from the article's stock. The decrement is a single
// conditional UPDATE (stock >= quantite), so the check and the write see the
// same row state even under concurrent writers; no in-process lock is needed.
func (l *Ledger) Reserve(tx *gorm.DB, articleID uuid.UUID, quantite int) error {
	if quantite <= 0 {
		return apperr.Validation("quantite must be greater than 0")
	}

	res := tx.Model(&models.Article{}).
		Where("id = ? AND stock >= ?", articleID, quantite).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantite))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var article models.Article
		if err := tx.Select("id", "stock").First(&article, "id = ?", articleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Article", articleID.String())
			}
			return err
		}
		return &apperr.InsufficientStockError{
			ArticleID: articleID,
			Available: article.Stock,
			Requested: quantite,
		}
	}
	return nil
}

// Release credits quantite back to the article's stock. There is no upper
// bound: releasing can push stock past any nominal maximum.
func (l *Ledger) Release(tx *gorm.DB, articleID uuid.UUID, quantite int) error {
	if quantite <= 0 {
		return apperr.Validation("quantite must be greater than 0")
	}

	res := tx.Model(&models.Article{}).
		Where("id = ?", articleID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantite))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Article", articleID.String())
	}
	return nil
}

// Rebalance applies the stock effect of replacing oldLines with newLines. It
// folds both sets into one net delta per article, which is equivalent to
// releasing every old line and then reserving every new line: the reservation
// check stock >= net is exactly stock + released >= reserved.
func (l *Ledger) Rebalance(tx *gorm.DB, oldLines, newLines []Line) error {
	deltas := make(map[uuid.UUID]int)
	for _, line := range oldLines {
		deltas[line.ArticleID] -= line.Quantite
	}
	for _, line := range newLines {
		if line.Quantite <= 0 {
			return apperr.Validation("quantite must be greater than 0")
		}
		deltas[line.ArticleID] += line.Quantite
	}

	// Deterministic apply order keeps concurrent rebalances from deadlocking
	// on the same pair of article rows.
	ids := make([]uuid.UUID, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		delta := deltas[id]
		switch {
		case delta > 0:
			if err := l.Reserve(tx, id, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := l.Release(tx, id, -delta); err != nil {
				return err
			}
		}
	}
	return nil
}
