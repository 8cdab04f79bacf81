package stock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gescom-system/internal/apperr"
	"gescom-system/internal/database/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Famille{},
		&models.Unite{},
		&models.Article{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedArticle(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()

	famille := models.Famille{ID: uuid.New(), Nom: "Divers", Tva: 20}
	if err := db.Create(&famille).Error; err != nil {
		t.Fatalf("failed to seed famille: %v", err)
	}
	unite := models.Unite{ID: uuid.New(), Nom: "Piece", Abreviation: "pc"}
	if err := db.Create(&unite).Error; err != nil {
		t.Fatalf("failed to seed unite: %v", err)
	}

	article := models.Article{
		ID:          uuid.New(),
		Reference:   fmt.Sprintf("REF-%s", uuid.New().String()[:8]),
		Designation: "Test article",
		Stock:       stock,
		UniteID:     unite.ID,
		FamilleID:   famille.ID,
		PuHt:        decimal.NewFromInt(10),
		MontantHt:   decimal.NewFromInt(10),
	}
	if err := db.Create(&article).Error; err != nil {
		t.Fatalf("failed to seed article: %v", err)
	}
	return article.ID
}

func currentStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var article models.Article
	if err := db.First(&article, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to read article: %v", err)
	}
	return article.Stock
}

func TestReserveDebitsStock(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	articleID := seedArticle(t, db, 10)

	if err := ledger.Reserve(db, articleID, 4); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 6 {
		t.Errorf("stock = %d, want 6", got)
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	articleID := seedArticle(t, db, 3)

	err := ledger.Reserve(db, articleID, 5)
	var insufficientErr *apperr.InsufficientStockError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficientErr.ArticleID != articleID {
		t.Errorf("error names article %s, want %s", insufficientErr.ArticleID, articleID)
	}
	if insufficientErr.Available != 3 || insufficientErr.Requested != 5 {
		t.Errorf("available/requested = %d/%d, want 3/5", insufficientErr.Available, insufficientErr.Requested)
	}
	if got := currentStock(t, db, articleID); got != 3 {
		t.Errorf("stock changed to %d on failed reserve, want 3", got)
	}
}

func TestReserveExactStockDrainsToZero(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	articleID := seedArticle(t, db, 5)

	if err := ledger.Reserve(db, articleID, 5); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

func TestReserveUnknownArticle(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()

	err := ledger.Reserve(db, uuid.New(), 1)
	var notFoundErr *apperr.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFoundErr.Entity != "Article" {
		t.Errorf("entity = %q, want %q", notFoundErr.Entity, "Article")
	}
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	articleID := seedArticle(t, db, 10)

	for _, qty := range []int{0, -3} {
		err := ledger.Reserve(db, articleID, qty)
		var validationErr *apperr.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("Reserve(%d): expected ValidationError, got %v", qty, err)
		}
	}
}

func TestReleaseCreditsStock(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	articleID := seedArticle(t, db, 2)

	if err := ledger.Release(db, articleID, 4); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 6 {
		t.Errorf("stock = %d, want 6", got)
	}
}

func TestReleaseUnknownArticle(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()

	err := ledger.Release(db, uuid.New(), 1)
	var notFoundErr *apperr.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRebalanceAppliesNetDelta(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	articleID := seedArticle(t, db, 10)

	// Old line of 4 replaced by a line of 6: net debit of 2.
	old := []Line{{ArticleID: articleID, Quantite: 4}}
	updated := []Line{{ArticleID: articleID, Quantite: 6}}
	if err := ledger.Rebalance(db, old, updated); err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
}

func TestRebalanceScarceStockSucceedsOnNetDelta(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	articleID := seedArticle(t, db, 2)

	// Raising an existing line from 4 to 6 only needs 2 more units, so it
	// succeeds even though a fresh reservation of 6 would not.
	old := []Line{{ArticleID: articleID, Quantite: 4}}
	updated := []Line{{ArticleID: articleID, Quantite: 6}}
	if err := ledger.Rebalance(db, old, updated); err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

func TestRebalanceReleasesRemovedLines(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	keptID := seedArticle(t, db, 10)
	removedID := seedArticle(t, db, 0)

	old := []Line{
		{ArticleID: keptID, Quantite: 3},
		{ArticleID: removedID, Quantite: 5},
	}
	updated := []Line{{ArticleID: keptID, Quantite: 3}}
	if err := ledger.Rebalance(db, old, updated); err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	if got := currentStock(t, db, keptID); got != 10 {
		t.Errorf("kept article stock = %d, want 10 (net delta zero)", got)
	}
	if got := currentStock(t, db, removedID); got != 5 {
		t.Errorf("removed article stock = %d, want 5", got)
	}
}

func TestRebalanceRejectsNonPositiveNewLine(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewLedger()
	articleID := seedArticle(t, db, 10)

	err := ledger.Rebalance(db, nil, []Line{{ArticleID: articleID, Quantite: 0}})
	var validationErr *apperr.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
