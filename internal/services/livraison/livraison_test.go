package livraison

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

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
		&models.Role{},
		&models.User{},
		&models.RolesUser{},
		&models.Client{},
		&models.Famille{},
		&models.Unite{},
		&models.Article{},
		&models.Livraison{},
		&models.DetailLivraison{},
		&models.Compteur{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type fixtures struct {
	clientID uuid.UUID
	userID   uuid.UUID
}

func seedFixtures(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()

	client := models.Client{ID: uuid.New(), Nom: "Ets Diallo"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("failed to seed client: %v", err)
	}
	user := models.User{ID: uuid.New(), Username: "vendeur", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return fixtures{clientID: client.ID, userID: user.ID}
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
		PuHt:        decimal.NewFromInt(100),
		MontantHt:   decimal.NewFromInt(100),
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

func createRequest(fix fixtures, numero string, articleID uuid.UUID, quantite int) CreateRequest {
	return CreateRequest{
		ClientID: fix.clientID,
		UserID:   fix.userID,
		Date:     time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Numero:   numero,
		TotalHt:  decimal.NewFromInt(int64(quantite * 100)),
		TotalTtc: decimal.NewFromInt(int64(quantite * 120)),
		DetailLivraisons: []DetailRequest{{
			ArticleID:  articleID,
			Quantite:   quantite,
			PuHt:       decimal.NewFromInt(100),
			MontantHt:  decimal.NewFromInt(int64(quantite * 100)),
			MontantTtc: decimal.NewFromInt(int64(quantite * 120)),
		}},
	}
}

func updateRequest(fix fixtures, version int, articleID uuid.UUID, quantite int) UpdateRequest {
	return UpdateRequest{
		ClientID: fix.clientID,
		UserID:   fix.userID,
		Date:     time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		Version:  version,
		TotalHt:  decimal.NewFromInt(int64(quantite * 100)),
		TotalTtc: decimal.NewFromInt(int64(quantite * 120)),
		DetailLivraisons: []DetailRequest{{
			ArticleID:  articleID,
			Quantite:   quantite,
			PuHt:       decimal.NewFromInt(100),
			MontantHt:  decimal.NewFromInt(int64(quantite * 100)),
			MontantTtc: decimal.NewFromInt(int64(quantite * 120)),
		}},
	}
}

func TestLifecycleAdjustsStock(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 10)

	created, err := svc.Create(ctx, createRequest(fix, "BL-001", articleID, 4))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 6 {
		t.Errorf("stock after create = %d, want 6", got)
	}
	if created.Version != 1 {
		t.Errorf("version after create = %d, want 1", created.Version)
	}
	if len(created.DetailLivraisons) != 1 {
		t.Fatalf("details after create = %d, want 1", len(created.DetailLivraisons))
	}

	updated, err := svc.Update(ctx, created.ID, updateRequest(fix, created.Version, articleID, 2))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 8 {
		t.Errorf("stock after update = %d, want 8", got)
	}
	if updated.Version != 2 {
		t.Errorf("version after update = %d, want 2", updated.Version)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 10 {
		t.Errorf("stock after delete = %d, want 10", got)
	}

	if _, err := svc.GetByID(ctx, created.ID); err == nil {
		t.Error("GetByID after delete succeeded, want NotFound")
	}
	var orphans int64
	if err := db.Model(&models.DetailLivraison{}).Where("livraison_id = ?", created.ID).Count(&orphans).Error; err != nil {
		t.Fatalf("failed to count details: %v", err)
	}
	if orphans != 0 {
		t.Errorf("orphan detail rows after delete = %d, want 0", orphans)
	}
}

func TestCreateInsufficientStock(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 3)

	_, err := svc.Create(ctx, createRequest(fix, "BL-002", articleID, 5))
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

	// The whole transaction rolled back: stock untouched, nothing persisted.
	if got := currentStock(t, db, articleID); got != 3 {
		t.Errorf("stock = %d, want 3", got)
	}
	var count int64
	if err := db.Model(&models.Livraison{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count livraisons: %v", err)
	}
	if count != 0 {
		t.Errorf("livraisons persisted = %d, want 0", count)
	}
}

func TestCreateDuplicateNumero(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 10)

	if _, err := svc.Create(ctx, createRequest(fix, "BL-003", articleID, 2)); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	_, err := svc.Create(ctx, createRequest(fix, "BL-003", articleID, 2))
	var validationErr *apperr.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for duplicate numero, got %v", err)
	}
	if got := currentStock(t, db, articleID); got != 8 {
		t.Errorf("stock = %d, want 8 (failed create must not debit)", got)
	}
}

func TestUpdateStaleVersionConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 10)

	created, err := svc.Create(ctx, createRequest(fix, "BL-004", articleID, 4))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// First writer commits against version 1.
	if _, err := svc.Update(ctx, created.ID, updateRequest(fix, 1, articleID, 2)); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}

	// Second writer still holds version 1 and must be rejected.
	_, err = svc.Update(ctx, created.ID, updateRequest(fix, 1, articleID, 6))
	if !errors.Is(err, apperr.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}

	// The first writer's change is durable.
	current, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if current.Version != 2 {
		t.Errorf("version = %d, want 2", current.Version)
	}
	if len(current.DetailLivraisons) != 1 || current.DetailLivraisons[0].Quantite != 2 {
		t.Errorf("details = %+v, want single line of quantite 2", current.DetailLivraisons)
	}
	if got := currentStock(t, db, articleID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
}

func TestUpdateSameLinesIsStockNeutral(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 10)

	created, err := svc.Create(ctx, createRequest(fix, "BL-005", articleID, 4))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, updateRequest(fix, created.Version, articleID, 4))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 6 {
		t.Errorf("stock = %d, want 6 (unchanged)", got)
	}
	if updated.Version != 2 {
		t.Errorf("version = %d, want 2 (bumps even when lines are unchanged)", updated.Version)
	}
}

func TestUpdateScarceStockUsesNetDelta(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 6)

	created, err := svc.Create(ctx, createRequest(fix, "BL-006", articleID, 4))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 2 {
		t.Fatalf("stock = %d, want 2", got)
	}

	// Raising the line from 4 to 6 needs only the net 2 units still on hand,
	// while a fresh delivery of 6 would be refused outright.
	if _, err := svc.Update(ctx, created.ID, updateRequest(fix, created.Version, articleID, 6)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := currentStock(t, db, articleID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}

	_, err = svc.Create(ctx, createRequest(fix, "BL-007", articleID, 6))
	var insufficientErr *apperr.InsufficientStockError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientStockError for fresh create, got %v", err)
	}
}

func TestUpdateInsufficientStockRollsBack(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 5)

	created, err := svc.Create(ctx, createRequest(fix, "BL-008", articleID, 4))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Net delta of +6 against 1 on hand.
	_, err = svc.Update(ctx, created.ID, updateRequest(fix, created.Version, articleID, 10))
	var insufficientErr *apperr.InsufficientStockError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	current, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if current.Version != 1 {
		t.Errorf("version = %d, want 1 (failed update must not bump)", current.Version)
	}
	if len(current.DetailLivraisons) != 1 || current.DetailLivraisons[0].Quantite != 4 {
		t.Errorf("details = %+v, want original line of quantite 4", current.DetailLivraisons)
	}
	if got := currentStock(t, db, articleID); got != 1 {
		t.Errorf("stock = %d, want 1", got)
	}
}

func TestNotFoundErrorsNameTheEntity(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 10)

	assertNotFound := func(err error, entity string) {
		t.Helper()
		var notFoundErr *apperr.NotFoundError
		if !errors.As(err, &notFoundErr) {
			t.Fatalf("expected NotFoundError for %s, got %v", entity, err)
		}
		if notFoundErr.Entity != entity {
			t.Errorf("entity = %q, want %q", notFoundErr.Entity, entity)
		}
	}

	req := createRequest(fix, "BL-009", articleID, 1)
	req.ClientID = uuid.New()
	_, err := svc.Create(ctx, req)
	assertNotFound(err, "Client")

	req = createRequest(fix, "BL-009", articleID, 1)
	req.UserID = uuid.New()
	_, err = svc.Create(ctx, req)
	assertNotFound(err, "User")

	req = createRequest(fix, "BL-009", uuid.New(), 1)
	_, err = svc.Create(ctx, req)
	assertNotFound(err, "Article")

	_, err = svc.GetByID(ctx, uuid.New())
	assertNotFound(err, "Livraison")

	_, err = svc.Update(ctx, uuid.New(), updateRequest(fix, 1, articleID, 1))
	assertNotFound(err, "Livraison")

	err = svc.Delete(ctx, uuid.New())
	assertNotFound(err, "Livraison")
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()
	fix := seedFixtures(t, db)
	articleID := seedArticle(t, db, 10)

	req := createRequest(fix, "  ", articleID, 1)
	if _, err := svc.Create(ctx, req); err == nil {
		t.Error("blank numero accepted, want ValidationError")
	}

	req = createRequest(fix, "BL-010", articleID, 1)
	req.TotalHt = decimal.NewFromInt(-1)
	if _, err := svc.Create(ctx, req); err == nil {
		t.Error("negative total accepted, want ValidationError")
	}

	req = createRequest(fix, "BL-010", articleID, 0)
	if _, err := svc.Create(ctx, req); err == nil {
		t.Error("zero quantite accepted, want ValidationError")
	}
}

func TestCompteurIncrement(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()

	compteur := models.Compteur{ID: uuid.New(), Libelle: "livraison", Nombre: 7}
	if err := db.Create(&compteur).Error; err != nil {
		t.Fatalf("failed to seed compteur: %v", err)
	}

	got, err := svc.GetCompteur(ctx)
	if err != nil {
		t.Fatalf("GetCompteur failed: %v", err)
	}
	if got.Nombre != 7 {
		t.Errorf("nombre = %d, want 7", got.Nombre)
	}

	for want := 8; want <= 9; want++ {
		got, err = svc.IncrementCompteur(ctx)
		if err != nil {
			t.Fatalf("IncrementCompteur failed: %v", err)
		}
		if got.Nombre != want {
			t.Errorf("nombre = %d, want %d", got.Nombre, want)
		}
	}
}

func TestCompteurMissing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()

	_, err := svc.GetCompteur(ctx)
	var notFoundErr *apperr.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	_, err = svc.IncrementCompteur(ctx)
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
