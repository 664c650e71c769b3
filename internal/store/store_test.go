package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vesaa/invmon/internal/config"
	"github.com/vesaa/invmon/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "invmon.db")}
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)

	_, err = Open(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err, "mysql needs a dsn")
}

func TestDescribeHidesCredentials(t *testing.T) {
	got := describe(&config.Config{DBDriver: "mysql", DBDSN: "root:secret@tcp(db:3306)/invmon"})
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "tcp(db:3306)/invmon")
}

func TestLoggerSkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	db := openTestDB(t).Session(&gorm.Session{Logger: newLogger(&buf)})
	ctx := context.Background()

	_, err := NewTelemetryStore(db).FindDevice(ctx, "NEW-DEVICE")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, buf.String(), "an unseen device is not an error")

	err = db.WithContext(ctx).Table("no_such_table").Count(new(int64)).Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no_such_table")
}

func newDevice(productID, day string, usage float64) *models.CPUData {
	dev := &models.CPUData{
		ProductID: productID,
		Cost:      "1200",
		DailyPerformance: []models.DailyPerformance{{
			Day:                  day,
			LastRunDate:          time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
			RAMUsageInPercentage: usage,
			CPUPerformanceRank:   models.RankGoodUse,
		}},
	}
	dev.Motherboard = datatypes.NewJSONType(models.Motherboard{Manufacturer: "ASUS"})
	return dev
}

func TestTelemetryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewTelemetryStore(openTestDB(t))

	_, err := st.FindDevice(ctx, "DEV-1")
	assert.ErrorIs(t, err, ErrNotFound)

	dev := newDevice("DEV-1", "2024-05-01", 30)
	require.NoError(t, st.CreateDevice(ctx, dev))

	found, err := st.FindDevice(ctx, "DEV-1")
	require.NoError(t, err)
	require.Len(t, found.DailyPerformance, 1)
	assert.Equal(t, "ASUS", found.Motherboard.Data().Manufacturer)
	entry := found.DailyPerformance[0]

	err = st.UpdateDay(ctx, found.ID, entry.ID, 55, models.RankPerfectlyUsed, models.Motherboard{Manufacturer: "MSI"})
	require.NoError(t, err)

	next := models.DailyPerformance{
		Day:                  "2024-05-02",
		LastRunDate:          time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
		RAMUsageInPercentage: 90,
		CPUPerformanceRank:   models.RankDanger,
	}
	require.NoError(t, st.AppendDay(ctx, found.ID, next, models.Motherboard{Manufacturer: "Gigabyte"}))

	found, err = st.FindDevice(ctx, "DEV-1")
	require.NoError(t, err)
	require.Len(t, found.DailyPerformance, 2)
	assert.Equal(t, 55.0, found.DailyPerformance[0].RAMUsageInPercentage)
	assert.Equal(t, models.RankPerfectlyUsed, found.DailyPerformance[0].CPUPerformanceRank)
	assert.Equal(t, "2024-05-02", found.DailyPerformance[1].Day, "entries come back in insertion order")
	assert.Equal(t, "Gigabyte", found.Motherboard.Data().Manufacturer)

	got, err := st.GetDevice(ctx, found.ID)
	require.NoError(t, err)
	assert.Equal(t, "DEV-1", got.ProductID)
	_, err = st.GetDevice(ctx, found.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTelemetryStoreGuardsOneEntryPerDay(t *testing.T) {
	ctx := context.Background()
	st := NewTelemetryStore(openTestDB(t))
	dev := newDevice("DEV-1", "2024-05-01", 30)
	require.NoError(t, st.CreateDevice(ctx, dev))

	dup := models.DailyPerformance{Day: "2024-05-01", LastRunDate: time.Now()}
	err := st.AppendDay(ctx, dev.ID, dup, models.Motherboard{})
	assert.ErrorIs(t, err, ErrConflict)

	err = st.UpdateDay(ctx, dev.ID, 9999, 10, models.RankUnderuse, models.Motherboard{})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, st.CreateDevice(ctx, newDevice("DEV-1", "2024-05-03", 1)), ErrConflict)
}

func TestListDevicesSearch(t *testing.T) {
	ctx := context.Background()
	st := NewTelemetryStore(openTestDB(t))
	require.NoError(t, st.CreateDevice(ctx, newDevice("Lab-PC-01", "2024-05-01", 30)))
	require.NoError(t, st.CreateDevice(ctx, newDevice("office-02", "2024-05-01", 30)))

	all, err := st.ListDevices(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	lab, err := st.ListDevices(ctx, "lab-pc")
	require.NoError(t, err)
	require.Len(t, lab, 1)
	assert.Equal(t, "Lab-PC-01", lab[0].ProductID)
	assert.Len(t, lab[0].DailyPerformance, 1)
}

func TestRatingStore(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	acme, _ := seedFeedback(t, db)
	st := NewRatingStore(db)

	individual, err := st.IndividualRatings(ctx, acme.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{4, 2}, individual)

	overall, err := st.OverallRatings(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, overall)

	none, err := st.IndividualRatings(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)

	rows, err := st.FeedbackWithRelations(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].Supplier)
	assert.Equal(t, "Acme", rows[0].Supplier.Name)
	require.NotNil(t, rows[0].Evaluator)
	require.NotNil(t, rows[0].Delivery)
	require.NotNil(t, rows[0].Item)
}

// seedFeedback stores one supplier with one delivery and two feedback rows
// rated 4 and 2.
func seedFeedback(t *testing.T, db *gorm.DB) (*models.Supplier, *models.Delivery) {
	t.Helper()
	ctx := context.Background()
	supplier := &models.Supplier{Name: "Acme", PhoneNumber: "555-0100", Email: "acme@example.com"}
	require.NoError(t, NewRepository[models.Supplier](db).Create(ctx, supplier))
	category := &models.Category{Name: "Hardware"}
	require.NoError(t, NewRepository[models.Category](db).Create(ctx, category))
	item := &models.PurchasingItem{Name: "Keyboard", CategoryID: category.ID}
	require.NoError(t, NewRepository[models.PurchasingItem](db).Create(ctx, item))
	delivery := &models.Delivery{SupplierID: supplier.ID, ItemID: item.ID, DeliveryDate: time.Now(), OverallRating: 5}
	require.NoError(t, NewRepository[models.Delivery](db).Create(ctx, delivery))

	feedback := NewRepository[models.DeliveryItem](db)
	for i, rating := range []int{4, 2} {
		ev := &models.Evaluator{Name: []string{"Ann", "Bob"}[i]}
		require.NoError(t, NewRepository[models.Evaluator](db).Create(ctx, ev))
		require.NoError(t, feedback.Create(ctx, &models.DeliveryItem{
			DeliveryID:                 delivery.ID,
			ItemID:                     item.ID,
			SupplierID:                 supplier.ID,
			IndividualItemRating:       rating,
			IndividualItemRatingReason: "ok",
			EvaluatorID:                ev.ID,
			EvaluationDate:             time.Now(),
		}))
	}
	return supplier, delivery
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[models.Category](openTestDB(t))

	cat := &models.Category{Name: "Furniture", Description: "chairs"}
	require.NoError(t, repo.Create(ctx, cat))
	assert.ErrorIs(t, repo.Create(ctx, &models.Category{Name: "Furniture"}), ErrConflict)

	updated, err := repo.Update(ctx, cat.ID, &models.Category{Name: "Furniture", Description: "desks"})
	require.NoError(t, err)
	assert.Equal(t, "desks", updated.Description)
	assert.Equal(t, cat.CreatedAt.Unix(), updated.CreatedAt.Unix(), "update keeps created_at")

	exists, err := repo.Exists(ctx, "name = ?", "Furniture")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, cat.ID))
	assert.ErrorIs(t, repo.Delete(ctx, cat.ID), ErrNotFound)
	_, err = repo.Get(ctx, cat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Update(ctx, cat.ID, &models.Category{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFeedbackUniquePerEvaluator(t *testing.T) {
	db := openTestDB(t)
	_, delivery := seedFeedback(t, db)

	var first models.DeliveryItem
	require.NoError(t, db.First(&first).Error)
	dup := first
	dup.ID = 0
	err := NewRepository[models.DeliveryItem](db).Create(context.Background(), &dup)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, delivery.ID, first.DeliveryID)
}

func TestDeleteFreesUniqueKeys(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedFeedback(t, db)
	feedback := NewRepository[models.DeliveryItem](db)

	var first models.DeliveryItem
	require.NoError(t, db.First(&first).Error)
	require.NoError(t, feedback.Delete(ctx, first.ID))

	exists, err := feedback.Exists(ctx, "delivery_id = ? AND evaluator_id = ?", first.DeliveryID, first.EvaluatorID)
	require.NoError(t, err)
	assert.False(t, exists)

	again := first
	again.ID = 0
	again.IndividualItemRating = 2
	require.NoError(t, feedback.Create(ctx, &again), "deleted feedback can be resubmitted")

	categories := NewRepository[models.Category](db)
	cat := &models.Category{Name: "Furniture"}
	require.NoError(t, categories.Create(ctx, cat))
	require.NoError(t, categories.Delete(ctx, cat.ID))
	require.NoError(t, categories.Create(ctx, &models.Category{Name: "Furniture"}), "a deleted name can be reused")

	var left int64
	require.NoError(t, db.Unscoped().Model(&models.Category{}).Where("id = ?", cat.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestItemCodeSequence(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[models.Item](openTestDB(t))

	newItem := func(name string) *models.Item {
		return &models.Item{
			Name: name, Description: "d", Unit: "pcs", Brand: "b",
			DeliveryDate: time.Now(),
			Categories:   []models.NameRef{{Name: "Hardware"}},
		}
	}
	a, b := newItem("  Mouse "), newItem("Monitor")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	assert.Equal(t, "pro001", a.ItemCode)
	assert.Equal(t, "pro002", b.ItemCode)
	assert.Equal(t, "mouse", a.Name, "names are normalized")

	bad := newItem("Desk")
	bad.Unit = "box"
	err := repo.Create(ctx, bad)
	var invalid *models.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "unit", invalid.Field)
}

func TestCategoryCounts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRepository[models.Item](db)
	for i, cats := range [][]string{{"Hardware", "Office"}, {"Hardware"}, {"Kitchen"}} {
		it := &models.Item{
			Name: []string{"mouse", "monitor", "kettle"}[i], Description: "d", Unit: "pcs", Brand: "b",
			DeliveryDate: time.Now(),
		}
		for _, c := range cats {
			it.Categories = append(it.Categories, models.NameRef{Name: c})
		}
		require.NoError(t, repo.Create(ctx, it))
	}

	counts, err := NewInventoryStore(db).CategoryCounts(ctx, "")
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, "Hardware", counts[0].Name)
	assert.Equal(t, 2, counts[0].Count)

	counts, err = NewInventoryStore(db).CategoryCounts(ctx, "KITCH")
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].Count)
}

func TestInspectionsForItem(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRepository[models.Inspection](db)
	for _, itemID := range []uint{7, 7, 8} {
		require.NoError(t, repo.Create(ctx, &models.Inspection{ItemID: itemID, ItemName: "chair", InspectionDescription: "leg"}))
	}
	rows, err := NewInventoryStore(db).InspectionsForItem(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "pending", rows[0].Status)
}

func TestDocumentAccess(t *testing.T) {
	ctx := context.Background()
	st := NewDocumentStore(openTestDB(t))

	hr := &models.Document{FolderName: "HR", UploadedFile: []byte("pdf"), RackNumber: "R1", User: "admin"}
	ops := &models.Document{FolderName: "Ops", UploadedFile: []byte{}, RackNumber: "R2", User: "admin"}
	require.NoError(t, st.Create(ctx, hr))
	require.NoError(t, st.Create(ctx, ops))
	assert.ErrorIs(t, st.Create(ctx, &models.Document{FolderName: "HR", UploadedFile: []byte{}, RackNumber: "R3", User: "x"}), ErrConflict)

	_, err := st.GrantAccess(ctx, hr.ID, "ROLE_EMPLOYEE")
	require.NoError(t, err)
	doc, err := st.GrantAccess(ctx, hr.ID, "ROLE_EMPLOYEE")
	require.NoError(t, err, "granting twice is a no-op")
	assert.Len(t, doc.Access, 1)

	_, err = st.GrantAccess(ctx, 999, "ROLE_EMPLOYEE")
	assert.ErrorIs(t, err, ErrNotFound)

	visible, err := st.List(ctx, "", []string{"ROLE_EMPLOYEE"})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "HR", visible[0].FolderName)

	all, err := st.List(ctx, "op", nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ops", all[0].FolderName)

	doc, err = st.RevokeAccess(ctx, hr.ID, "ROLE_EMPLOYEE")
	require.NoError(t, err)
	assert.Empty(t, doc.Access)

	require.NoError(t, st.Delete(ctx, hr.ID))
	assert.ErrorIs(t, st.Delete(ctx, hr.ID), ErrNotFound)
}
