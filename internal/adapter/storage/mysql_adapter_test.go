package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/store"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/bizdesk?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	adapter := NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema setup failed: %v", err)
	}
	return db
}

func testItem(stock int) domain.InventoryItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.InventoryItem{
		ID:           "test-item-" + uuid.NewString(),
		Name:         "Test Rice",
		Quantity:     stock,
		CostPrice:    decimal.RequireFromString("50.00"),
		SellingPrice: decimal.RequireFromString("80.00"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func cleanup(t *testing.T, db *sql.DB, itemID string) {
	t.Cleanup(func() {
		ctx := context.Background()
		db.ExecContext(ctx, `DELETE FROM sales WHERE item_id = ?`, itemID)
		db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, itemID)
	})
}

func stockOf(t *testing.T, db *sql.DB, itemID string) int {
	var stock int
	err := db.QueryRow(`SELECT quantity FROM inventory_items WHERE id = ?`, itemID).Scan(&stock)
	if err != nil {
		t.Fatalf("query stock: %v", err)
	}
	return stock
}

func TestApply_SaleBatch(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	item := testItem(10)
	cleanup(t, db, item.ID)

	if err := adapter.Apply(ctx, []store.Action{store.AddInventoryItem{Item: item}}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	sale := domain.NewSale("test-sale-"+uuid.NewString(), item, 3, item.CreatedAt)
	err := adapter.Apply(ctx, []store.Action{
		store.AddSale{Sale: sale},
		store.UpdateInventoryAfterSale{ItemID: item.ID, QuantitySold: 3},
	})
	if err != nil {
		t.Fatalf("apply sale: %v", err)
	}

	if stock := stockOf(t, db, item.ID); stock != 7 {
		t.Errorf("expected stock 7, got %d", stock)
	}
}

func TestApply_OversellRollsBackBatch(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	item := testItem(2)
	cleanup(t, db, item.ID)

	if err := adapter.Apply(ctx, []store.Action{store.AddInventoryItem{Item: item}}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	sale := domain.NewSale("test-sale-"+uuid.NewString(), item, 5, item.CreatedAt)
	err := adapter.Apply(ctx, []store.Action{
		store.AddSale{Sale: sale},
		store.UpdateInventoryAfterSale{ItemID: item.ID, QuantitySold: 5},
	})
	if !errors.Is(err, ErrOptimisticLock) {
		t.Fatalf("expected ErrOptimisticLock, got %v", err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM sales WHERE id = ?`, sale.ID).Scan(&count)
	if count != 0 {
		t.Error("sale row must be rolled back with the failed decrement")
	}
	if stock := stockOf(t, db, item.ID); stock != 2 {
		t.Errorf("expected stock 2, got %d", stock)
	}
}

func TestLoadState_RoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	item := testItem(4)
	cleanup(t, db, item.ID)

	err := adapter.Apply(ctx, []store.Action{
		store.AddInventoryItem{Item: item},
		store.UpgradeToPro{},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	t.Cleanup(func() {
		adapter.Apply(context.Background(), []store.Action{store.DowngradeToFree{}})
	})

	st, ok, err := adapter.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted state")
	}
	if st.UserTier != domain.TierPro {
		t.Errorf("expected pro tier, got %s", st.UserTier)
	}
	got, found := st.Item(item.ID)
	if !found {
		t.Fatalf("item %s not loaded", item.ID)
	}
	if got.Quantity != 4 || !got.SellingPrice.Equal(item.SellingPrice) {
		t.Errorf("unexpected item %+v", got)
	}
}
