package models

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemoryStore(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite error: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle error: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable error: %v", err)
	}
	return db
}

func writeDataDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

const (
	sellersCSV = "\ufeffid,name\n1,Seller 001\n2,Seller 002\n"
	ordersCSV  = `id,external_id,date,channel,seller_id,status,updated_at,delivered_at
1,ORD-1,2024-05-01T10:00:00,site,1,delivered,2024-05-03T10:00:00,2024-05-02T09:00:00
2,ORD-2,2024-05-02T11:30:00,ozon,33,paid,2024-05-02T12:30:00,
3,ORD-1,2024-01-01T00:00:00,b24,,created,2024-01-01T05:00:00,
`
	orderItemsCSV = `order_id,sku,qty,revenue,cost
1,TB-1000,2,150.25,100.00
1,ST-2000,1,10,20
2,CH-3000,0,0.00,0.00
3,WD-4000,1,5.5,1
`
)

func TestLoadDataDir(t *testing.T) {
	db := openMemoryStore(t)
	dir := writeDataDir(t, map[string]string{
		SellersFile:    sellersCSV,
		OrdersFile:     ordersCSV,
		OrderItemsFile: orderItemsCSV,
	})

	// batch of 2 forces several flushes
	counts, err := LoadDataDir(context.Background(), db, dir, 2)
	if err != nil {
		t.Fatalf("LoadDataDir error: %v", err)
	}
	if counts != (LoadCounts{Sellers: 2, Orders: 3, OrderItems: 4}) {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	var o Order
	if err := db.First(&o, 2).Error; err != nil {
		t.Fatalf("load order 2: %v", err)
	}
	if o.SellerId == nil || *o.SellerId != 33 || o.DeliveredAt != nil || o.Status != OrderStatusPaid {
		t.Fatalf("unexpected order 2: %+v", o)
	}
	wantDate := time.Date(2024, 5, 2, 11, 30, 0, 0, time.UTC)
	if !o.Date.Equal(wantDate) {
		t.Fatalf("expected date %s, got %s", wantDate, o.Date)
	}

	var noSeller Order
	if err := db.First(&noSeller, 3).Error; err != nil {
		t.Fatalf("load order 3: %v", err)
	}
	if noSeller.SellerId != nil {
		t.Fatalf("expected empty seller_id to load as NULL, got %d", *noSeller.SellerId)
	}
}

func TestLoadDataDir_ResetBeforeReload(t *testing.T) {
	db := openMemoryStore(t)
	dir := writeDataDir(t, map[string]string{
		SellersFile:    sellersCSV,
		OrdersFile:     ordersCSV,
		OrderItemsFile: orderItemsCSV,
	})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := ResetTables(ctx, db); err != nil {
			t.Fatalf("ResetTables error: %v", err)
		}
		if _, err := LoadDataDir(ctx, db, dir, 100); err != nil {
			t.Fatalf("LoadDataDir run %d error: %v", i, err)
		}
	}
	var n int64
	if err := db.Model(&OrderItem{}).Count(&n).Error; err != nil {
		t.Fatalf("count error: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 items after reload, got %d", n)
	}
}

func TestLoadCSV_Errors(t *testing.T) {
	cases := []struct {
		name    string
		orders  string
		wantErr string
	}{
		{"missing column", "id,external_id,date\n1,A,2024-01-01T00:00:00\n", "missing"},
		{"bad date", strings.Replace(ordersCSV, "2024-05-02T11:30:00", "yesterday", 1), "orders.csv:3"},
		{"bad status", strings.Replace(ordersCSV, ",paid,", ",refunded,", 1), "orders.csv:3"},
		{"bad id", strings.Replace(ordersCSV, "\n2,ORD-2", "\nx,ORD-2", 1), "orders.csv:3"},
	}
	for _, tc := range cases {
		db := openMemoryStore(t)
		dir := writeDataDir(t, map[string]string{OrdersFile: tc.orders})
		_, err := LoadOrdersCSV(context.Background(), db, filepath.Join(dir, OrdersFile), 10)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestLoadCSV_MissingHeaderIsTyped(t *testing.T) {
	db := openMemoryStore(t)
	dir := writeDataDir(t, map[string]string{SellersFile: "id\n1\n"})
	_, err := LoadSellersCSV(context.Background(), db, filepath.Join(dir, SellersFile), 10)
	if !errors.Is(err, ErrInvalidCSVHeader) {
		t.Fatalf("expected ErrInvalidCSVHeader, got %v", err)
	}
}

func TestGetEnrichedOrders(t *testing.T) {
	db := openMemoryStore(t)
	dir := writeDataDir(t, map[string]string{
		SellersFile:    sellersCSV,
		OrdersFile:     ordersCSV,
		OrderItemsFile: orderItemsCSV,
	})
	ctx := context.Background()
	if _, err := LoadDataDir(ctx, db, dir, 100); err != nil {
		t.Fatalf("LoadDataDir error: %v", err)
	}

	since := TrailingWindowStart(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 90)
	rows, err := GetEnrichedOrders(ctx, db, since)
	if err != nil {
		t.Fatalf("GetEnrichedOrders error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 line items inside the window, got %d", len(rows))
	}
	first := rows[0]
	if first.OrderId != 1 || first.Sku != "TB-1000" || first.Seller == nil || *first.Seller != "Seller 001" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if !first.Margin.Equal(decimal.RequireFromString("50.25")) {
		t.Fatalf("expected margin 50.25, got %s", first.Margin)
	}
	if first.DeliveredAt == nil {
		t.Fatalf("expected delivered_at on order 1")
	}
	if !rows[1].Margin.IsNegative() {
		t.Fatalf("expected negative margin on second item, got %s", rows[1].Margin)
	}
	if rows[2].Seller != nil || rows[2].Channel == nil || *rows[2].Channel != "ozon" {
		t.Fatalf("expected unknown seller on order 2, got %+v", rows[2])
	}

	funnel, err := GetFunnelOrders(ctx, db)
	if err != nil {
		t.Fatalf("GetFunnelOrders error: %v", err)
	}
	if len(funnel) != 3 || funnel[2].ExternalId != "ORD-1" || funnel[2].Status != OrderStatusCreated {
		t.Fatalf("unexpected funnel projection: %+v", funnel)
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, s := range AllOrderStatuses {
		got, err := ParseOrderStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseOrderStatus(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseOrderStatus("refunded"); !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("expected ErrInvalidOrderStatus, got %v", err)
	}
}
