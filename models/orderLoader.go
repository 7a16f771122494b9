package models

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/order_report/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SellersFile    = "sellers.csv"
	OrdersFile     = "orders.csv"
	OrderItemsFile = "order_items.csv"

	// CSVTimeLayout is the naive ISO-8601 timestamp the generator writes; values are UTC.
	CSVTimeLayout = "2006-01-02T15:04:05"

	// rows per INSERT statement; keeps bound parameters under SQLite's 32766 limit
	insertChunkSize = 1000
)

var ErrInvalidCSVHeader = errors.New("csv header is missing required columns")

var (
	sellerColumns    = []string{"id", "name"}
	orderColumns     = []string{"id", "external_id", "date", "channel", "seller_id", "status", "updated_at", "delivered_at"}
	orderItemColumns = []string{"order_id", "sku", "qty", "revenue", "cost"}
)

type LoadCounts struct {
	Sellers    int `json:"sellers"`
	Orders     int `json:"orders"`
	OrderItems int `json:"order_items"`
}

// csvRecord gives by-name access to one CSV line.
type csvRecord struct {
	cols   map[string]int
	values []string
}

func (r csvRecord) get(name string) string {
	return strings.TrimSpace(r.values[r.cols[name]])
}

func (r csvRecord) intValue(name string) (int, error) {
	v := r.get(name)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid integer %q", name, v)
	}
	return n, nil
}

func (r csvRecord) optionalInt(name string) (*int, error) {
	if r.get(name) == "" {
		return nil, nil
	}
	n, err := r.intValue(name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r csvRecord) decimalValue(name string) (decimal.Decimal, error) {
	v := r.get(name)
	d, err := utils.ParseDecimal(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("column %s: invalid amount %q", name, v)
	}
	return d, nil
}

func (r csvRecord) timeValue(name string) (time.Time, error) {
	v := r.get(name)
	t, err := parseCSVTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("column %s: invalid timestamp %q", name, v)
	}
	return t, nil
}

func (r csvRecord) optionalTime(name string) (*time.Time, error) {
	if r.get(name) == "" {
		return nil, nil
	}
	t, err := r.timeValue(name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseCSVTime(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(CSVTimeLayout, v, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// loadCSV streams path into the store, flushing every batchSize parsed rows so
// memory stays bounded regardless of file size.
func loadCSV[T any](ctx context.Context, db *gorm.DB, path string, batchSize int, required []string, parse func(csvRecord) (T, error)) (int, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.ReuseRecord = false
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: read header: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("%s: %w: %s", path, ErrInvalidCSVHeader, strings.Join(missing, ", "))
	}

	total := 0
	batch := make([]T, 0, min(batchSize, 4096))
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := db.WithContext(ctx).CreateInBatches(batch, insertChunkSize).Error; err != nil {
			return fmt.Errorf("%s: insert batch: %w", path, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for line := 2; ; line++ {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		row, err := parse(csvRecord{cols: cols, values: values})
		if err != nil {
			return total, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func parseSeller(r csvRecord) (Seller, error) {
	id, err := r.intValue("id")
	if err != nil {
		return Seller{}, err
	}
	return Seller{ID: id, Name: r.get("name")}, nil
}

func parseOrder(r csvRecord) (Order, error) {
	var (
		o   Order
		err error
	)
	if o.ID, err = r.intValue("id"); err != nil {
		return o, err
	}
	o.ExternalId = r.get("external_id")
	if o.Date, err = r.timeValue("date"); err != nil {
		return o, err
	}
	o.Channel = r.get("channel")
	if o.SellerId, err = r.optionalInt("seller_id"); err != nil {
		return o, err
	}
	if o.Status, err = ParseOrderStatus(r.get("status")); err != nil {
		return o, err
	}
	if o.UpdatedAt, err = r.timeValue("updated_at"); err != nil {
		return o, err
	}
	if o.DeliveredAt, err = r.optionalTime("delivered_at"); err != nil {
		return o, err
	}
	return o, nil
}

func parseOrderItem(r csvRecord) (OrderItem, error) {
	var (
		it  OrderItem
		err error
	)
	if it.OrderId, err = r.intValue("order_id"); err != nil {
		return it, err
	}
	it.Sku = r.get("sku")
	if it.Qty, err = r.intValue("qty"); err != nil {
		return it, err
	}
	if it.Revenue, err = r.decimalValue("revenue"); err != nil {
		return it, err
	}
	if it.Cost, err = r.decimalValue("cost"); err != nil {
		return it, err
	}
	return it, nil
}

func LoadSellersCSV(ctx context.Context, db *gorm.DB, path string, batchSize int) (int, error) {
	return loadCSV(ctx, db, path, batchSize, sellerColumns, parseSeller)
}

func LoadOrdersCSV(ctx context.Context, db *gorm.DB, path string, batchSize int) (int, error) {
	return loadCSV(ctx, db, path, batchSize, orderColumns, parseOrder)
}

func LoadOrderItemsCSV(ctx context.Context, db *gorm.DB, path string, batchSize int) (int, error) {
	return loadCSV(ctx, db, path, batchSize, orderItemColumns, parseOrderItem)
}

// LoadDataDir loads sellers, orders and order items from dir in that order.
func LoadDataDir(ctx context.Context, db *gorm.DB, dir string, batchSize int) (LoadCounts, error) {
	var (
		counts LoadCounts
		err    error
	)
	if counts.Sellers, err = LoadSellersCSV(ctx, db, filepath.Join(dir, SellersFile), batchSize); err != nil {
		return counts, err
	}
	if counts.Orders, err = LoadOrdersCSV(ctx, db, filepath.Join(dir, OrdersFile), batchSize); err != nil {
		return counts, err
	}
	if counts.OrderItems, err = LoadOrderItemsCSV(ctx, db, filepath.Join(dir, OrderItemsFile), batchSize); err != nil {
		return counts, err
	}
	return counts, nil
}
