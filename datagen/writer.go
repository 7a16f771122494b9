package datagen

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"bitbucket.org/mmdatafocus/order_report/models"
)

var (
	sellerHeader    = []string{"id", "name"}
	orderHeader     = []string{"id", "external_id", "date", "channel", "seller_id", "status", "updated_at", "delivered_at"}
	orderItemHeader = []string{"order_id", "sku", "qty", "revenue", "cost"}
)

// WriteCSV writes sellers.csv, orders.csv and order_items.csv into dir in the
// layout the loader reads.
func (d *Dataset) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	sellers := make([][]string, 0, len(d.Sellers))
	for _, s := range d.Sellers {
		sellers = append(sellers, []string{strconv.Itoa(s.ID), s.Name})
	}
	if err := writeFile(filepath.Join(dir, models.SellersFile), sellerHeader, sellers); err != nil {
		return err
	}

	orders := make([][]string, 0, len(d.Orders))
	for _, o := range d.Orders {
		sellerId, deliveredAt := "", ""
		if o.SellerId != nil {
			sellerId = strconv.Itoa(*o.SellerId)
		}
		if o.DeliveredAt != nil {
			deliveredAt = o.DeliveredAt.Format(models.CSVTimeLayout)
		}
		orders = append(orders, []string{
			strconv.Itoa(o.ID), o.ExternalId, o.Date.Format(models.CSVTimeLayout), o.Channel,
			sellerId, string(o.Status), o.UpdatedAt.Format(models.CSVTimeLayout), deliveredAt,
		})
	}
	if err := writeFile(filepath.Join(dir, models.OrdersFile), orderHeader, orders); err != nil {
		return err
	}

	items := make([][]string, 0, len(d.Items))
	for _, i := range d.Items {
		items = append(items, []string{
			strconv.Itoa(i.OrderId), i.Sku, strconv.Itoa(i.Qty), i.Revenue.StringFixed(2), i.Cost.StringFixed(2),
		})
	}
	return writeFile(filepath.Join(dir, models.OrderItemsFile), orderItemHeader, items)
}

func writeFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
