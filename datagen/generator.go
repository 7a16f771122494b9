// Package datagen produces reproducible synthetic sellers, orders and order
// items with a controlled share of data-quality defects.
package datagen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/order_report/models"
	"bitbucket.org/mmdatafocus/order_report/utils"
	"github.com/shopspring/decimal"
)

const (
	DefaultOrders = 8000
	DefaultDays   = 90
	SellerCount   = 30

	duplicateRate      = 0.05
	missingSellerRate  = 0.005
	lateUpdateRate     = 0.3
	badQtyRate         = 0.01
	negativeMarginRate = 0.02
)

var skuCategories = []string{"TB", "ST", "CH", "WD", "DR", "SH"}

type Options struct {
	Email  string `validate:"required"`
	Orders int    `validate:"min=0"`
	Days   int    `validate:"min=1"`
	// Now anchors the date window; zero means the current UTC second.
	Now time.Time `validate:"-"`
}

type Dataset struct {
	Sellers []models.Seller
	Orders  []models.Order
	Items   []models.OrderItem
}

// SeedFromEmail takes the first 16 hex digits of sha256(email) as a 64-bit seed.
func SeedFromEmail(email string) uint64 {
	sum := sha256.Sum256([]byte(email))
	seed, _ := strconv.ParseUint(hex.EncodeToString(sum[:])[:16], 16, 64)
	return seed
}

type generator struct {
	rng *rand.Rand
	now time.Time
}

func newGenerator(email string, now time.Time) *generator {
	seed := SeedFromEmail(email)
	return &generator{
		rng: rand.New(rand.NewPCG(seed, seed)),
		now: now,
	}
}

// intRange is inclusive on both ends.
func (g *generator) intRange(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *generator) dateWithin(days int) time.Time {
	back := time.Duration(g.rng.Float64() * float64(days) * float64(24*time.Hour))
	return g.now.Add(-back).Truncate(time.Second)
}

// channel is weighted site 0.5, ozon 0.3, b24 0.2.
func (g *generator) channel() models.SalesChannel {
	r := g.rng.Float64()
	switch {
	case r < 0.5:
		return models.SalesChannelSite
	case r < 0.8:
		return models.SalesChannelOzon
	default:
		return models.SalesChannelB24
	}
}

func (g *generator) status() models.OrderStatus {
	r := g.rng.Float64()
	switch {
	case r < 0.72:
		return models.OrderStatusDelivered
	case r < 0.87:
		return models.OrderStatusCancelled
	case r < 0.90:
		return models.OrderStatusShipped
	case r < 0.94:
		return models.OrderStatusProdStarted
	case r < 0.98:
		return models.OrderStatusPaid
	default:
		return models.OrderStatusCreated
	}
}

func (g *generator) item(orderId int) models.OrderItem {
	sku := fmt.Sprintf("%s-%d", skuCategories[g.rng.IntN(len(skuCategories))], g.intRange(1000, 9999))
	qty := g.intRange(1, 5)
	if g.rng.Float64() < badQtyRate {
		qty = []int{0, -1}[g.rng.IntN(2)]
	}

	base := float64(g.intRange(50, 500))
	markup := g.uniform(0.15, 0.70)
	revenue := decimal.NewFromFloat(base * (1 + markup) * float64(qty)).Round(2)
	cost := decimal.NewFromFloat(base * float64(qty)).Round(2)
	if g.rng.Float64() < negativeMarginRate {
		revenue = decimal.Max(decimal.Zero, cost.Mul(decimal.NewFromFloat(g.uniform(0.3, 0.9))).Round(2))
	}
	return models.OrderItem{OrderId: orderId, Sku: sku, Qty: qty, Revenue: revenue, Cost: cost}
}

// Generate builds a dataset that is identical for identical options.
func Generate(opts Options) (*Dataset, error) {
	if err := utils.ValidateStruct(opts); err != nil {
		return nil, err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	g := newGenerator(opts.Email, now.UTC().Truncate(time.Second))

	ds := &Dataset{
		Sellers: make([]models.Seller, 0, SellerCount),
		Orders:  make([]models.Order, 0, opts.Orders),
	}
	for i := 1; i <= SellerCount; i++ {
		ds.Sellers = append(ds.Sellers, models.Seller{ID: i, Name: fmt.Sprintf("Seller %03d", i)})
	}

	var pool []string
	for id := 1; id <= opts.Orders; id++ {
		var externalId string
		if len(pool) > 0 && g.rng.Float64() < duplicateRate {
			externalId = pool[g.rng.IntN(len(pool))]
		} else {
			externalId = fmt.Sprintf("ORD-%d", 1_000_000_000+g.rng.Int64N(9_000_000_000))
			pool = append(pool, externalId)
		}

		date := g.dateWithin(opts.Days)
		channel := string(g.channel())
		sellerId := g.intRange(1, SellerCount)
		status := g.status()
		if g.rng.Float64() < missingSellerRate {
			sellerId = SellerCount + g.intRange(1, 3)
		}

		updatedAt := date.Add(time.Duration(g.intRange(1, 240)) * time.Hour)
		var deliveredAt *time.Time
		if status == models.OrderStatusDelivered {
			d := date.Add(time.Duration(g.intRange(2, 30))*24*time.Hour + time.Duration(g.intRange(1, 12))*time.Hour)
			deliveredAt = &d
			if g.rng.Float64() < lateUpdateRate {
				updatedAt = d.Add(time.Duration(g.intRange(1, 48)) * time.Hour)
			}
		}

		ds.Orders = append(ds.Orders, models.Order{
			ID:          id,
			ExternalId:  externalId,
			Date:        date,
			Channel:     channel,
			SellerId:    &sellerId,
			Status:      status,
			UpdatedAt:   updatedAt,
			DeliveredAt: deliveredAt,
		})

		for n := g.intRange(1, 5); n > 0; n-- {
			ds.Items = append(ds.Items, g.item(id))
		}
	}
	return ds, nil
}
