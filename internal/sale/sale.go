package sale

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one catalog entry with an editable price and image reference
type LineItem struct {
	Name  string `json:"name"`
	Price string `json:"price"` // decimal string as typed, may be empty
	Image string `json:"image"` // URL, may be empty
}

// Sale is one persisted transaction. Sales are never updated or deleted.
type Sale struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Revenue holds sale amounts bucketed by calendar day and month
type Revenue struct {
	Today decimal.Decimal `json:"today"`
	Month decimal.Decimal `json:"month"`
}

var catalogNames = []string{
	"Espresso",
	"Cappuccino",
	"Nescaffe",
	"Tea",
	"Soft Drinks",
	"Meza",
	"Ice Tea",
	"Water",
	"Biliardo 3",
	"Biliardo 5",
	"Lahmi",
	"Kafta",
	"Tawook",
}

// Catalog returns a fresh copy of the fixed menu with empty prices and images
func Catalog() []LineItem {
	items := make([]LineItem, len(catalogNames))
	for i, name := range catalogNames {
		items[i] = LineItem{Name: name}
	}
	return items
}

// ParsePrice parses a price as typed by the cashier.
// Empty or unparseable input counts as zero.
func ParsePrice(price string) decimal.Decimal {
	price = strings.TrimSpace(price)
	if price == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Total sums the prices of all items
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(ParsePrice(item.Price))
	}
	return total
}

// indexOf finds a catalog item by name, ignoring case and surrounding space
func indexOf(items []LineItem, name string) int {
	name = strings.TrimSpace(name)
	for i, item := range items {
		if strings.EqualFold(item.Name, name) {
			return i
		}
	}
	return -1
}
