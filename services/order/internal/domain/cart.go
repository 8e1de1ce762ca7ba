package domain

import (
	"fmt"
	"strings"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/shopspring/decimal"
)

// CartItem carries the product snapshot taken when it was put in the cart.
type CartItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int32           `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
	Currency  string          `json:"currency"`
}

// Cart is scoped to one browsing session. The currency is fixed by the
// first item added.
type Cart struct {
	SessionID string     `json:"session_id"`
	Currency  string     `json:"currency,omitempty"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(sessionID string) *Cart {
	return &Cart{
		SessionID: sessionID,
		Items:     []CartItem{},
	}
}

func (c *Cart) find(productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem merges quantities for a product already in the cart.
func (c *Cart) AddItem(item CartItem) error {
	v := generalDomain.NewValidationError()
	if item.ProductID <= 0 {
		v.Add("product_id", "product reference is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		v.Add("name", "name is required")
	}
	if item.Quantity <= 0 {
		v.Add("quantity", "quantity must be greater than 0")
	} else if item.Quantity > MaxLineQuantity {
		v.Add("quantity", fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity))
	}
	if item.UnitPrice.IsNegative() {
		v.Add("unit_price", "unit price must not be negative")
	} else if !generalDomain.IsCents(item.UnitPrice) {
		v.Add("unit_price", "unit price must be a whole number of cents")
	}
	if strings.TrimSpace(item.Currency) == "" {
		v.Add("currency", "currency is required")
	} else if !generalDomain.IsCurrencyCode(item.Currency) {
		v.Add("currency", "currency must be a three-letter code")
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	if c.Currency == "" || len(c.Items) == 0 {
		c.Currency = item.Currency
	} else if item.Currency != c.Currency {
		return generalDomain.Invalid("currency", fmt.Sprintf("cart is in %s, cannot add an item priced in %s", c.Currency, item.Currency))
	}

	if idx := c.find(item.ProductID); idx >= 0 {
		merged := int64(c.Items[idx].Quantity) + int64(item.Quantity)
		if merged > int64(MaxLineQuantity) {
			return generalDomain.Invalid("quantity", fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity))
		}
		c.Items[idx].Quantity = int32(merged)
		return nil
	}

	c.Items = append(c.Items, item)
	return nil
}

// SetQuantity overwrites the quantity of a line; zero removes it.
func (c *Cart) SetQuantity(productID int64, quantity int32) error {
	if quantity < 0 {
		return generalDomain.Invalid("quantity", "quantity must not be negative")
	}
	if quantity > MaxLineQuantity {
		return generalDomain.Invalid("quantity", fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity))
	}

	idx := c.find(productID)
	if idx < 0 {
		return generalDomain.NewNotFound("cart item", productID)
	}

	if quantity == 0 {
		c.removeAt(idx)
		return nil
	}

	c.Items[idx].Quantity = quantity
	return nil
}

func (c *Cart) RemoveItem(productID int64) error {
	idx := c.find(productID)
	if idx < 0 {
		return generalDomain.NewNotFound("cart item", productID)
	}
	c.removeAt(idx)
	return nil
}

func (c *Cart) removeAt(idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	if len(c.Items) == 0 {
		c.Currency = ""
	}
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Currency = ""
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) Total() decimal.Decimal {
	return ComputeTotal(c.OrderItems())
}

// OrderItems converts cart lines into order line snapshots.
func (c *Cart) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
			Currency:  item.Currency,
		})
	}
	return items
}
