package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity bounds a single order or cart line.
const MaxLineQuantity int32 = 9999

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Message string `json:"message,omitempty"`
}

// OrderItem is a snapshot of the product taken at checkout; later product
// edits never reach it.
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"order_id" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity  int32           `json:"quantity" db:"quantity"`
	ImageURL  string          `json:"image_url,omitempty" db:"image_url"`
	Currency  string          `json:"currency" db:"currency"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

type Order struct {
	ID             int64           `json:"id" db:"id"`
	Number         string          `json:"number" db:"number"`
	Status         OrderStatus     `json:"status" db:"status"`
	Customer       Customer        `json:"customer"`
	Items          []OrderItem     `json:"items"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	Currency       string          `json:"currency" db:"currency"`
	TrackingNumber *string         `json:"tracking_number,omitempty" db:"tracking_number"`
	AdminNote      *string         `json:"admin_note,omitempty" db:"admin_note"`
	Revision       int64           `json:"revision" db:"revision"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ComputeTotal sums unit price times quantity. Validated items are priced in
// whole cents, so the sum is exact and equals the sum of the stored lines.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (o *Order) CalculateTotal() {
	o.TotalAmount = ComputeTotal(o.Items)
}

// IsInfoIncomplete flags orders that skipped the full checkout (e.g. chat
// commerce) and still lack an email or a delivery address.
func (o *Order) IsInfoIncomplete() bool {
	return strings.TrimSpace(o.Customer.Email) == "" || strings.TrimSpace(o.Customer.Address) == ""
}

// NewOrderNumber returns a number such as CMA-20261016-3F9A1C.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("CMA-%s-%s", now.UTC().Format("20060102"), suffix)
}

type HistoryEntry struct {
	ID             int64       `json:"id" db:"id"`
	OrderID        int64       `json:"order_id" db:"order_id"`
	PreviousStatus OrderStatus `json:"previous_status" db:"previous_status"`
	NewStatus      OrderStatus `json:"new_status" db:"new_status"`
	Comment        *string     `json:"comment,omitempty" db:"comment"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

type StatusUpdate struct {
	Status           string
	Comment          string
	TrackingNumber   *string
	ExpectedRevision *int64
}

// Contact is the customer block an administrator fills in after the fact.
type Contact struct {
	Name    string
	Phone   string
	Email   string
	Address string
	Message string
}

func (c Contact) Normalize() Contact {
	return Contact{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Email:   strings.TrimSpace(c.Email),
		Address: strings.TrimSpace(c.Address),
		Message: strings.TrimSpace(c.Message),
	}
}

func (c Contact) Validate() error {
	v := generalDomain.NewValidationError()
	if strings.TrimSpace(c.Name) == "" {
		v.Add("name", "name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		v.Add("phone", "phone is required")
	}
	return v.OrNil()
}

func (c Contact) Customer() Customer {
	return Customer{
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Address: c.Address,
		Message: c.Message,
	}
}

type NewOrder struct {
	Contact  Contact
	Items    []OrderItem
	Currency string
}

func (n NewOrder) Validate() error {
	v := generalDomain.NewValidationError()

	var contactErr *generalDomain.ValidationError
	if errors.As(n.Contact.Validate(), &contactErr) {
		for field, msg := range contactErr.Fields {
			v.Add(field, msg)
		}
	}

	if strings.TrimSpace(n.Currency) == "" {
		v.Add("currency", "currency is required")
	} else if !generalDomain.IsCurrencyCode(n.Currency) {
		v.Add("currency", "currency must be a three-letter code")
	}

	if len(n.Items) == 0 {
		v.Add("items", "order must contain at least one item")
	}

	for i, item := range n.Items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case item.ProductID <= 0:
			v.Add(field, "product reference is required")
		case strings.TrimSpace(item.Name) == "":
			v.Add(field, "name is required")
		case item.Quantity <= 0:
			v.Add(field, "quantity must be greater than 0")
		case item.Quantity > MaxLineQuantity:
			v.Add(field, fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity))
		case item.UnitPrice.IsNegative():
			v.Add(field, "unit price must not be negative")
		case !generalDomain.IsCents(item.UnitPrice):
			v.Add(field, "unit price must be a whole number of cents")
		case item.Currency != "" && item.Currency != n.Currency:
			v.Add(field, fmt.Sprintf("currency %s does not match order currency %s", item.Currency, n.Currency))
		}
	}

	if v.Empty() && !generalDomain.IsCents(ComputeTotal(n.Items)) {
		v.Add("total_amount", "order total is too large")
	}

	return v.OrNil()
}

type ListFilter struct {
	Status     *OrderStatus
	Incomplete *bool
	Limit      int
	Offset     int
}
