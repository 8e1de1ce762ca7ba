package domain

import (
	"fmt"
	"strings"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/shopspring/decimal"
)

type DiscountKind string

const (
	KindPercentage  DiscountKind = "percentage"
	KindFixedAmount DiscountKind = "fixed_amount"
)

func (k DiscountKind) Valid() bool {
	return k == KindPercentage || k == KindFixedAmount
}

// ParseDiscountKind accepts "fixed-amount" as an alias of fixed_amount.
func ParseDiscountKind(raw string) DiscountKind {
	value := strings.ToLower(strings.TrimSpace(raw))
	return DiscountKind(strings.ReplaceAll(value, "-", "_"))
}

var hundred = decimal.NewFromInt(100)

// Promotion is a time-boxed discount on one product. OriginalPrice and
// Currency are snapshots; SalePrice and Savings are derived from them.
type Promotion struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"product_id"`
	Kind          DiscountKind    `json:"kind"`
	Value         decimal.Decimal `json:"value"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Savings       decimal.Decimal `json:"savings"`
	Currency      string          `json:"currency"`
	StartsAt      time.Time       `json:"starts_at"`
	EndsAt        time.Time       `json:"ends_at"`
	StockCap      *int32          `json:"stock_cap,omitempty"`
	SoldCount     int32           `json:"sold_count"`
	Enabled       bool            `json:"enabled"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Pricing struct {
	SalePrice decimal.Decimal
	Savings   decimal.Decimal
}

// computePricing applies the discount without checking preconditions. The
// sale price never drops below zero and is rounded half away from zero to
// cents.
func computePricing(original decimal.Decimal, kind DiscountKind, value decimal.Decimal) Pricing {
	var sale decimal.Decimal
	switch kind {
	case KindPercentage:
		sale = original.Mul(hundred.Sub(value)).Div(hundred)
	case KindFixedAmount:
		sale = original.Sub(value)
	default:
		sale = original
	}

	if sale.IsNegative() {
		sale = decimal.Zero
	}
	sale = sale.Round(2)

	return Pricing{
		SalePrice: sale,
		Savings:   original.Sub(sale).Round(2),
	}
}

// DerivePricing computes the sale price and savings for a discount.
func DerivePricing(original decimal.Decimal, kind DiscountKind, value decimal.Decimal) (Pricing, error) {
	v := generalDomain.NewValidationError()
	if !original.IsPositive() {
		v.Add("original_price", "original price must be greater than 0")
	}
	if !kind.Valid() {
		v.Add("kind", fmt.Sprintf("kind must be %s or %s", KindPercentage, KindFixedAmount))
	}
	if !value.IsPositive() {
		v.Add("value", "value must be greater than 0")
	} else if kind == KindPercentage && value.GreaterThan(hundred) {
		v.Add("value", "percentage discount cannot exceed 100")
	}
	if err := v.OrNil(); err != nil {
		return Pricing{}, err
	}

	return computePricing(original, kind, value), nil
}

func (p *Promotion) ApplyPricing() error {
	pricing, err := DerivePricing(p.OriginalPrice, p.Kind, p.Value)
	if err != nil {
		return err
	}

	p.SalePrice = pricing.SalePrice
	p.Savings = pricing.Savings
	return nil
}

// IsActive reports whether the promotion is enabled and now lies within
// [StartsAt, EndsAt], both ends included.
func (p *Promotion) IsActive(now time.Time) bool {
	return p.Enabled && !now.Before(p.StartsAt) && !now.After(p.EndsAt)
}

func (p *Promotion) Exhausted() bool {
	return p.StockCap != nil && p.SoldCount >= *p.StockCap
}

// Available is IsActive plus remaining promotional stock.
func (p *Promotion) Available(now time.Time) bool {
	return p.IsActive(now) && !p.Exhausted()
}

// PercentOff is the savings as a whole percentage of the original price.
func (p *Promotion) PercentOff() int64 {
	if !p.OriginalPrice.IsPositive() {
		return 0
	}
	return p.Savings.Div(p.OriginalPrice).Mul(hundred).Round(0).IntPart()
}

// PromotionInput is the administrator-supplied part of a promotion.
// OriginalPrice overrides the product's current price when set.
type PromotionInput struct {
	ProductID     int64
	Kind          DiscountKind
	Value         decimal.Decimal
	OriginalPrice *decimal.Decimal
	StartsAt      *time.Time
	EndsAt        *time.Time
	StockCap      *int32
	Enabled       bool
}

// Validate checks the input against the original price it will be priced
// from. Every failing rule is reported; nothing may be written on error.
func (in PromotionInput) Validate(original decimal.Decimal) error {
	v := generalDomain.NewValidationError()

	if in.ProductID <= 0 {
		v.Add("product_id", "product is required")
	}

	if !in.Kind.Valid() {
		v.Add("kind", fmt.Sprintf("kind must be %s or %s", KindPercentage, KindFixedAmount))
	}

	if !in.Value.IsPositive() {
		v.Add("value", "value must be greater than 0")
	} else if !generalDomain.IsCents(in.Value) {
		v.Add("value", "value must have at most 2 decimal places")
	} else if in.Kind == KindPercentage && in.Value.GreaterThan(hundred) {
		v.Add("value", "percentage discount cannot exceed 100")
	}

	if in.StartsAt == nil {
		v.Add("starts_at", "start date is required")
	}
	if in.EndsAt == nil {
		v.Add("ends_at", "end date is required")
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		v.Add("ends_at", "end date must not be before start date")
	}

	if !original.IsPositive() {
		v.Add("original_price", "original price must be greater than 0")
	} else if !generalDomain.IsCents(original) {
		v.Add("original_price", "original price must be a whole number of cents")
	} else if in.Kind.Valid() && generalDomain.IsCents(in.Value) {
		pricing := computePricing(original, in.Kind, in.Value)
		if !pricing.SalePrice.LessThan(original) {
			v.Add("sale_price", "salePrice must be less than originalPrice")
		}
	}

	if in.StockCap != nil && *in.StockCap < 1 {
		v.Add("stock_cap", "stock cap must be at least 1")
	}

	return v.OrNil()
}

// Build validates the input and returns a priced promotion. The caller
// fills in identity and timestamps.
func (in PromotionInput) Build(original decimal.Decimal, currency string) (*Promotion, error) {
	if err := in.Validate(original); err != nil {
		return nil, err
	}

	p := &Promotion{
		ProductID:     in.ProductID,
		Kind:          in.Kind,
		Value:         in.Value,
		OriginalPrice: original,
		Currency:      currency,
		StartsAt:      in.StartsAt.UTC(),
		EndsAt:        in.EndsAt.UTC(),
		StockCap:      in.StockCap,
		Enabled:       in.Enabled,
	}

	if err := p.ApplyPricing(); err != nil {
		return nil, err
	}

	return p, nil
}

type PromotionFilter struct {
	ProductID *int64
	ActiveAt  *time.Time
	Limit     int
	Offset    int
}
