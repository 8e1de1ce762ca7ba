package domain

import (
	"errors"
	"testing"
	"time"

	generalDomain "github.com/chezmonami/platform/pkg/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDerivePricing(t *testing.T) {
	tests := []struct {
		name     string
		original string
		kind     DiscountKind
		value    string
		sale     string
		savings  string
	}{
		{"percentage", "1000", KindPercentage, "20", "800", "200"},
		{"fixed amount", "1000", KindFixedAmount, "150", "850", "150"},
		{"fixed amount above price clamps to zero", "1000", KindFixedAmount, "1500", "0", "1000"},
		{"full percentage", "1000", KindPercentage, "100", "0", "1000"},
		{"rounds half away from zero", "9.99", KindPercentage, "50", "5", "4.99"},
		{"rounds to cents", "33.33", KindPercentage, "10", "30", "3.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DerivePricing(dec(tt.original), tt.kind, dec(tt.value))
			require.NoError(t, err)
			require.True(t, dec(tt.sale).Equal(p.SalePrice), "sale price %s", p.SalePrice)
			require.True(t, dec(tt.savings).Equal(p.Savings), "savings %s", p.Savings)
			require.True(t, dec(tt.original).Equal(p.SalePrice.Add(p.Savings)))
		})
	}
}

func TestDerivePricing_Preconditions(t *testing.T) {
	tests := []struct {
		name     string
		original string
		kind     DiscountKind
		value    string
		field    string
	}{
		{"zero original", "0", KindPercentage, "10", "original_price"},
		{"unknown kind", "1000", DiscountKind("bogo"), "10", "kind"},
		{"zero value", "1000", KindFixedAmount, "0", "value"},
		{"negative value", "1000", KindFixedAmount, "-5", "value"},
		{"percentage over 100", "1000", KindPercentage, "120", "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DerivePricing(dec(tt.original), tt.kind, dec(tt.value))
			require.ErrorIs(t, err, generalDomain.ErrValidation)

			var v *generalDomain.ValidationError
			require.True(t, errors.As(err, &v))
			require.Contains(t, v.Fields, tt.field)
		})
	}
}

func TestPromotion_PercentOff(t *testing.T) {
	p := &Promotion{OriginalPrice: dec("1000"), Kind: KindPercentage, Value: dec("20")}
	require.NoError(t, p.ApplyPricing())
	require.Equal(t, int64(20), p.PercentOff())

	p = &Promotion{OriginalPrice: dec("3"), Kind: KindFixedAmount, Value: dec("1")}
	require.NoError(t, p.ApplyPricing())
	require.Equal(t, int64(33), p.PercentOff())

	require.Equal(t, int64(0), (&Promotion{}).PercentOff())
}

func TestPromotion_IsActive(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	p := &Promotion{Enabled: true, StartsAt: start, EndsAt: end}

	require.True(t, p.IsActive(start))
	require.True(t, p.IsActive(end))
	require.True(t, p.IsActive(start.Add(48*time.Hour)))
	require.False(t, p.IsActive(start.Add(-time.Second)))
	require.False(t, p.IsActive(end.Add(time.Second)))

	p.Enabled = false
	require.False(t, p.IsActive(start.Add(48*time.Hour)))
}

func TestPromotion_Available(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	limit := int32(2)
	p := &Promotion{Enabled: true, StartsAt: start, EndsAt: start.Add(time.Hour), StockCap: &limit}
	now := start.Add(time.Minute)

	require.True(t, p.Available(now))

	p.SoldCount = 2
	require.True(t, p.Exhausted())
	require.True(t, p.IsActive(now))
	require.False(t, p.Available(now))

	p.StockCap = nil
	require.True(t, p.Available(now))
}

func validInput() PromotionInput {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)
	return PromotionInput{
		ProductID: 1,
		Kind:      KindPercentage,
		Value:     dec("20"),
		StartsAt:  &start,
		EndsAt:    &end,
		Enabled:   true,
	}
}

func TestPromotionInput_Build(t *testing.T) {
	p, err := validInput().Build(dec("1000"), "XOF")
	require.NoError(t, err)
	require.True(t, dec("800").Equal(p.SalePrice))
	require.True(t, dec("200").Equal(p.Savings))
	require.Equal(t, "XOF", p.Currency)
	require.True(t, p.Enabled)
}

func TestPromotionInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *PromotionInput)
		field   string
		message string
	}{
		{
			name:    "zero value leaves price unchanged",
			mutate:  func(in *PromotionInput) { in.Kind = KindFixedAmount; in.Value = decimal.Zero },
			field:   "sale_price",
			message: "salePrice must be less than originalPrice",
		},
		{
			name:   "percentage over 100",
			mutate: func(in *PromotionInput) { in.Value = dec("120") },
			field:  "value",
		},
		{
			name:   "missing product",
			mutate: func(in *PromotionInput) { in.ProductID = 0 },
			field:  "product_id",
		},
		{
			name:   "missing start",
			mutate: func(in *PromotionInput) { in.StartsAt = nil },
			field:  "starts_at",
		},
		{
			name: "end before start",
			mutate: func(in *PromotionInput) {
				end := in.StartsAt.Add(-time.Hour)
				in.EndsAt = &end
			},
			field: "ends_at",
		},
		{
			name: "stock cap below one",
			mutate: func(in *PromotionInput) {
				limit := int32(0)
				in.StockCap = &limit
			},
			field: "stock_cap",
		},
		{
			name:   "unknown kind",
			mutate: func(in *PromotionInput) { in.Kind = "bogo" },
			field:  "kind",
		},
		{
			name:    "sub-cent percentage",
			mutate:  func(in *PromotionInput) { in.Value = dec("0.001") },
			field:   "value",
			message: "value must have at most 2 decimal places",
		},
		{
			name:   "sub-cent fixed amount",
			mutate: func(in *PromotionInput) { in.Kind = KindFixedAmount; in.Value = dec("10.005") },
			field:  "value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, err := in.Build(dec("1000"), "XOF")
			require.ErrorIs(t, err, generalDomain.ErrValidation)

			var v *generalDomain.ValidationError
			require.True(t, errors.As(err, &v))
			require.Contains(t, v.Fields, tt.field)
			if tt.message != "" {
				require.Equal(t, tt.message, v.Fields[tt.field])
			}
		})
	}
}

func TestPromotionInput_ZeroOriginalRejected(t *testing.T) {
	err := validInput().Validate(decimal.Zero)
	require.ErrorIs(t, err, generalDomain.ErrValidation)
}

func TestPromotionInput_SubCentOriginalRejected(t *testing.T) {
	err := validInput().Validate(dec("999.999"))

	var v *generalDomain.ValidationError
	require.ErrorAs(t, err, &v)
	require.Contains(t, v.Fields, "original_price")
}

func TestParseDiscountKind(t *testing.T) {
	require.Equal(t, KindFixedAmount, ParseDiscountKind(" Fixed-Amount "))
	require.Equal(t, KindPercentage, ParseDiscountKind("PERCENTAGE"))
	require.False(t, ParseDiscountKind("bogo").Valid())
}
