package ledger

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceMode says how a line's unit price is read
type PriceMode int

const (
	PerUnit PriceMode = iota
	PerKilogram
)

func (m PriceMode) String() string {
	if m == PerKilogram {
		return "per_kilogram"
	}
	return "per_unit"
}

// grams to kilograms
const kilogramShift int32 = -3

// LineItem is one composed product line. Values are copied in and out of a Cart,
// so an item cannot change after it was added.
type LineItem struct {
	Description string              `json:"description"`
	Quantity    int                 `json:"quantity"`
	WeightGrams decimal.NullDecimal `json:"weight_grams"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Total       decimal.Decimal     `json:"total"`
}

// Mode is PerKilogram exactly when a weight was given.
func (li LineItem) Mode() PriceMode {
	if li.WeightGrams.Valid {
		return PerKilogram
	}
	return PerUnit
}

// ItemInput is the raw text of the item form
type ItemInput struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	WeightGrams string `json:"weight_grams"`
	UnitPrice   string `json:"unit_price"`
}

// Compose validates raw form input and builds a line item.
//
// An empty quantity means 1. A non-empty weight switches the unit price to a
// price per kilogram.
func Compose(description, quantityRaw, weightRaw, unitPriceRaw string) (LineItem, error) {
	if strings.TrimSpace(description) == "" {
		return LineItem{}, ErrEmptyDescription
	}

	price, err := ParseAmount(unitPriceRaw)
	if err != nil || !price.IsPositive() {
		return LineItem{}, ErrInvalidPrice
	}

	quantity := 1
	if q := strings.TrimSpace(quantityRaw); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			return LineItem{}, ErrInvalidQuantity
		}
		quantity = n
	}

	var weight decimal.NullDecimal
	if w := strings.TrimSpace(weightRaw); w != "" {
		grams, err := ParseAmount(w)
		if err != nil || !grams.IsPositive() {
			return LineItem{}, ErrInvalidWeight
		}
		weight = decimal.NewNullDecimal(grams)
	}

	return NewLineItem(description, quantity, weight, price)
}

// ComposeInput is Compose over an ItemInput
func ComposeInput(in ItemInput) (LineItem, error) {
	return Compose(in.Description, in.Quantity, in.WeightGrams, in.UnitPrice)
}

// NewLineItem builds a line item from already typed values
func NewLineItem(description string, quantity int, weight decimal.NullDecimal, unitPrice decimal.Decimal) (LineItem, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return LineItem{}, ErrEmptyDescription
	}
	if !unitPrice.IsPositive() {
		return LineItem{}, ErrInvalidPrice
	}
	if quantity <= 0 {
		return LineItem{}, ErrInvalidQuantity
	}
	if weight.Valid && !weight.Decimal.IsPositive() {
		return LineItem{}, ErrInvalidWeight
	}

	qty := decimal.NewFromInt(int64(quantity))
	total := unitPrice.Mul(qty)
	if weight.Valid {
		total = unitPrice.Mul(weight.Decimal.Shift(kilogramShift)).Mul(qty)
	}

	return LineItem{
		Description: description,
		Quantity:    quantity,
		WeightGrams: weight,
		UnitPrice:   unitPrice,
		Total:       total,
	}, nil
}

// ParseAmount reads a decimal typed by a user. A lone comma is taken as the
// decimal separator ("1,5").
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}
