package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/models"
)

// Cart is the ordered list of lines of one entry. The zero value is an empty cart.
// Every operation returns a new Cart and leaves the receiver unchanged.
type Cart struct {
	items []LineItem
}

// NewCart builds a cart holding items in the given order
func NewCart(items ...LineItem) Cart {
	return Cart{items: append([]LineItem(nil), items...)}
}

// Append adds item at the end. Repeated descriptions stay separate lines.
func (c Cart) Append(item LineItem) Cart {
	items := make([]LineItem, len(c.items), len(c.items)+1)
	copy(items, c.items)
	return Cart{items: append(items, item)}
}

// Remove drops the line at index
func (c Cart) Remove(index int) (Cart, error) {
	if index < 0 || index >= len(c.items) {
		return c, fmt.Errorf("%w: %d (cart has %d lines)", ErrIndexOutOfRange, index, len(c.items))
	}
	items := make([]LineItem, 0, len(c.items)-1)
	items = append(items, c.items[:index]...)
	items = append(items, c.items[index+1:]...)
	return Cart{items: items}, nil
}

// Clear returns an empty cart
func (c Cart) Clear() Cart {
	return Cart{}
}

// Total is the sum of all line totals
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Total)
	}
	return total
}

// Project returns the balance the client would have after this cart is recorded as t
func (c Cart) Project(currentBalance decimal.Decimal, t models.TransactionType) decimal.Decimal {
	return Project(currentBalance, c.Total(), t)
}

// Items returns a copy of the lines in insertion order
func (c Cart) Items() []LineItem {
	return append([]LineItem{}, c.items...)
}

func (c Cart) Len() int {
	return len(c.items)
}

func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Project adds amount to a debit balance and subtracts it for anything else.
func Project(currentBalance, amount decimal.Decimal, t models.TransactionType) decimal.Decimal {
	if t == models.Debit {
		return currentBalance.Add(amount)
	}
	return currentBalance.Sub(amount)
}
