package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a ledger entry
type TransactionType string

const (
	// Debit is a purchase on credit; it increases what the client owes.
	Debit TransactionType = "deuda"
	// Credit is a payment; it reduces what the client owes.
	Credit TransactionType = "pago"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	return t == Debit || t == Credit
}

// ParseTransactionType accepts the stored names and their English aliases
func ParseTransactionType(s string) (TransactionType, bool) {
	switch s {
	case string(Debit), "debit":
		return Debit, true
	case string(Credit), "credit":
		return Credit, true
	}
	return "", false
}

// Transaction is one persisted ledger row
type Transaction struct {
	ID             uuid.UUID        `json:"id"`
	ClientID       uuid.UUID        `json:"cliente_id"`
	MerchantID     uuid.UUID        `json:"comercio_id"`
	Type           TransactionType  `json:"tipo"`
	Amount         decimal.Decimal  `json:"monto"`
	Description    string           `json:"descripcion"`
	Quantity       int              `json:"cantidad"`
	UnitPrice      decimal.Decimal  `json:"precio_unitario"`
	WeightGrams    *decimal.Decimal `json:"peso_gramos,omitempty"`
	TicketPhotoURL *string          `json:"foto_ticket_url,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Signed returns the amount with the sign it applies to the client balance
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Credit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// BalanceDelta sums the signed amounts of a batch of rows
func BalanceDelta(rows []Transaction) decimal.Decimal {
	delta := decimal.Zero
	for _, row := range rows {
		delta = delta.Add(row.Signed())
	}
	return delta
}
