package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Merchant is the shopkeeper account that owns a set of clients
type Merchant struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"nombre_comercio"`
	Phone     *string   `json:"telefono"`
	LogoURL   *string   `json:"logo_url"`
	AvatarURL *string   `json:"avatar_url"`
	CoverURL  *string   `json:"portada_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is a customer with a running balance at one merchant
type Client struct {
	ID          uuid.UUID       `json:"id"`
	MerchantID  uuid.UUID       `json:"comercio_id"`
	Name        string          `json:"nombre"`
	Phone       *string         `json:"telefono"`
	AvatarURL   *string         `json:"avatar_url"`
	CreditLimit decimal.Decimal `json:"limite_credito"`
	Balance     decimal.Decimal `json:"saldo_actual"`
	Notes       *string         `json:"notas"`
	Active      bool            `json:"activo"`
	Email       *string         `json:"email"`
	AccessCode  *string         `json:"access_code"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HasDebt reports whether the client owes anything
func (c Client) HasDebt() bool {
	return c.Balance.IsPositive()
}

// AtRisk reports whether the client reached a non-zero credit limit
func (c Client) AtRisk() bool {
	return c.CreditLimit.IsPositive() && c.Balance.GreaterThanOrEqual(c.CreditLimit)
}
