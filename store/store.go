// Package store persists merchants, clients and their ledger rows. The client
// balance is only ever changed together with the rows that explain it.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidRows = errors.New("invalid transaction rows")
	ErrConflict    = errors.New("conflicting record")
)

// Ledger stores transaction rows and keeps client balances in step with them
type Ledger interface {
	// InsertMany records rows of a single client and returns its new balance.
	InsertMany(ctx context.Context, rows []models.Transaction) (decimal.Decimal, error)
	// DeleteTransaction removes one row, reverting its effect on the balance.
	DeleteTransaction(ctx context.Context, merchantID, id uuid.UUID) (models.Transaction, decimal.Decimal, error)
	// DeleteClientTransactions removes every row of a client.
	DeleteClientTransactions(ctx context.Context, merchantID, clientID uuid.UUID) (int, error)
	// ListTransactions returns the rows of a client, newest first.
	ListTransactions(ctx context.Context, merchantID, clientID uuid.UUID) ([]models.Transaction, error)
	// Descriptions returns the distinct non-empty descriptions a merchant used.
	Descriptions(ctx context.Context, merchantID uuid.UUID) ([]string, error)
}

type Clients interface {
	CreateClient(ctx context.Context, c models.Client) (models.Client, error)
	GetClient(ctx context.Context, merchantID, id uuid.UUID) (models.Client, error)
	// GetClientByAccessCode only finds active clients.
	GetClientByAccessCode(ctx context.Context, code string) (models.Client, error)
	// ListClients returns the active clients, highest balance first.
	ListClients(ctx context.Context, merchantID uuid.UUID) ([]models.Client, error)
	DeleteClient(ctx context.Context, merchantID, id uuid.UUID) error
	UpdateClientAvatar(ctx context.Context, merchantID, id uuid.UUID, url string) error
	// AssignMissingAccessCodes gives a code to every client that lacks one.
	AssignMissingAccessCodes(ctx context.Context, merchantID uuid.UUID) (int, error)
}

type Merchants interface {
	GetMerchant(ctx context.Context, id uuid.UUID) (models.Merchant, error)
	UpsertMerchant(ctx context.Context, m models.Merchant) (models.Merchant, error)
}

// Store is everything the service needs from persistence
type Store interface {
	Ledger
	Clients
	Merchants
	Close()
}

// validateRows checks a batch belongs to one client of one merchant and that
// every row carries a type and a positive amount.
func validateRows(rows []models.Transaction) (merchantID, clientID uuid.UUID, err error) {
	if len(rows) == 0 {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: empty batch", ErrInvalidRows)
	}
	merchantID, clientID = rows[0].MerchantID, rows[0].ClientID
	for i, row := range rows {
		if row.MerchantID != merchantID || row.ClientID != clientID {
			return uuid.Nil, uuid.Nil, fmt.Errorf("%w: row %d belongs to another account", ErrInvalidRows, i)
		}
		if !row.Type.Valid() {
			return uuid.Nil, uuid.Nil, fmt.Errorf("%w: row %d has type %q", ErrInvalidRows, i, row.Type)
		}
		if !row.Amount.IsPositive() {
			return uuid.Nil, uuid.Nil, fmt.Errorf("%w: row %d amount must be positive", ErrInvalidRows, i)
		}
		if row.ID == uuid.Nil {
			return uuid.Nil, uuid.Nil, fmt.Errorf("%w: row %d has no id", ErrInvalidRows, i)
		}
	}
	return merchantID, clientID, nil
}

// newAccessCode returns the opaque token printed in a client's QR code
func newAccessCode() string {
	return uuid.NewString()
}
