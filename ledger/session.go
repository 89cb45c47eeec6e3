package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/models"
)

// MerchantContext names the merchant an operation acts for. It is passed
// explicitly instead of living in process-wide state.
type MerchantContext struct {
	MerchantID uuid.UUID `json:"merchant_id"`
	UserID     string    `json:"user_id,omitempty"`
}

// Persister is the store side of a submit: it records the rows and returns the
// client balance after them.
type Persister interface {
	InsertMany(ctx context.Context, rows []models.Transaction) (decimal.Decimal, error)
}

// Preview is what the entry form shows while a cart is being built
type Preview struct {
	SessionID      uuid.UUID              `json:"session_id"`
	ClientID       uuid.UUID              `json:"client_id"`
	Type           models.TransactionType `json:"type"`
	Items          []LineItem             `json:"items"`
	Total          decimal.Decimal        `json:"total"`
	CurrentBalance decimal.Decimal        `json:"current_balance"`
	NewBalance     decimal.Decimal        `json:"new_balance"`
	Submitting     bool                   `json:"submitting"`
}

// SubmitResult is returned once the store accepted the rows
type SubmitResult struct {
	Rows    []models.Transaction `json:"rows"`
	Balance decimal.Decimal      `json:"balance"`
}

// EntrySession owns the cart of one transaction entry for one client.
type EntrySession struct {
	ID uuid.UUID

	mu         sync.Mutex
	merchant   MerchantContext
	client     models.Client
	txType     models.TransactionType
	cart       Cart
	submitting bool
	closed     bool
	now        func() time.Time
}

// NewEntrySession opens an entry for client, starting as a debit
func NewEntrySession(merchant MerchantContext, client models.Client) *EntrySession {
	return &EntrySession{
		ID:       uuid.New(),
		merchant: merchant,
		client:   client,
		txType:   models.Debit,
		now:      time.Now,
	}
}

func (s *EntrySession) Merchant() MerchantContext {
	return s.merchant
}

func (s *EntrySession) ClientID() uuid.UUID {
	return s.client.ID
}

// editable must be called with s.mu held
func (s *EntrySession) editable() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.submitting {
		return ErrSubmitInFlight
	}
	return nil
}

// SetType selects debit or credit for the whole cart
func (s *EntrySession) SetType(t models.TransactionType) error {
	if !t.Valid() {
		return ErrInvalidType
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.txType = t
	return nil
}

// AddItem composes in and appends it. On a validation error nothing changes.
func (s *EntrySession) AddItem(in ItemInput) (LineItem, error) {
	item, err := ComposeInput(in)
	if err != nil {
		return LineItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return LineItem{}, err
	}
	s.cart = s.cart.Append(item)
	return item, nil
}

func (s *EntrySession) RemoveItem(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	cart, err := s.cart.Remove(index)
	if err != nil {
		return err
	}
	s.cart = cart
	return nil
}

func (s *EntrySession) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.cart = s.cart.Clear()
	return nil
}

// Cancel discards the cart. Nothing was written, so there is nothing to undo.
func (s *EntrySession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = Cart{}
	s.closed = true
}

func (s *EntrySession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *EntrySession) Preview() Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Preview{
		SessionID:      s.ID,
		ClientID:       s.client.ID,
		Type:           s.txType,
		Items:          s.cart.Items(),
		Total:          s.cart.Total(),
		CurrentBalance: s.client.Balance,
		NewBalance:     s.cart.Project(s.client.Balance, s.txType),
		Submitting:     s.submitting,
	}
}

// Submit hands a snapshot of the cart to p. Only one submit runs at a time and
// the cart cannot be edited meanwhile. When p fails the cart is kept so the
// entry can be sent again; on success the session closes.
func (s *EntrySession) Submit(ctx context.Context, p Persister) (SubmitResult, error) {
	s.mu.Lock()
	if err := s.editable(); err != nil {
		s.mu.Unlock()
		return SubmitResult{}, err
	}
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return SubmitResult{}, ErrEmptyCart
	}
	s.submitting = true
	rows := Rows(s.merchant, s.client.ID, s.txType, s.cart, s.now())
	s.mu.Unlock()

	balance, err := p.InsertMany(ctx, rows)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		return SubmitResult{}, &PersistenceError{Err: err}
	}
	s.cart = Cart{}
	s.client.Balance = balance
	s.closed = true
	return SubmitResult{Rows: rows, Balance: balance}, nil
}

// Rows maps each line of cart to an independent ledger row
func Rows(merchant MerchantContext, clientID uuid.UUID, t models.TransactionType, cart Cart, at time.Time) []models.Transaction {
	rows := make([]models.Transaction, 0, cart.Len())
	for _, item := range cart.items {
		row := models.Transaction{
			ID:          uuid.New(),
			ClientID:    clientID,
			MerchantID:  merchant.MerchantID,
			Type:        t,
			Amount:      item.Total,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			CreatedAt:   at,
		}
		if item.WeightGrams.Valid {
			w := item.WeightGrams.Decimal
			row.WeightGrams = &w
		}
		rows = append(rows, row)
	}
	return rows
}
