package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/models"
)

var _ Store = (*Memory)(nil)

// Memory is a Store kept in process memory. It backs tests and runs without a database.
type Memory struct {
	mu           sync.RWMutex
	merchants    map[uuid.UUID]models.Merchant
	clients      map[uuid.UUID]models.Client
	transactions map[uuid.UUID]models.Transaction
	// FailInserts makes InsertMany fail with this error when set
	FailInserts error
}

func NewMemory() *Memory {
	return &Memory{
		merchants:    make(map[uuid.UUID]models.Merchant),
		clients:      make(map[uuid.UUID]models.Client),
		transactions: make(map[uuid.UUID]models.Transaction),
	}
}

func (m *Memory) Close() {}

func (m *Memory) InsertMany(_ context.Context, rows []models.Transaction) (decimal.Decimal, error) {
	merchantID, clientID, err := validateRows(rows)
	if err != nil {
		return decimal.Zero, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInserts != nil {
		return decimal.Zero, m.FailInserts
	}

	client, ok := m.clients[clientID]
	if !ok || client.MerchantID != merchantID {
		return decimal.Zero, fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}
	batch := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		if _, exists := m.transactions[row.ID]; exists || batch[row.ID] {
			return decimal.Zero, fmt.Errorf("transaction %s: %w", row.ID, ErrConflict)
		}
		batch[row.ID] = true
	}

	now := time.Now().UTC()
	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		m.transactions[row.ID] = row
	}
	client.Balance = client.Balance.Add(models.BalanceDelta(rows))
	m.clients[clientID] = client
	return client.Balance, nil
}

func (m *Memory) DeleteTransaction(_ context.Context, merchantID, id uuid.UUID) (models.Transaction, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok || tx.MerchantID != merchantID {
		return models.Transaction{}, decimal.Zero, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	delete(m.transactions, id)

	client := m.clients[tx.ClientID]
	client.Balance = client.Balance.Sub(tx.Signed())
	m.clients[tx.ClientID] = client
	return tx, client.Balance, nil
}

func (m *Memory) DeleteClientTransactions(_ context.Context, merchantID, clientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, ok := m.clients[clientID]
	if !ok || client.MerchantID != merchantID {
		return 0, fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}

	n := 0
	for id, tx := range m.transactions {
		if tx.ClientID != clientID {
			continue
		}
		client.Balance = client.Balance.Sub(tx.Signed())
		delete(m.transactions, id)
		n++
	}
	m.clients[clientID] = client
	return n, nil
}

func (m *Memory) ListTransactions(_ context.Context, merchantID, clientID uuid.UUID) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := []models.Transaction{}
	for _, tx := range m.transactions {
		if tx.ClientID == clientID && tx.MerchantID == merchantID {
			txs = append(txs, tx)
		}
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	return txs, nil
}

func (m *Memory) Descriptions(_ context.Context, merchantID uuid.UUID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, tx := range m.transactions {
		if tx.MerchantID != merchantID || tx.Description == "" || seen[tx.Description] {
			continue
		}
		seen[tx.Description] = true
		out = append(out, tx.Description)
	}
	return out, nil
}

func (m *Memory) CreateClient(_ context.Context, c models.Client) (models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.merchants[c.MerchantID]; !ok {
		return models.Client{}, fmt.Errorf("merchant %s: %w", c.MerchantID, ErrNotFound)
	}

	code := newAccessCode()
	c.ID = uuid.New()
	c.AccessCode = &code
	c.Active = true
	c.Balance = decimal.Zero
	c.CreatedAt = time.Now().UTC()
	m.clients[c.ID] = c
	return c, nil
}

func (m *Memory) GetClient(_ context.Context, merchantID, id uuid.UUID) (models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok || c.MerchantID != merchantID {
		return models.Client{}, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *Memory) GetClientByAccessCode(_ context.Context, code string) (models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.clients {
		if c.Active && c.AccessCode != nil && *c.AccessCode == code {
			return c, nil
		}
	}
	return models.Client{}, fmt.Errorf("access code: %w", ErrNotFound)
}

func (m *Memory) ListClients(_ context.Context, merchantID uuid.UUID) ([]models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := []models.Client{}
	for _, c := range m.clients {
		if c.MerchantID == merchantID && c.Active {
			clients = append(clients, c)
		}
	}
	sort.SliceStable(clients, func(i, j int) bool {
		return clients[i].Balance.GreaterThan(clients[j].Balance)
	})
	return clients, nil
}

func (m *Memory) DeleteClient(_ context.Context, merchantID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[id]
	if !ok || c.MerchantID != merchantID {
		return fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	delete(m.clients, id)
	for txID, tx := range m.transactions {
		if tx.ClientID == id {
			delete(m.transactions, txID)
		}
	}
	return nil
}

func (m *Memory) UpdateClientAvatar(_ context.Context, merchantID, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[id]
	if !ok || c.MerchantID != merchantID {
		return fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	c.AvatarURL = &url
	m.clients[id] = c
	return nil
}

func (m *Memory) AssignMissingAccessCodes(_ context.Context, merchantID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, c := range m.clients {
		if c.MerchantID != merchantID || c.AccessCode != nil {
			continue
		}
		code := newAccessCode()
		c.AccessCode = &code
		c.Active = true
		m.clients[id] = c
		n++
	}
	return n, nil
}

func (m *Memory) GetMerchant(_ context.Context, id uuid.UUID) (models.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	merchant, ok := m.merchants[id]
	if !ok {
		return models.Merchant{}, fmt.Errorf("merchant %s: %w", id, ErrNotFound)
	}
	return merchant, nil
}

func (m *Memory) UpsertMerchant(_ context.Context, merchant models.Merchant) (models.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.merchants[merchant.ID]; ok {
		merchant.CreatedAt = existing.CreatedAt
	} else {
		merchant.CreatedAt = time.Now().UTC()
	}
	m.merchants[merchant.ID] = merchant
	return merchant, nil
}

// PutClient stores c as given, bypassing CreateClient defaults. Used to seed
// legacy rows such as clients that predate access codes.
func (m *Memory) PutClient(c models.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
}
