package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/models"
)

// Schema creates the tables the service needs. Balances live on clients and are
// only written by the same transaction that writes the rows.
const Schema = `
CREATE TABLE IF NOT EXISTS merchants (
	id          uuid PRIMARY KEY,
	user_id     text NOT NULL DEFAULT '',
	name        text NOT NULL,
	phone       text,
	logo_url    text,
	avatar_url  text,
	cover_url   text,
	created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clients (
	id            uuid PRIMARY KEY,
	merchant_id   uuid NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
	name          text NOT NULL,
	phone         text,
	avatar_url    text,
	credit_limit  numeric NOT NULL DEFAULT 0,
	balance       numeric NOT NULL DEFAULT 0,
	notes         text,
	active        boolean NOT NULL DEFAULT true,
	email         text,
	access_code   text UNIQUE,
	created_at    timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS clients_merchant_idx ON clients (merchant_id, balance DESC);

CREATE TABLE IF NOT EXISTS transactions (
	id                uuid PRIMARY KEY,
	client_id         uuid NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
	merchant_id       uuid NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
	type              text NOT NULL CHECK (type IN ('deuda', 'pago')),
	amount            numeric NOT NULL CHECK (amount > 0),
	description       text,
	quantity          integer NOT NULL DEFAULT 1,
	unit_price        numeric,
	weight_grams      numeric,
	ticket_photo_url  text,
	created_at        timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS transactions_client_idx ON transactions (client_id, created_at DESC);
CREATE INDEX IF NOT EXISTS transactions_merchant_idx ON transactions (merchant_id);
`

const (
	clientColumns = `id, merchant_id, name, phone, avatar_url, credit_limit, balance, notes, active, email, access_code, created_at`
	txColumns     = `id, client_id, merchant_id, type, amount, coalesce(description, ''), quantity, coalesce(unit_price, 0), weight_grams, ticket_photo_url, created_at`
)

var _ Store = (*Postgres)(nil)

// Postgres is the Store backed by a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and checks the connection
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// Migrate applies Schema
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) InsertMany(ctx context.Context, rows []models.Transaction) (decimal.Decimal, error) {
	merchantID, clientID, err := validateRows(rows)
	if err != nil {
		return decimal.Zero, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		createdAt := row.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO transactions (
				id, client_id, merchant_id, type, amount, description,
				quantity, unit_price, weight_grams, ticket_photo_url, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			row.ID, row.ClientID, row.MerchantID, string(row.Type), row.Amount, nullable(row.Description),
			row.Quantity, row.UnitPrice, row.WeightGrams, row.TicketPhotoURL, createdAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return decimal.Zero, mapPgError(err)
	}

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `
		UPDATE clients SET balance = balance + $3
		WHERE id = $1 AND merchant_id = $2
		RETURNING balance`,
		clientID, merchantID, models.BalanceDelta(rows),
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return balance, nil
}

func (p *Postgres) DeleteTransaction(ctx context.Context, merchantID, id uuid.UUID) (models.Transaction, decimal.Decimal, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return models.Transaction{}, decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row, err := scanTransaction(tx.QueryRow(ctx,
		`DELETE FROM transactions WHERE id = $1 AND merchant_id = $2 RETURNING `+txColumns,
		id, merchantID))
	if err != nil {
		return models.Transaction{}, decimal.Zero, mapPgError(err)
	}

	var balance decimal.Decimal
	err = tx.QueryRow(ctx,
		`UPDATE clients SET balance = balance - $2 WHERE id = $1 RETURNING balance`,
		row.ClientID, row.Signed(),
	).Scan(&balance)
	if err != nil {
		return models.Transaction{}, decimal.Zero, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Transaction{}, decimal.Zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return row, balance, nil
}

func (p *Postgres) DeleteClientTransactions(ctx context.Context, merchantID, clientID uuid.UUID) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var n int
	var delta decimal.Decimal
	err = tx.QueryRow(ctx, `
		WITH removed AS (
			DELETE FROM transactions WHERE client_id = $1 AND merchant_id = $2
			RETURNING CASE WHEN type = 'pago' THEN -amount ELSE amount END AS signed
		)
		SELECT count(*), coalesce(sum(signed), 0) FROM removed`,
		clientID, merchantID,
	).Scan(&n, &delta)
	if err != nil {
		return 0, mapPgError(err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE clients SET balance = balance - $3 WHERE id = $1 AND merchant_id = $2`,
		clientID, merchantID, delta)
	if err != nil {
		return 0, mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

func (p *Postgres) ListTransactions(ctx context.Context, merchantID, clientID uuid.UUID) ([]models.Transaction, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+txColumns+` FROM transactions
		WHERE client_id = $1 AND merchant_id = $2
		ORDER BY created_at DESC`,
		clientID, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (p *Postgres) Descriptions(ctx context.Context, merchantID uuid.UUID) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT description FROM transactions
		WHERE merchant_id = $1 AND description IS NOT NULL AND description <> ''`,
		merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query descriptions: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *Postgres) CreateClient(ctx context.Context, c models.Client) (models.Client, error) {
	code := newAccessCode()
	c.ID = uuid.New()
	c.AccessCode = &code
	c.Active = true
	c.Balance = decimal.Zero

	err := p.pool.QueryRow(ctx, `
		INSERT INTO clients (id, merchant_id, name, phone, credit_limit, notes, email, access_code, active, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, 0)
		RETURNING created_at`,
		c.ID, c.MerchantID, c.Name, c.Phone, c.CreditLimit, c.Notes, c.Email, c.AccessCode,
	).Scan(&c.CreatedAt)
	if err != nil {
		return models.Client{}, mapPgError(err)
	}
	return c, nil
}

func (p *Postgres) GetClient(ctx context.Context, merchantID, id uuid.UUID) (models.Client, error) {
	c, err := scanClient(p.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND merchant_id = $2`, id, merchantID))
	if err != nil {
		return models.Client{}, mapPgError(err)
	}
	return c, nil
}

func (p *Postgres) GetClientByAccessCode(ctx context.Context, code string) (models.Client, error) {
	c, err := scanClient(p.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE access_code = $1 AND active`, code))
	if err != nil {
		return models.Client{}, mapPgError(err)
	}
	return c, nil
}

func (p *Postgres) ListClients(ctx context.Context, merchantID uuid.UUID) ([]models.Client, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients
		WHERE merchant_id = $1 AND active
		ORDER BY balance DESC`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (p *Postgres) DeleteClient(ctx context.Context, merchantID, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1 AND merchant_id = $2`, id, merchantID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	return nil
}

func (p *Postgres) UpdateClientAvatar(ctx context.Context, merchantID, id uuid.UUID, url string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE clients SET avatar_url = $3 WHERE id = $1 AND merchant_id = $2`, id, merchantID, url)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	return nil
}

func (p *Postgres) AssignMissingAccessCodes(ctx context.Context, merchantID uuid.UUID) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id FROM clients WHERE merchant_id = $1 AND access_code IS NULL FOR UPDATE`, merchantID)
	if err != nil {
		return 0, fmt.Errorf("failed to query clients without access code: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, fmt.Errorf("failed to read client ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(`UPDATE clients SET access_code = $2, active = true WHERE id = $1`, id, newAccessCode())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(ids), nil
}

func (p *Postgres) GetMerchant(ctx context.Context, id uuid.UUID) (models.Merchant, error) {
	var m models.Merchant
	err := p.pool.QueryRow(ctx, `
		SELECT id, user_id, name, phone, logo_url, avatar_url, cover_url, created_at
		FROM merchants WHERE id = $1`, id,
	).Scan(&m.ID, &m.UserID, &m.Name, &m.Phone, &m.LogoURL, &m.AvatarURL, &m.CoverURL, &m.CreatedAt)
	if err != nil {
		return models.Merchant{}, mapPgError(err)
	}
	return m, nil
}

func (p *Postgres) UpsertMerchant(ctx context.Context, m models.Merchant) (models.Merchant, error) {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO merchants (id, user_id, name, phone, logo_url, avatar_url, cover_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			logo_url = EXCLUDED.logo_url,
			avatar_url = EXCLUDED.avatar_url,
			cover_url = EXCLUDED.cover_url
		RETURNING created_at`,
		m.ID, m.UserID, m.Name, m.Phone, m.LogoURL, m.AvatarURL, m.CoverURL,
	).Scan(&m.CreatedAt)
	if err != nil {
		return models.Merchant{}, mapPgError(err)
	}
	return m, nil
}

func scanClient(row pgx.Row) (models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.MerchantID, &c.Name, &c.Phone, &c.AvatarURL, &c.CreditLimit,
		&c.Balance, &c.Notes, &c.Active, &c.Email, &c.AccessCode, &c.CreatedAt)
	return c, err
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	var typ string
	var weight decimal.NullDecimal
	err := row.Scan(&t.ID, &t.ClientID, &t.MerchantID, &typ, &t.Amount, &t.Description,
		&t.Quantity, &t.UnitPrice, &weight, &t.TicketPhotoURL, &t.CreatedAt)
	if err != nil {
		return models.Transaction{}, err
	}
	t.Type = models.TransactionType(typ)
	if weight.Valid {
		w := weight.Decimal
		t.WeightGrams = &w
	}
	return t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapPgError turns driver errors into the package sentinels where one applies
func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Detail)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Detail)
		}
	}
	return err
}
