package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupark12/fiado/models"
)

type fakePersister struct {
	mu      sync.Mutex
	calls   int
	rows    []models.Transaction
	balance decimal.Decimal
	err     error
	// when set, InsertMany blocks until released
	gate chan struct{}
	in   chan struct{}
}

func (f *fakePersister) InsertMany(_ context.Context, rows []models.Transaction) (decimal.Decimal, error) {
	if f.in != nil {
		f.in <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	f.rows = append(f.rows, rows...)
	return f.balance.Add(models.BalanceDelta(rows)), nil
}

func newSession(balance string) *EntrySession {
	client := models.Client{ID: uuid.New(), Name: "Marta", Balance: dec(balance), Active: true}
	return NewEntrySession(MerchantContext{MerchantID: uuid.New()}, client)
}

func TestEntrySession_PreviewTracksCart(t *testing.T) {
	s := newSession("0")

	_, err := s.AddItem(ItemInput{Description: "Queso", Quantity: "1", WeightGrams: "300", UnitPrice: "20"})
	require.NoError(t, err)
	_, err = s.AddItem(ItemInput{Description: "Pan", Quantity: "2", UnitPrice: "1.5"})
	require.NoError(t, err)

	p := s.Preview()
	assert.Equal(t, models.Debit, p.Type)
	assert.Len(t, p.Items, 2)
	assert.Equal(t, "9.00", p.Total.StringFixed(2))
	assert.Equal(t, "9.00", p.NewBalance.StringFixed(2))

	require.NoError(t, s.SetType(models.Credit))
	assert.Equal(t, "-9.00", s.Preview().NewBalance.StringFixed(2))
}

func TestEntrySession_InvalidItemLeavesCartAlone(t *testing.T) {
	s := newSession("10")

	_, err := s.AddItem(ItemInput{Description: "   ", UnitPrice: "5"})
	assert.ErrorIs(t, err, ErrEmptyDescription)
	assert.Empty(t, s.Preview().Items)
}

func TestEntrySession_SetTypeRejectsUnknown(t *testing.T) {
	s := newSession("0")
	assert.ErrorIs(t, s.SetType("fiado"), ErrInvalidType)
}

func TestEntrySession_RemoveItem(t *testing.T) {
	s := newSession("0")
	_, err := s.AddItem(ItemInput{Description: "Pan", UnitPrice: "1"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.RemoveItem(3), ErrIndexOutOfRange)
	require.NoError(t, s.RemoveItem(0))
	assert.Empty(t, s.Preview().Items)
}

func TestEntrySession_SubmitEmptyCart(t *testing.T) {
	s := newSession("0")
	p := &fakePersister{}

	_, err := s.Submit(context.Background(), p)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, p.calls)
}

func TestEntrySession_SubmitSuccess(t *testing.T) {
	s := newSession("100")
	p := &fakePersister{balance: dec("100")}

	_, err := s.AddItem(ItemInput{Description: "Queso", Quantity: "1", WeightGrams: "300", UnitPrice: "20"})
	require.NoError(t, err)
	_, err = s.AddItem(ItemInput{Description: "Pan", Quantity: "2", UnitPrice: "1.5"})
	require.NoError(t, err)

	res, err := s.Submit(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Queso", res.Rows[0].Description)
	assert.Equal(t, models.Debit, res.Rows[0].Type)
	assert.True(t, res.Rows[0].Amount.Equal(dec("6")))
	require.NotNil(t, res.Rows[0].WeightGrams)
	assert.True(t, res.Rows[0].WeightGrams.Equal(dec("300")))
	assert.Nil(t, res.Rows[1].WeightGrams)
	assert.Equal(t, s.Merchant().MerchantID, res.Rows[1].MerchantID)
	assert.Equal(t, s.ClientID(), res.Rows[1].ClientID)
	assert.True(t, res.Balance.Equal(dec("109")))

	assert.True(t, s.Closed())
	assert.Empty(t, s.Preview().Items)
	assert.True(t, s.Preview().CurrentBalance.Equal(dec("109")))

	_, err = s.AddItem(ItemInput{Description: "Pan", UnitPrice: "1"})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestEntrySession_FailedSubmitKeepsCart(t *testing.T) {
	s := newSession("0")
	p := &fakePersister{err: errors.New("duplicate key value violates unique constraint")}

	_, err := s.AddItem(ItemInput{Description: "Pan", UnitPrice: "1"})
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), p)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "duplicate key")
	assert.False(t, s.Closed())
	assert.Len(t, s.Preview().Items, 1)

	p.err = nil
	res, err := s.Submit(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
}

func TestEntrySession_SecondSubmitWhileInFlight(t *testing.T) {
	s := newSession("0")
	p := &fakePersister{gate: make(chan struct{}), in: make(chan struct{}, 1)}

	_, err := s.AddItem(ItemInput{Description: "Pan", UnitPrice: "1"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), p)
		done <- err
	}()
	<-p.in

	_, err = s.Submit(context.Background(), p)
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	_, err = s.AddItem(ItemInput{Description: "Leche", UnitPrice: "2"})
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.True(t, s.Preview().Submitting)

	close(p.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, p.calls)
}

func TestEntrySession_Cancel(t *testing.T) {
	s := newSession("0")
	_, err := s.AddItem(ItemInput{Description: "Pan", UnitPrice: "1"})
	require.NoError(t, err)

	s.Cancel()

	assert.True(t, s.Closed())
	assert.Empty(t, s.Preview().Items)
	_, err = s.Submit(context.Background(), &fakePersister{})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestPersistenceError_Fallback(t *testing.T) {
	assert.Equal(t, DefaultPersistenceMessage, (&PersistenceError{}).Error())
	assert.Equal(t, DefaultPersistenceMessage, (&PersistenceError{Err: errors.New("")}).Error())
}
