package features

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jupark12/fiado/ledger"
	"github.com/jupark12/fiado/models"
)

type recordingStore struct {
	balance decimal.Decimal
	rows    []models.Transaction
}

func (r *recordingStore) InsertMany(_ context.Context, rows []models.Transaction) (decimal.Decimal, error) {
	r.rows = append(r.rows, rows...)
	r.balance = r.balance.Add(models.BalanceDelta(rows))
	return r.balance, nil
}

type entryTestContext struct {
	session *ledger.EntrySession
	store   *recordingStore
	lastErr error
	result  ledger.SubmitResult
}

func (c *entryTestContext) reset() {
	c.session = nil
	c.store = nil
	c.lastErr = nil
	c.result = ledger.SubmitResult{}
}

func (c *entryTestContext) aClientWithABalanceOf(balance string) error {
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return err
	}
	client := models.Client{ID: uuid.New(), Name: "Cliente", Balance: b, Active: true}
	c.session = ledger.NewEntrySession(ledger.MerchantContext{MerchantID: uuid.New()}, client)
	c.store = &recordingStore{balance: b}
	return nil
}

func (c *entryTestContext) iAdd(description, quantity, weight, price string) error {
	_, c.lastErr = c.session.AddItem(ledger.ItemInput{
		Description: description,
		Quantity:    quantity,
		WeightGrams: weight,
		UnitPrice:   price,
	})
	return nil
}

func (c *entryTestContext) iRemoveLine(line int) error {
	return c.session.RemoveItem(line - 1)
}

func (c *entryTestContext) iSubmitTheEntry() error {
	c.result, c.lastErr = c.session.Submit(context.Background(), c.store)
	return c.lastErr
}

func (c *entryTestContext) theEntryTotalIs(expected string) error {
	if got := c.session.Preview().Total.StringFixed(2); got != expected {
		return fmt.Errorf("expected total %s, got %s", expected, got)
	}
	return nil
}

func (c *entryTestContext) theProjectedBalanceIs(txType, expected string) error {
	t, ok := models.ParseTransactionType(txType)
	if !ok {
		return fmt.Errorf("unknown transaction type %q", txType)
	}
	p := c.session.Preview()
	got := ledger.Project(p.CurrentBalance, p.Total, t).StringFixed(2)
	if got != expected {
		return fmt.Errorf("expected %s balance %s, got %s", txType, expected, got)
	}
	return nil
}

func (c *entryTestContext) theLineIsRejectedWith(kind string) error {
	var verr *ledger.ValidationError
	if !errors.As(c.lastErr, &verr) {
		return fmt.Errorf("expected a validation error, got %v", c.lastErr)
	}
	if verr.Kind.String() != kind {
		return fmt.Errorf("expected %s, got %s", kind, verr.Kind)
	}
	return nil
}

func (c *entryTestContext) rowsWereRecorded(n int) error {
	if len(c.store.rows) != n {
		return fmt.Errorf("expected %d rows, got %d", n, len(c.store.rows))
	}
	return nil
}

func (c *entryTestContext) theClientBalanceIs(expected string) error {
	if got := c.result.Balance.StringFixed(2); got != expected {
		return fmt.Errorf("expected balance %s, got %s", expected, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &entryTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a client with a balance of "([^"]*)"$`, tc.aClientWithABalanceOf)
	ctx.Step(`^I add "([^"]*)" with quantity "([^"]*)", weight "([^"]*)" and price "([^"]*)"$`, tc.iAdd)
	ctx.Step(`^I remove line (\d+)$`, tc.iRemoveLine)
	ctx.Step(`^I submit the entry$`, tc.iSubmitTheEntry)
	ctx.Step(`^the entry total is "([^"]*)"$`, tc.theEntryTotalIs)
	ctx.Step(`^the projected "([^"]*)" balance is "([^"]*)"$`, tc.theProjectedBalanceIs)
	ctx.Step(`^the line is rejected with "([^"]*)"$`, tc.theLineIsRejectedWith)
	ctx.Step(`^(\d+) rows were recorded$`, tc.rowsWereRecorded)
	ctx.Step(`^the client balance is "([^"]*)"$`, tc.theClientBalanceIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"line_items.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
