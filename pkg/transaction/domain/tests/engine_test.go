package tests

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poskernel/pkg/ids"
	paymentsvc "poskernel/pkg/payment/domain/service"
	"poskernel/pkg/transaction/domain/model"
	"poskernel/pkg/transaction/domain/service"
)

type alwaysValid struct{}

func (alwaysValid) ValidateSession(string) error { return nil }

func newEngine() service.Engine {
	return service.NewEngine(alwaysValid{}, paymentsvc.DefaultRules())
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// S1 — Basic lifecycle.
func TestS1BasicLifecycle(t *testing.T) {
	eng := newEngine()

	tx, err := eng.StartTransaction("sess", "USD")
	require.NoError(t, err)

	tx, err = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "COFFEE.SMALL",
		Quantity:  2,
		UnitPrice: dec("3.50"),
	})
	require.NoError(t, err)

	tx, err = eng.ProcessPayment("sess", string(tx.ID), dec("7.00"), "cash")
	require.NoError(t, err)

	assert.Equal(t, model.EndOfTransaction, tx.State)
	assert.True(t, tx.Total.Amount().Equal(dec("7.00")))
	assert.True(t, tx.Tendered.Amount().Equal(dec("7.00")))
	assert.True(t, tx.ChangeDue.IsZero())
	require.Len(t, tx.Lines, 2)
	assert.Equal(t, model.Item, tx.Lines[0].LineType)
	assert.True(t, tx.Lines[0].Extended.Amount().Equal(dec("7.00")))
	assert.Equal(t, model.Tender, tx.Lines[1].LineType)
	assert.True(t, tx.Lines[1].Extended.Amount().Equal(dec("-7.00")))
}

// S2 — Over-tender with cash.
func TestS2OverTenderCash(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")
	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 1, UnitPrice: dec("8.00"),
	})

	tx, err := eng.ProcessPayment("sess", string(tx.ID), dec("10.00"), "cash")
	require.NoError(t, err)

	assert.Equal(t, model.EndOfTransaction, tx.State)
	assert.True(t, tx.Tendered.Amount().Equal(dec("10.00")))
	assert.True(t, tx.ChangeDue.Amount().Equal(dec("2.00")))

	var tenderCount, changeCount int
	for _, line := range tx.Lines {
		switch line.LineType {
		case model.Tender:
			tenderCount++
			assert.True(t, line.Extended.Amount().Equal(dec("-10.00")))
		case model.Change:
			changeCount++
			assert.True(t, line.Extended.Amount().Equal(dec("2.00")))
		}
	}
	assert.Equal(t, 1, tenderCount)
	assert.Equal(t, 1, changeCount)
}

// S3 — Partial tenders.
func TestS3PartialTenders(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")
	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 1, UnitPrice: dec("5.00"),
	})

	tx, err := eng.ProcessPayment("sess", string(tx.ID), dec("2.00"), "cash")
	require.NoError(t, err)
	assert.Equal(t, model.ItemsPending, tx.State)
	assert.True(t, tx.Tendered.Amount().Equal(dec("2.00")))
	assertNoChangeLines(t, tx)

	tx, err = eng.ProcessPayment("sess", string(tx.ID), dec("3.00"), "cash")
	require.NoError(t, err)
	assert.Equal(t, model.EndOfTransaction, tx.State)
	assert.True(t, tx.Tendered.Amount().Equal(dec("5.00")))
	assert.True(t, tx.ChangeDue.IsZero())

	tenderLines := 0
	for _, line := range tx.Lines {
		if line.LineType == model.Tender {
			tenderLines++
		}
	}
	assert.Equal(t, 2, tenderLines)
	assertNoChangeLines(t, tx)

	_, err = eng.ProcessPayment("sess", string(tx.ID), dec("1.00"), "cash")
	assert.Error(t, err)
}

func assertNoChangeLines(t *testing.T, tx *model.Transaction) {
	for _, line := range tx.Lines {
		assert.NotEqual(t, model.Change, line.LineType)
	}
}

// S4 — Modifier cascade void.
func TestS4ModifierCascadeVoid(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")

	tx, err := eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "DRINK", Quantity: 1, UnitPrice: dec("5.00"),
	})
	require.NoError(t, err)
	parentID := tx.Lines[0].LineItemID

	tx, err = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "MOD_ICED", Quantity: 1, UnitPrice: dec("0.10"), ParentLineItemID: &parentID,
	})
	require.NoError(t, err)

	tx, err = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "MOD_LESS_SUGAR", Quantity: 1, UnitPrice: dec("0.00"), ParentLineItemID: &parentID,
	})
	require.NoError(t, err)

	assert.True(t, tx.Total.Amount().Equal(dec("5.10")))

	tx, err = eng.VoidLineItem("sess", string(tx.ID), parentID, "customer changed mind")
	require.NoError(t, err)

	for _, line := range tx.Lines {
		assert.True(t, line.IsVoided)
	}
	assert.True(t, tx.Total.IsZero())
}

// S5 — Non-cash overpay rejected.
func TestS5NonCashOverpayRejected(t *testing.T) {
	eng := newEngine()

	tx, _ := eng.StartTransaction("sess", "USD")
	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 1, UnitPrice: dec("5.00"),
	})
	tx, err := eng.ProcessPayment("sess", string(tx.ID), dec("5.00"), "card")
	require.NoError(t, err)
	assert.Equal(t, model.EndOfTransaction, tx.State)

	tx2, _ := eng.StartTransaction("sess", "USD")
	tx2, _ = eng.AddLineItem("sess", string(tx2.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 1, UnitPrice: dec("5.00"),
	})
	_, err = eng.ProcessPayment("sess", string(tx2.ID), dec("10.00"), "card")
	assert.ErrorIs(t, err, service.ErrOverpaymentNotAllowed)

	after, err := eng.GetTransaction("sess", string(tx2.ID))
	require.NoError(t, err)
	assert.Equal(t, model.ItemsPending, after.State)
	for _, line := range after.Lines {
		assert.NotEqual(t, model.Tender, line.LineType)
	}
}

func TestAddLineItemRejectsInvalidQuantityAndPrice(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")

	_, err := eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 0, UnitPrice: dec("1.00"),
	})
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)

	_, err = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 1, UnitPrice: dec("-1.00"),
	})
	assert.ErrorIs(t, err, service.ErrNegativeUnitPrice)
}

func TestAddLineItemUnknownParentFails(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")
	bogus := ids.NewLineItemID()

	_, err := eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "MOD", Quantity: 1, UnitPrice: dec("1.00"), ParentLineItemID: &bogus,
	})
	assert.ErrorIs(t, err, service.ErrUnknownParentLine)
}

func TestProcessPaymentOnEmptyTransactionFails(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")

	_, err := eng.ProcessPayment("sess", string(tx.ID), dec("1.00"), "cash")
	assert.ErrorIs(t, err, service.ErrNoItemLines)
}

func TestVoidTransactionIdempotentTerminalTransition(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")
	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 1, UnitPrice: dec("5.00"),
	})

	tx, err := eng.VoidTransaction("sess", string(tx.ID), "abandoned")
	require.NoError(t, err)
	assert.Equal(t, model.Voided, tx.State)
	assert.True(t, tx.BalanceDue.IsZero())
	for _, line := range tx.Lines {
		assert.True(t, line.IsVoided)
	}

	again, err := eng.VoidTransaction("sess", string(tx.ID), "ignored")
	require.NoError(t, err)
	assert.Equal(t, model.Voided, again.State)

	_, err = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 1, UnitPrice: dec("1.00"),
	})
	assert.ErrorIs(t, err, service.ErrTerminalState)
}

func TestVoidTransactionFailsAfterEndOfTransaction(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")
	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "WIDGET", Quantity: 1, UnitPrice: dec("5.00"),
	})
	tx, _ = eng.ProcessPayment("sess", string(tx.ID), dec("5.00"), "cash")

	_, err := eng.VoidTransaction("sess", string(tx.ID), "too late")
	assert.ErrorIs(t, err, service.ErrTerminalState)
}

func TestDisplayIndentLevelMirrorsParent(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")
	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "DRINK", Quantity: 1, UnitPrice: dec("5.00"),
	})
	parentID := tx.Lines[0].LineItemID

	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "MOD", Quantity: 1, UnitPrice: dec("0.50"), ParentLineItemID: &parentID,
	})

	assert.Equal(t, 0, tx.Lines[0].DisplayIndentLevel)
	assert.Equal(t, 1, tx.Lines[1].DisplayIndentLevel)
}

func TestLineItemIDIsStableAcrossVoidAndLaterAdd(t *testing.T) {
	eng := newEngine()
	tx, _ := eng.StartTransaction("sess", "USD")
	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "A", Quantity: 1, UnitPrice: dec("1.00"),
	})
	firstID := tx.Lines[0].LineItemID
	assert.Equal(t, 1, tx.Lines[0].LineNumber)

	tx, err := eng.VoidLineItem("sess", string(tx.ID), firstID, "")
	require.NoError(t, err)

	tx, _ = eng.AddLineItem("sess", string(tx.ID), service.AddLineItemRequest{
		ProductID: "B", Quantity: 1, UnitPrice: dec("1.00"),
	})

	found := tx.FindLine(firstID)
	require.NotNil(t, found)
	assert.Equal(t, firstID, found.LineItemID, "lineItemId must never change")
	assert.True(t, found.IsVoided)
}
