package tests

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poskernel/pkg/kernel"
	paymentsvc "poskernel/pkg/payment/domain/service"
	"poskernel/pkg/session"
	sessionsvc "poskernel/pkg/session/domain/service"
	txmodel "poskernel/pkg/transaction/domain/model"
	txsvc "poskernel/pkg/transaction/domain/service"
)

func newClient(t *testing.T) (kernel.Client, string) {
	t.Helper()
	repo := session.NewInMemoryRepository()
	manager := sessionsvc.NewManager(repo)
	validator := session.NewValidator(manager)
	engine := txsvc.NewEngine(validator, paymentsvc.DefaultRules())
	client := kernel.NewClient(manager, engine)

	s, err := manager.CreateSession("TERM1", "OP1")
	require.NoError(t, err)
	return client, string(s.ID)
}

func TestClientHappyPathReturnsSuccessEnvelope(t *testing.T) {
	client, sessionID := newClient(t)

	result := client.StartTransaction(sessionID, "USD")
	require.True(t, result.Success)
	require.Empty(t, result.Errors)
	txID := string(result.Transaction.ID)

	result = client.AddLineItem(sessionID, txID, txsvc.AddLineItemRequest{
		ProductID: "WIDGET",
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("5.00"),
	})
	require.True(t, result.Success)

	result = client.ProcessPayment(sessionID, txID, decimal.RequireFromString("5.00"), "cash")
	require.True(t, result.Success)
	assert.Equal(t, txmodel.EndOfTransaction, result.Transaction.State)
}

func TestClientWrapsEngineErrorsAsFailureEnvelope(t *testing.T) {
	client, sessionID := newClient(t)

	result := client.StartTransaction(sessionID, "")
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Nil(t, result.Transaction)
}

func TestClientRejectsUnknownSession(t *testing.T) {
	client, _ := newClient(t)

	result := client.StartTransaction("not-a-real-session", "USD")
	assert.False(t, result.Success)
}

func TestClientCloseSessionThenOperationsFail(t *testing.T) {
	client, sessionID := newClient(t)
	require.NoError(t, client.CloseSession(sessionID))

	result := client.StartTransaction(sessionID, "USD")
	assert.False(t, result.Success)
}

func TestNewClientPanicsOnMissingCollaborator(t *testing.T) {
	repo := session.NewInMemoryRepository()
	manager := sessionsvc.NewManager(repo)

	assert.Panics(t, func() {
		kernel.NewClient(manager, nil)
	})
}
