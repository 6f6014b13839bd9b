package tool

import (
	"sync"

	"poskernel/pkg/errs"
	"poskernel/pkg/ids"
	"poskernel/pkg/kernel"
	"poskernel/pkg/storeext"
	txsvc "poskernel/pkg/transaction/domain/service"
)

// ActiveTransaction tracks the one transaction a reference tool session
// is currently operating on, mirroring how a real terminal UI holds "the
// current sale" between tool calls. The Tool Executor itself is
// stateless — this is state the handlers close over, not the executor's
// concern (spec §4.6 names handlers, not the executor, as the bridge).
type ActiveTransaction struct {
	mu   sync.Mutex
	id   string
}

func (a *ActiveTransaction) Set(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.id = id
}

func (a *ActiveTransaction) Get() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.id == "" {
		return "", errs.New(errs.IllegalState, "no transaction is active; call start_transaction first")
	}
	return a.id, nil
}

// RegisterCatalog registers the reference tool set named in spec §6:
// start_transaction, add_item, pay, show. Each handler delegates pricing
// to catalog and totals to client — never computing a price itself (spec
// §4.6's "handlers... must not perform pricing or currency arithmetic").
func RegisterCatalog(executor Executor, client kernel.Client, catalog storeext.Catalog, sessionID string, active *ActiveTransaction) error {
	if err := executor.Register(startTransactionDefinition(), startTransactionHandler(client, sessionID, active)); err != nil {
		return err
	}
	if err := executor.Register(addItemDefinition(), addItemHandler(client, catalog, sessionID, active)); err != nil {
		return err
	}
	if err := executor.Register(payDefinition(), payHandler(client, sessionID, active)); err != nil {
		return err
	}
	if err := executor.Register(showDefinition(), showHandler(client, sessionID, active)); err != nil {
		return err
	}
	return nil
}

func startTransactionDefinition() Definition {
	return Definition{
		Name:        "start_transaction",
		Category:    "transaction",
		Description: "Starts a new transaction in the given currency.",
		Parameters: []Parameter{
			{Name: "currency", Type: String, Required: true, Description: "ISO-4217 currency code, e.g. USD."},
		},
	}
}

func startTransactionHandler(client kernel.Client, sessionID string, active *ActiveTransaction) Handler {
	return func(bag Bag) (any, error) {
		result := client.StartTransaction(sessionID, bag.String("currency"))
		if result.Success {
			active.Set(string(result.Transaction.ID))
		}
		return result, nil
	}
}

func addItemDefinition() Definition {
	return Definition{
		Name:        "add_item",
		Category:    "transaction",
		Description: "Adds an item line to the active transaction, pricing it from the catalog.",
		Parameters: []Parameter{
			{Name: "productId", Type: String, Required: true, Description: "Catalog SKU."},
			{Name: "quantity", Type: Int, Required: true, Description: "Quantity, must be positive."},
		},
	}
}

// addItemHandler resolves productId's price through the catalog — it
// never invents or hardcodes a price — then delegates the line-add and
// recalculation entirely to the Transaction Engine via the Kernel Client.
func addItemHandler(client kernel.Client, catalog storeext.Catalog, sessionID string, active *ActiveTransaction) Handler {
	return func(bag Bag) (any, error) {
		txID, err := active.Get()
		if err != nil {
			return nil, err
		}

		productID := bag.String("productId")
		validated := catalog.ValidateProduct(productID)
		if !validated.IsValid {
			return kernel.Result{Success: false, Errors: []string{validated.ErrorMessage}}, nil
		}

		result := client.AddLineItem(sessionID, txID, txsvc.AddLineItemRequest{
			ProductID:   ids.ProductID(productID),
			Quantity:    bag.Int("quantity"),
			UnitPrice:   validated.EffectivePrice,
			ProductName: validated.Product.Name,
		})
		return result, nil
	}
}

func payDefinition() Definition {
	return Definition{
		Name:        "pay",
		Category:    "transaction",
		Description: "Applies a payment to the active transaction.",
		Parameters: []Parameter{
			{Name: "amount", Type: Decimal, Required: true, Description: "Tendered amount."},
			{Name: "paymentType", Type: String, Required: false, Description: "Tender type; defaults to \"cash\"."},
		},
	}
}

func payHandler(client kernel.Client, sessionID string, active *ActiveTransaction) Handler {
	return func(bag Bag) (any, error) {
		txID, err := active.Get()
		if err != nil {
			return nil, err
		}
		paymentType := "cash"
		if bag.Has("paymentType") {
			paymentType = bag.String("paymentType")
		}
		result := client.ProcessPayment(sessionID, txID, bag.Decimal("amount"), paymentType)
		return result, nil
	}
}

func showDefinition() Definition {
	return Definition{
		Name:        "show",
		Category:    "transaction",
		Description: "Returns a snapshot of the active transaction.",
	}
}

func showHandler(client kernel.Client, sessionID string, active *ActiveTransaction) Handler {
	return func(_ Bag) (any, error) {
		txID, err := active.Get()
		if err != nil {
			return nil, err
		}
		return client.GetTransaction(sessionID, txID), nil
	}
}
