// Package service implements the Transaction Engine (spec §4.2): the
// session+transaction state machine, line hierarchy, central
// recalculation, integrity assertion, tender/change semantics, and void
// cascade. Every operation first validates the session, matching the
// teacher's pattern of a constructor-injected collaborator
// (service.NewOrderService(repo, dispatcher)) — here the collaborators are
// a session.Manager and a payment.Rules policy.
package service

import (
	"sync"

	"github.com/shopspring/decimal"

	"poskernel/pkg/errs"
	"poskernel/pkg/ids"
	"poskernel/pkg/money"
	paymentsvc "poskernel/pkg/payment/domain/service"
	"poskernel/pkg/transaction/domain/model"
)

// Every sentinel below is classified into a spec §7 Kind so the Kernel
// Client can build a kind-aware Result envelope via errs.Classify instead
// of string-matching a message.
var (
	ErrBlankCurrency         = errs.New(errs.InvalidArgument, "currency must not be blank")
	ErrTransactionNotFound   = errs.New(errs.InvalidArgument, "transaction not found")
	ErrTerminalState         = errs.New(errs.IllegalState, "transaction is in a terminal state")
	ErrInvalidQuantity       = errs.New(errs.InvalidArgument, "quantity must be greater than zero")
	ErrNegativeUnitPrice     = errs.New(errs.InvalidArgument, "unitPrice must not be negative")
	ErrUnknownParentLine     = errs.New(errs.InvalidArgument, "parent line item not found")
	ErrParentLineVoided      = errs.New(errs.IllegalState, "parent line item is already voided")
	ErrNegativeAmount        = errs.New(errs.InvalidArgument, "amount must not be negative")
	ErrBlankPaymentType      = errs.New(errs.InvalidArgument, "paymentType must not be blank")
	ErrNoItemLines           = errs.New(errs.IllegalState, "transaction has no item lines")
	ErrInvalidPaymentType    = errs.New(errs.PaymentPolicyViolation, "paymentType is not recognized")
	ErrOverpaymentNotAllowed = errs.New(errs.PaymentPolicyViolation, "this tender does not allow change on overpayment")
	ErrInexactTender         = errs.New(errs.PaymentPolicyViolation, "this tender requires an exact amount")
	ErrUnknownLineItem       = errs.New(errs.InvalidArgument, "line item not found")
	ErrLineAlreadyVoided     = errs.New(errs.IllegalState, "line item is already voided")
)

// SessionValidator is the subset of session.Manager the engine needs. Kept
// narrow so tests can fake it without depending on the session package's
// concrete Manager.
type SessionValidator interface {
	ValidateSession(sessionID string) error
}

// Engine is the Transaction Engine contract (spec §4.2). unitPrice and
// amount are plain decimals: the spec names no per-call currency for them,
// so both are interpreted in the target transaction's currency.
type Engine interface {
	StartTransaction(sessionID, currency string) (*model.Transaction, error)
	AddLineItem(sessionID, txID string, req AddLineItemRequest) (*model.Transaction, error)
	ProcessPayment(sessionID, txID string, amount decimal.Decimal, paymentType string) (*model.Transaction, error)
	VoidLineItem(sessionID, txID string, lineItemID ids.LineItemID, reason string) (*model.Transaction, error)
	VoidTransaction(sessionID, txID string, reason string) (*model.Transaction, error)
	GetTransaction(sessionID, txID string) (*model.Transaction, error)
}

// AddLineItemRequest bundles addLineItem's optional parameters (spec
// §4.2). ParentLineItemID is nil for a root item line.
type AddLineItemRequest struct {
	ProductID          ids.ProductID
	Quantity           int64
	UnitPrice          decimal.Decimal
	ProductName        string
	ProductDescription string
	ParentLineItemID   *ids.LineItemID
}

// NewEngine constructs a Transaction Engine. sessions validates the
// (terminalId, operatorId)-keyed session on every call; rules supplies
// tender normalization and the change-issuance predicate.
func NewEngine(sessions SessionValidator, rules paymentsvc.Rules) Engine {
	return &engine{
		sessions:     sessions,
		rules:        rules,
		transactions: make(map[ids.TransactionID]*lockedTransaction),
	}
}

type lockedTransaction struct {
	mu sync.Mutex
	tx *model.Transaction
}

type engine struct {
	sessions SessionValidator
	rules    paymentsvc.Rules

	mu           sync.RWMutex
	transactions map[ids.TransactionID]*lockedTransaction
}

func (e *engine) StartTransaction(sessionID, currency string) (*model.Transaction, error) {
	if err := e.sessions.ValidateSession(sessionID); err != nil {
		return nil, err
	}
	if currency == "" {
		return nil, ErrBlankCurrency
	}

	tx := &model.Transaction{
		ID:         ids.NewTransactionID(),
		State:      model.StartTransaction,
		Currency:   currency,
		Total:      money.Zero(currency),
		Tendered:   money.Zero(currency),
		ChangeDue:  money.Zero(currency),
		BalanceDue: money.Zero(currency),
	}

	e.mu.Lock()
	e.transactions[tx.ID] = &lockedTransaction{tx: tx}
	e.mu.Unlock()

	return tx.Clone(), nil
}

func (e *engine) AddLineItem(sessionID, txID string, req AddLineItemRequest) (*model.Transaction, error) {
	if err := e.sessions.ValidateSession(sessionID); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.UnitPrice.Sign() < 0 {
		return nil, ErrNegativeUnitPrice
	}

	entry, err := e.lockedEntry(txID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	tx := entry.tx
	if tx.State.IsTerminal() {
		return nil, ErrTerminalState
	}

	unitPrice := money.MustNew(req.UnitPrice, tx.Currency)
	extended := unitPrice.MulInt(req.Quantity)

	indentLevel := 0
	if req.ParentLineItemID != nil {
		parent := tx.FindLine(*req.ParentLineItemID)
		if parent == nil {
			return nil, ErrUnknownParentLine
		}
		if parent.IsVoided {
			return nil, ErrParentLineVoided
		}
		indentLevel = parent.DisplayIndentLevel + 1
	}

	line := model.Line{
		LineItemID:         ids.NewLineItemID(),
		ParentLineItemID:   req.ParentLineItemID,
		ProductID:          req.ProductID,
		ProductName:        req.ProductName,
		ProductDescription: req.ProductDescription,
		Quantity:           req.Quantity,
		UnitPrice:          unitPrice,
		Extended:           extended,
		LineType:           model.Item,
		DisplayIndentLevel: indentLevel,
	}

	// Snapshot for rollback on integrity failure: the engine must leave
	// the transaction in its pre-mutation state rather than surface a
	// half-applied line (spec §4.2).
	before := tx.Clone()

	tx.Lines = append(tx.Lines, line)
	if tx.State == model.StartTransaction {
		tx.State = model.ItemsPending
	}
	tx.RenumberLines()
	recalculate(tx)

	if violation := assertIntegrity(tx); violation != "" {
		entry.tx = before
		errs.PanicIntegrity("%s", violation)
	}

	return tx.Clone(), nil
}

func (e *engine) ProcessPayment(sessionID, txID string, amount decimal.Decimal, paymentType string) (*model.Transaction, error) {
	if err := e.sessions.ValidateSession(sessionID); err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if paymentType == "" {
		return nil, ErrBlankPaymentType
	}

	entry, err := e.lockedEntry(txID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	tx := entry.tx
	if tx.State.IsTerminal() {
		return nil, ErrTerminalState
	}
	if !hasItemLine(tx) {
		return nil, ErrNoItemLines
	}

	canonical, ok := e.rules.NormalizeTenderType(paymentType)
	if !ok {
		return nil, ErrInvalidPaymentType
	}

	before := tx.Clone()

	extended := money.MustNew(amount.Neg(), tx.Currency)
	tenderLine := model.Line{
		LineItemID: ids.NewLineItemID(),
		Quantity:   1,
		UnitPrice:  extended,
		Extended:   extended,
		LineType:   model.Tender,
		TenderType: canonical,
	}
	tx.Lines = append(tx.Lines, tenderLine)
	tx.RenumberLines()
	recalculate(tx)

	if e.rules.RequiresExact(canonical) {
		if cmp, cmpErr := tx.Tendered.Cmp(tx.Total); cmpErr == nil && cmp != 0 {
			entry.tx = before
			return nil, ErrInexactTender
		}
	}

	tenderedVsTotal, cmpErr := tx.Tendered.Cmp(tx.Total)
	if cmpErr != nil {
		entry.tx = before
		return nil, cmpErr
	}

	if tenderedVsTotal >= 0 {
		overpay, subErr := tx.Tendered.Sub(tx.Total)
		if subErr != nil {
			entry.tx = before
			return nil, subErr
		}
		if overpay.Sign() > 0 {
			if !e.rules.CanIssueChange(canonical) {
				entry.tx = before
				return nil, ErrOverpaymentNotAllowed
			}
			changeLine := model.Line{
				LineItemID: ids.NewLineItemID(),
				Quantity:   1,
				UnitPrice:  overpay,
				Extended:   overpay,
				LineType:   model.Change,
			}
			tx.Lines = append(tx.Lines, changeLine)
			tx.RenumberLines()
			recalculate(tx)
		}
		tx.State = model.EndOfTransaction
		recalculate(tx)
	}

	if violation := assertIntegrity(tx); violation != "" {
		entry.tx = before
		errs.PanicIntegrity("%s", violation)
	}

	return tx.Clone(), nil
}

func (e *engine) VoidLineItem(sessionID, txID string, lineItemID ids.LineItemID, reason string) (*model.Transaction, error) {
	if err := e.sessions.ValidateSession(sessionID); err != nil {
		return nil, err
	}

	entry, err := e.lockedEntry(txID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	tx := entry.tx
	if tx.State.IsTerminal() {
		return nil, ErrTerminalState
	}

	target := tx.FindLine(lineItemID)
	if target == nil {
		return nil, ErrUnknownLineItem
	}
	if target.IsVoided {
		return nil, ErrLineAlreadyVoided
	}

	before := tx.Clone()

	voidCascade(tx, lineItemID, reason)
	tx.RenumberLines()
	recalculate(tx)

	if violation := assertIntegrity(tx); violation != "" {
		entry.tx = before
		errs.PanicIntegrity("%s", violation)
	}

	return tx.Clone(), nil
}

// VoidTransaction is the supplemented kernel operation resolving Open
// Question 5: an idempotent terminal transition to Voided, cascading void
// to every non-voided line (including any Tender/Change lines already
// present) so balanceDue recomputes to zero.
func (e *engine) VoidTransaction(sessionID, txID string, reason string) (*model.Transaction, error) {
	if err := e.sessions.ValidateSession(sessionID); err != nil {
		return nil, err
	}

	entry, err := e.lockedEntry(txID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	tx := entry.tx
	if tx.State == model.Voided {
		return tx.Clone(), nil
	}
	if tx.State == model.EndOfTransaction {
		return nil, ErrTerminalState
	}

	before := tx.Clone()

	for i := range tx.Lines {
		if !tx.Lines[i].IsVoided {
			tx.Lines[i].IsVoided = true
			if reason != "" && tx.Lines[i].VoidReason == "" {
				tx.Lines[i].VoidReason = reason
			}
		}
	}
	tx.State = model.Voided
	tx.RenumberLines()
	recalculate(tx)

	if violation := assertIntegrity(tx); violation != "" {
		entry.tx = before
		errs.PanicIntegrity("%s", violation)
	}

	return tx.Clone(), nil
}

func (e *engine) GetTransaction(sessionID, txID string) (*model.Transaction, error) {
	if err := e.sessions.ValidateSession(sessionID); err != nil {
		return nil, err
	}
	entry, err := e.lockedEntry(txID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.tx.Clone(), nil
}

func (e *engine) lockedEntry(txID string) (*lockedTransaction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.transactions[ids.TransactionID(txID)]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return entry, nil
}

func hasItemLine(tx *model.Transaction) bool {
	for _, line := range tx.Lines {
		if line.LineType == model.Item {
			return true
		}
	}
	return false
}

// voidCascade marks lineItemID and every reachable non-voided descendant
// (via ParentLineItemID edges) as voided, breadth-first, atomically (spec
// §4.2). Re-voiding an already-voided line via cascade is a no-op; only
// the first void's reason persists (spec §4.2 tie-break).
func voidCascade(tx *model.Transaction, root ids.LineItemID, reason string) {
	toVoid := append([]ids.LineItemID{root}, tx.DescendantsOf(root)...)
	for _, id := range toVoid {
		line := tx.FindLine(id)
		if line == nil || line.IsVoided {
			continue
		}
		line.IsVoided = true
		if reason != "" {
			line.VoidReason = reason
		}
	}
}

// recalculate walks non-voided lines once, summing by line type under the
// sign conventions in spec §3, and updates Total/Tendered/ChangeDue/
// BalanceDue. No suspension points inside — it is pure over the line
// sequence (spec §5).
func recalculate(tx *model.Transaction) {
	total := money.Zero(tx.Currency)
	tenderedNegative := money.Zero(tx.Currency)
	changeDue := money.Zero(tx.Currency)

	for _, line := range tx.Lines {
		if line.IsVoided {
			continue
		}
		switch line.LineType {
		case model.Item:
			total, _ = total.Add(line.Extended)
		case model.Tender:
			tenderedNegative, _ = tenderedNegative.Add(line.Extended)
		case model.Change:
			changeDue, _ = changeDue.Add(line.Extended)
		}
	}

	tendered := tenderedNegative.Negate()
	balance, _ := total.Sub(tendered)
	balance, _ = balance.Add(changeDue)
	if tx.State == model.EndOfTransaction || tx.State == model.Voided {
		balance = money.Zero(tx.Currency)
	}

	tx.Total = total
	tx.Tendered = tendered
	tx.ChangeDue = changeDue
	tx.BalanceDue = balance
}

// assertIntegrity re-derives every aggregate from raw lines and compares
// them against the stored aggregates plus the invariants in spec §3. It
// returns a non-empty violation description on failure; callers convert
// that into a PanicIntegrity call, never a swallowed error (spec §7).
func assertIntegrity(tx *model.Transaction) string {
	total := money.Zero(tx.Currency)
	tenderedNegative := money.Zero(tx.Currency)
	changeDue := money.Zero(tx.Currency)

	byID := make(map[ids.LineItemID]*model.Line, len(tx.Lines))
	for i := range tx.Lines {
		byID[tx.Lines[i].LineItemID] = &tx.Lines[i]
	}

	for _, line := range tx.Lines {
		if line.LineType == model.Item {
			expectedExtended := line.UnitPrice.MulInt(line.Quantity)
			if cmp, err := line.Extended.Cmp(expectedExtended); err != nil || cmp != 0 {
				return "item line " + string(line.LineItemID) + " extended does not equal unitPrice*quantity"
			}
			if line.Extended.Currency() != tx.Currency {
				return "item line " + string(line.LineItemID) + " currency does not match transaction currency"
			}
		}
		if line.ParentLineItemID != nil {
			parent, ok := byID[*line.ParentLineItemID]
			if ok && line.DisplayIndentLevel != parent.DisplayIndentLevel+1 {
				return "line " + string(line.LineItemID) + " displayIndentLevel does not equal parent+1"
			}
		}
		if line.IsVoided {
			continue
		}
		switch line.LineType {
		case model.Item:
			total, _ = total.Add(line.Extended)
		case model.Tender:
			if line.Extended.Sign() >= 0 {
				return "tender line " + string(line.LineItemID) + " must have negative extended"
			}
			tenderedNegative, _ = tenderedNegative.Add(line.Extended)
		case model.Change:
			if line.Extended.Sign() <= 0 {
				return "change line " + string(line.LineItemID) + " must have positive extended"
			}
			changeDue, _ = changeDue.Add(line.Extended)
		}
	}

	tendered := tenderedNegative.Negate()

	if cmp, err := total.Cmp(tx.Total); err != nil || cmp != 0 {
		return "transaction total does not equal sum of non-voided item lines"
	}
	if cmp, err := tendered.Cmp(tx.Tendered); err != nil || cmp != 0 {
		return "transaction tendered does not equal sum of non-voided tender lines"
	}
	if cmp, err := changeDue.Cmp(tx.ChangeDue); err != nil || cmp != 0 {
		return "transaction changeDue does not equal sum of non-voided change lines"
	}

	expectedBalance, _ := total.Sub(tendered)
	expectedBalance, _ = expectedBalance.Add(changeDue)
	if tx.State == model.EndOfTransaction || tx.State == model.Voided {
		expectedBalance = money.Zero(tx.Currency)
	}
	if cmp, err := expectedBalance.Cmp(tx.BalanceDue); err != nil || cmp != 0 {
		return "balanceDue does not equal total-tendered+changeDue"
	}
	if tx.State == model.EndOfTransaction && tx.BalanceDue.Sign() != 0 {
		return "balanceDue must be zero once EndOfTransaction is reached"
	}

	overpay, _ := tendered.Sub(total)
	overpay = overpay.MaxZero()
	if cmp, err := changeDue.Cmp(overpay); err == nil && cmp > 0 {
		return "changeDue exceeds max(tendered-total, 0)"
	}
	if changeDue.Sign() > 0 {
		if cmp, err := tendered.Cmp(total); err != nil || cmp < 0 {
			return "changeDue > 0 but tendered < total"
		}
	}

	for _, line := range tx.Lines {
		if line.ParentLineItemID == nil || line.IsVoided {
			continue
		}
		parent, ok := byID[*line.ParentLineItemID]
		if ok && parent.IsVoided {
			return "line " + string(line.LineItemID) + " is non-voided but its parent " + string(*line.ParentLineItemID) + " is voided"
		}
	}

	return ""
}
