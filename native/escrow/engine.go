package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Mardiprk/token-escrow/core/events"
	"github.com/Mardiprk/token-escrow/core/types"
)

var errNilState = errors.New("escrow engine: state not configured")

// engineState is the narrow view of ledger state the engine needs. The
// concrete implementation is core/state.Manager; tests use an in-memory mock.
type engineState interface {
	EscrowCreate(esc *Escrow) error
	EscrowGet(key [32]byte) (*Escrow, bool)
	EscrowPut(esc *Escrow) error
	GetAccount(id [32]byte) (*types.Account, error)
	PutAccount(id [32]byte, account *types.Account) error
	DeleteAccount(id [32]byte) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine drives the escrow lifecycle: Create locks a buyer's tokens in a
// record-owned vault, Complete pays the seller, Cancel refunds the buyer.
// Each transition runs under a per-record lock so conflicting submissions are
// strictly ordered; the loser of a Complete/Cancel race observes the settled
// record and fails with ErrAlreadyCompleted.
type Engine struct {
	state   engineState
	emitter events.Emitter

	mu    sync.Mutex
	locks map[[32]byte]*sync.Mutex
}

// NewEngine creates an escrow engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		locks:   make(map[[32]byte]*sync.Mutex),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

// lockRecord serializes transitions touching the same record key. Entries are
// never removed; records are never deleted either, so the map is bounded by
// the number of escrows the daemon has touched.
func (e *Engine) lockRecord(key [32]byte) func() {
	e.mu.Lock()
	lock, ok := e.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[key] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func ensureAccount(id [32]byte, acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0), Authority: id}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// transfer is the custody primitive: it debits amount from the source and
// credits the destination, but only when the presented authority matches the
// one the source account was opened with.
func (e *Engine) transfer(from, to [32]byte, authority Authority, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(from, fromAcc)
	if Authority(fromAcc.Authority) != authority {
		return ErrAuthorityMismatch
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	toAcc = ensureAccount(to, toAcc)
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

// Create opens an escrow for the (buyer, seller) pair and moves amount from
// the buyer's account into the new vault. The caller must be the buyer; the
// RPC layer establishes that before invoking the engine.
//
// A settled record permanently occupies its pair key, so a new trade between
// the same two parties fails with ErrAlreadyExists.
func (e *Engine) Create(buyer, seller [32]byte, amount uint64, itemName string) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if err := ValidateItemName(itemName); err != nil {
		return nil, err
	}
	key := DeriveKey(buyer, seller)
	unlock := e.lockRecord(key)
	defer unlock()

	if _, ok := e.state.EscrowGet(key); ok {
		return nil, ErrAlreadyExists
	}
	esc := &Escrow{
		Buyer:    buyer,
		Seller:   seller,
		Amount:   amount,
		ItemName: itemName,
		Salt:     SaltFor(key),
	}
	vaultID := VaultKey(key)
	vaultAuth := AuthorityFor(key, esc.Salt)
	vault := &types.Account{Balance: big.NewInt(0), Authority: vaultAuth}
	if err := e.state.PutAccount(vaultID, vault); err != nil {
		return nil, err
	}
	if err := e.transfer(buyer, vaultID, SelfAuthority(buyer), new(big.Int).SetUint64(amount)); err != nil {
		_ = e.state.DeleteAccount(vaultID)
		return nil, err
	}
	if err := e.state.EscrowCreate(esc); err != nil {
		// Undo the funding leg so a failed create leaves no trace.
		_ = e.transfer(vaultID, buyer, vaultAuth, new(big.Int).SetUint64(amount))
		_ = e.state.DeleteAccount(vaultID)
		return nil, err
	}
	e.emit(NewCreatedEvent(esc))
	return esc.Clone(), nil
}

// Complete settles the escrow in favour of the seller. Only the seller named
// in the record may invoke it, and only while the record is open.
func (e *Engine) Complete(key [32]byte, caller [32]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	unlock := e.lockRecord(key)
	defer unlock()

	esc, ok := e.state.EscrowGet(key)
	if !ok {
		return ErrNotFound
	}
	if esc.IsCompleted {
		return ErrAlreadyCompleted
	}
	if caller != esc.Seller {
		return ErrUnauthorizedComplete
	}
	if err := e.release(key, esc, esc.Seller); err != nil {
		return err
	}
	esc.IsCompleted = true
	if err := e.state.EscrowPut(esc); err != nil {
		return fmt.Errorf("escrow: persist settlement: %w", err)
	}
	e.emit(NewCompletedEvent(esc))
	return nil
}

// Cancel returns the escrowed funds to the buyer. Only the buyer named in the
// record may invoke it, and only while the record is open.
func (e *Engine) Cancel(key [32]byte, caller [32]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	unlock := e.lockRecord(key)
	defer unlock()

	esc, ok := e.state.EscrowGet(key)
	if !ok {
		return ErrNotFound
	}
	if esc.IsCompleted {
		return ErrAlreadyCompleted
	}
	if caller != esc.Buyer {
		return ErrUnauthorizedCancel
	}
	if err := e.release(key, esc, esc.Buyer); err != nil {
		return err
	}
	esc.IsCompleted = true
	if err := e.state.EscrowPut(esc); err != nil {
		return fmt.Errorf("escrow: persist settlement: %w", err)
	}
	e.emit(NewCancelledEvent(esc))
	return nil
}

// release empties the vault into the destination account. The transfer is
// attempted before the completed flag is persisted, so a failed release
// leaves the record open and the vault untouched.
func (e *Engine) release(key [32]byte, esc *Escrow, destination [32]byte) error {
	vaultID := VaultKey(key)
	auth := AuthorityFor(key, esc.Salt)
	return e.transfer(vaultID, destination, auth, new(big.Int).SetUint64(esc.Amount))
}

// Get returns a copy of the record stored under key.
func (e *Engine) Get(key [32]byte) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	esc, ok := e.state.EscrowGet(key)
	if !ok {
		return nil, ErrNotFound
	}
	return esc.Clone(), nil
}

// VaultBalance reports the current balance of the escrow's vault account.
func (e *Engine) VaultBalance(key [32]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, ok := e.state.EscrowGet(key); !ok {
		return nil, ErrNotFound
	}
	acc, err := e.state.GetAccount(VaultKey(key))
	if err != nil {
		return nil, err
	}
	acc = ensureAccount(VaultKey(key), acc)
	return new(big.Int).Set(acc.Balance), nil
}
