package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/Mardiprk/token-escrow/core/types"
	"github.com/Mardiprk/token-escrow/native/escrow"
	"github.com/Mardiprk/token-escrow/storage"
)

// Manager provides keyed access to ledger state: custody accounts and escrow
// records. All storage keys are keccak-hashed over a domain prefix so the
// different namespaces cannot collide.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	accountPrefix = []byte("account:")
	escrowPrefix  = []byte("escrow:")
	kvPrefix      = []byte("kv:")
)

func accountKey(id [32]byte) []byte {
	return ethcrypto.Keccak256(accountPrefix, id[:])
}

func escrowKey(key [32]byte) []byte {
	return ethcrypto.Keccak256(escrowPrefix, key[:])
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(kvPrefix, key)
}

// rlpAccount is the persisted shape of a custody account. The escrow record
// has an externally fixed byte layout; accounts are ours, so they use RLP.
type rlpAccount struct {
	Nonce     uint64
	Balance   *big.Int
	Authority [32]byte
}

// GetAccount loads the custody account stored under id. A missing account is
// reported as (nil, nil); callers default it to a zero-balance, self-owned
// account.
func (m *Manager) GetAccount(id [32]byte) (*types.Account, error) {
	data, err := m.db.Get(accountKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load account: %w", err)
	}
	var stored rlpAccount
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	balance := stored.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	return &types.Account{
		Nonce:     stored.Nonce,
		Balance:   balance,
		Authority: stored.Authority,
	}, nil
}

// PutAccount stores the custody account under id.
func (m *Manager) PutAccount(id [32]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	data, err := rlp.EncodeToBytes(&rlpAccount{
		Nonce:     account.Nonce,
		Balance:   balance,
		Authority: account.Authority,
	})
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return m.db.Put(accountKey(id), data)
}

// DeleteAccount removes the custody account stored under id, if any.
func (m *Manager) DeleteAccount(id [32]byte) error {
	return m.db.Delete(accountKey(id))
}

// EscrowCreate stores a new record and rejects the write when the derived key
// is already occupied. Uniqueness per (buyer, seller) pair follows from the
// deterministic key derivation.
func (m *Manager) EscrowCreate(esc *escrow.Escrow) error {
	if esc == nil {
		return fmt.Errorf("state: nil escrow")
	}
	key := esc.Key()
	exists, err := m.db.Has(escrowKey(key))
	if err != nil {
		return fmt.Errorf("state: check escrow key: %w", err)
	}
	if exists {
		return escrow.ErrAlreadyExists
	}
	return m.escrowWrite(esc)
}

// EscrowGet loads the record stored under key. Each call decodes a fresh copy
// so callers can mutate the result freely.
func (m *Manager) EscrowGet(key [32]byte) (*escrow.Escrow, bool) {
	data, err := m.db.Get(escrowKey(key))
	if err != nil {
		return nil, false
	}
	esc := new(escrow.Escrow)
	if err := esc.UnmarshalBinary(data); err != nil {
		return nil, false
	}
	return esc, true
}

// EscrowPut overwrites the record in place. The engine is responsible for
// never changing anything but the completed flag after creation.
func (m *Manager) EscrowPut(esc *escrow.Escrow) error {
	if esc == nil {
		return fmt.Errorf("state: nil escrow")
	}
	return m.escrowWrite(esc)
}

func (m *Manager) escrowWrite(esc *escrow.Escrow) error {
	data, err := esc.MarshalBinary()
	if err != nil {
		return fmt.Errorf("state: encode escrow: %w", err)
	}
	return m.db.Put(escrowKey(esc.Key()), data)
}

// KVPut stores an opaque value under a hashed key. Used for daemon-level
// markers such as the applied-genesis flag.
func (m *Manager) KVPut(key, value []byte) error {
	return m.db.Put(kvKey(key), value)
}

// KVGet loads an opaque value previously stored with KVPut.
func (m *Manager) KVGet(key []byte) ([]byte, bool, error) {
	data, err := m.db.Get(kvKey(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
