package state

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/Mardiprk/token-escrow/core/types"
	"github.com/Mardiprk/token-escrow/native/escrow"
	"github.com/Mardiprk/token-escrow/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db)
}

func testID(fill byte) [32]byte {
	var id [32]byte
	copy(id[:], bytes.Repeat([]byte{fill}, 32))
	return id
}

func TestAccountRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	id := testID(0x01)
	authority := testID(0xAA)

	acct := &types.Account{Nonce: 7, Balance: big.NewInt(1_000_000), Authority: authority}
	if err := mgr.PutAccount(id, acct); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}

	stored, err := mgr.GetAccount(id)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if stored == nil {
		t.Fatalf("GetAccount returned nil for stored account")
	}
	if stored.Nonce != 7 {
		t.Fatalf("nonce = %d, want 7", stored.Nonce)
	}
	if stored.Balance.Cmp(acct.Balance) != 0 {
		t.Fatalf("balance = %v, want %v", stored.Balance, acct.Balance)
	}
	if stored.Authority != authority {
		t.Fatalf("authority mismatch: %x", stored.Authority)
	}

	if err := mgr.DeleteAccount(id); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	stored, err = mgr.GetAccount(id)
	if err != nil {
		t.Fatalf("GetAccount after delete: %v", err)
	}
	if stored != nil {
		t.Fatalf("deleted account must read back as missing")
	}
}

func TestMissingAccount(t *testing.T) {
	mgr := newTestManager(t)
	acct, err := mgr.GetAccount(testID(0x99))
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acct != nil {
		t.Fatalf("missing account must be reported as nil, got %+v", acct)
	}
}

func TestEscrowCreateEnforcesUniqueness(t *testing.T) {
	mgr := newTestManager(t)
	esc := &escrow.Escrow{
		Buyer:    testID(0x01),
		Seller:   testID(0x02),
		Amount:   100,
		ItemName: "Widget",
		Salt:     0x11,
	}
	if err := mgr.EscrowCreate(esc); err != nil {
		t.Fatalf("EscrowCreate: %v", err)
	}
	dup := esc.Clone()
	dup.Amount = 50
	dup.ItemName = "Item"
	if err := mgr.EscrowCreate(dup); !errors.Is(err, escrow.ErrAlreadyExists) {
		t.Fatalf("duplicate EscrowCreate err = %v, want ErrAlreadyExists", err)
	}

	stored, ok := mgr.EscrowGet(esc.Key())
	if !ok {
		t.Fatalf("EscrowGet: record missing")
	}
	if stored.Amount != 100 || stored.ItemName != "Widget" {
		t.Fatalf("duplicate create must not overwrite: %+v", stored)
	}
}

func TestEscrowGetReturnsFreshCopies(t *testing.T) {
	mgr := newTestManager(t)
	esc := &escrow.Escrow{Buyer: testID(0x01), Seller: testID(0x02), Amount: 100}
	if err := mgr.EscrowCreate(esc); err != nil {
		t.Fatalf("EscrowCreate: %v", err)
	}
	first, ok := mgr.EscrowGet(esc.Key())
	if !ok {
		t.Fatalf("EscrowGet: record missing")
	}
	first.IsCompleted = true

	second, ok := mgr.EscrowGet(esc.Key())
	if !ok {
		t.Fatalf("EscrowGet: record missing")
	}
	if second.IsCompleted {
		t.Fatalf("mutating a loaded record must not affect storage")
	}
}

func TestEscrowPutOverwritesInPlace(t *testing.T) {
	mgr := newTestManager(t)
	esc := &escrow.Escrow{Buyer: testID(0x01), Seller: testID(0x02), Amount: 100, ItemName: "Widget"}
	if err := mgr.EscrowCreate(esc); err != nil {
		t.Fatalf("EscrowCreate: %v", err)
	}
	esc.IsCompleted = true
	if err := mgr.EscrowPut(esc); err != nil {
		t.Fatalf("EscrowPut: %v", err)
	}
	stored, ok := mgr.EscrowGet(esc.Key())
	if !ok {
		t.Fatalf("EscrowGet: record missing")
	}
	if !stored.IsCompleted {
		t.Fatalf("EscrowPut must persist the settled flag")
	}
}

func TestEscrowGetMissing(t *testing.T) {
	mgr := newTestManager(t)
	if _, ok := mgr.EscrowGet(testID(0xEE)); ok {
		t.Fatalf("EscrowGet must report missing records")
	}
}

func TestKVFlag(t *testing.T) {
	mgr := newTestManager(t)
	key := []byte("genesis-applied")

	if _, ok, err := mgr.KVGet(key); err != nil || ok {
		t.Fatalf("unset flag: ok=%v err=%v", ok, err)
	}
	if err := mgr.KVPut(key, []byte{1}); err != nil {
		t.Fatalf("KVPut: %v", err)
	}
	value, ok, err := mgr.KVGet(key)
	if err != nil || !ok {
		t.Fatalf("set flag: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(value, []byte{1}) {
		t.Fatalf("flag value = %v", value)
	}
}
