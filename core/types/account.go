package types

import "math/big"

// Account is a custody account on the escrow ledger. Authority names the
// identity that may move funds out of the account: for participant accounts it
// equals the account identity itself, for escrow vaults it is the derived
// capability computed from the owning escrow record.
type Account struct {
	Nonce     uint64
	Balance   *big.Int
	Authority [32]byte
}

// Clone returns a deep copy so callers can mutate the result without touching
// the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	} else {
		clone.Balance = big.NewInt(0)
	}
	return &clone
}
